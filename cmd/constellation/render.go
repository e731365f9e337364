package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/alexisbeaulieu97/constellation/internal/report"
)

// jsonSignature is report.DataSignature re-shaped for JSON: DataSignature's
// Errors field is []error, which encoding/json cannot marshal usefully.
type jsonSignature struct {
	Status          report.Status             `json:"status"`
	Outputs         json.RawMessage           `json:"outputs"`
	Errors          []string                  `json:"errors,omitempty"`
	MissingInputs   []string                  `json:"missingInputs,omitempty"`
	SuspendHandle   string                    `json:"suspendHandle,omitempty"`
	ResumptionCount int                       `json:"resumptionCount"`
	Metadata        report.SignatureMetadata  `json:"metadata"`
}

func renderJSON(w io.Writer, sig report.DataSignature, suspendHandle string) error {
	outputs, err := json.Marshal(sig.Outputs)
	if err != nil {
		return fmt.Errorf("marshal outputs: %w", err)
	}
	errs := make([]string, 0, len(sig.Errors))
	for _, e := range sig.Errors {
		errs = append(errs, e.Error())
	}
	payload := jsonSignature{
		Status:          sig.Status,
		Outputs:         outputs,
		Errors:          errs,
		MissingInputs:   sig.MissingInputs,
		SuspendHandle:   suspendHandle,
		ResumptionCount: sig.ResumptionCount,
		Metadata:        sig.Metadata,
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

// renderHuman prints a short, tabwriter-aligned summary: status line,
// one row per output, one row per error/missing input, and (when
// requested) the timing and blocked-graph sections.
func renderHuman(w io.Writer, sig report.DataSignature, suspendHandle string) error {
	fmt.Fprintf(w, "status: %s\n", sig.Status)
	if suspendHandle != "" {
		fmt.Fprintf(w, "suspend handle: %s (resumptionCount=%d)\n", suspendHandle, sig.ResumptionCount)
	}

	if len(sig.Outputs) > 0 {
		fmt.Fprintln(w, "\noutputs:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		names := make([]string, 0, len(sig.Outputs))
		for name := range sig.Outputs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			raw, err := sig.Outputs[name].MarshalJSON()
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "  %s\t%s\n", name, string(raw))
		}
		tw.Flush()
	}

	if len(sig.MissingInputs) > 0 {
		fmt.Fprintln(w, "\nmissing inputs:")
		for _, name := range sig.MissingInputs {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}

	if len(sig.Errors) > 0 {
		fmt.Fprintln(w, "\nerrors:")
		for _, e := range sig.Errors {
			fmt.Fprintf(w, "  %s\n", e.Error())
		}
	}

	if len(sig.Metadata.NodeTimings) > 0 {
		fmt.Fprintf(w, "\ntimings (total %s):\n", sig.Metadata.TotalDuration)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, t := range sig.Metadata.NodeTimings {
			fmt.Fprintf(tw, "  %s\t%s\n", t.Name, t.Duration)
		}
		tw.Flush()
	}

	if len(sig.Metadata.BlockedGraph) > 0 {
		fmt.Fprintln(w, "\nblocked modules:")
		for _, b := range sig.Metadata.BlockedGraph {
			fmt.Fprintf(w, "  %s (%s) waiting on: %v\n", b.Name, b.Status, b.WaitingOnData)
		}
	}

	return nil
}
