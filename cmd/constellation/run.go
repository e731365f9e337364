package main

import (
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alexisbeaulieu97/constellation/internal/cache"
	"github.com/alexisbeaulieu97/constellation/internal/cliapp"
	"github.com/alexisbeaulieu97/constellation/internal/domain/cvalue"
	"github.com/alexisbeaulieu97/constellation/internal/ports"
)

type runOptions struct {
	inputs     []string
	jsonOutput bool
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <dagspec.json>",
		Short: "Execute a DAG specification once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, flags, opts, args[0])
		},
	}

	cmd.Flags().StringArrayVar(&opts.inputs, "input", nil, "A provided input as name=jsonValue, repeatable")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the execution report as JSON")

	return cmd
}

func runRun(cmd *cobra.Command, flags *rootFlags, opts *runOptions, specPath string) error {
	spec, err := cliapp.LoadDagSpec(specPath)
	if err != nil {
		return err
	}

	providedInputs := make(map[string]cvalue.CValue, len(opts.inputs))
	for _, flag := range opts.inputs {
		name, value, err := cliapp.ParseInputFlag(spec, flag)
		if err != nil {
			return err
		}
		providedInputs[name] = value
	}

	app, err := newApp(flags)
	if err != nil {
		return err
	}

	backend, err := cache.New()
	if err != nil {
		return err
	}
	caches := map[string]ports.CacheBackend{"default": backend}

	result, err := app.Run(cmd.Context(), spec, providedInputs, nil, newMetricsCollector(), caches)
	if err != nil {
		return err
	}

	return renderResult(cmd, opts.jsonOutput, result)
}

func renderResult(cmd *cobra.Command, jsonOutput bool, result cliapp.RunResult) error {
	var handle string
	if result.SuspendHandle != uuid.Nil {
		handle = result.SuspendHandle.String()
	}

	out := cmd.OutOrStdout()
	if jsonOutput || !term.IsTerminal(int(os.Stdout.Fd())) {
		return renderJSON(out, result.Signature, handle)
	}
	return renderHuman(out, result.Signature, handle)
}
