package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/constellation/internal/cliapp"
	"github.com/alexisbeaulieu97/constellation/internal/domain/cvalue"
	"github.com/alexisbeaulieu97/constellation/internal/domain/xerrors"
)

type resumeOptions struct {
	inputs     []string
	jsonOutput bool
}

func newResumeCmd(flags *rootFlags) *cobra.Command {
	opts := &resumeOptions{}

	cmd := &cobra.Command{
		Use:   "resume <handle>",
		Short: "Continue a suspended execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(cmd, flags, opts, args[0])
		},
	}

	cmd.Flags().StringArrayVar(&opts.inputs, "input", nil, "An additional input as name=jsonValue, repeatable")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the execution report as JSON")

	return cmd
}

func runResume(cmd *cobra.Command, flags *rootFlags, opts *resumeOptions, handleArg string) error {
	handle, err := uuid.Parse(handleArg)
	if err != nil {
		return err
	}

	app, err := newApp(flags)
	if err != nil {
		return err
	}

	snapshot, ok := app.Suspended.Load(handle)
	if !ok {
		return xerrors.New(xerrors.CodePipelineNotFound, "no suspended execution for handle").
			WithContext(map[string]interface{}{"handle": handleArg})
	}

	additionalInputs := make(map[string]cvalue.CValue, len(opts.inputs))
	for _, flag := range opts.inputs {
		name, value, err := cliapp.ParseInputFlag(snapshot.Spec, flag)
		if err != nil {
			return err
		}
		additionalInputs[name] = value
	}

	result, err := app.Resume(cmd.Context(), handle, additionalInputs)
	if err != nil {
		return err
	}

	return renderResult(cmd, opts.jsonOutput, result)
}
