package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/constellation/internal/store"
)

func newStoreCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect the compiled pipeline image store",
	}

	cmd.AddCommand(newStoreListCmd(flags))
	cmd.AddCommand(newStoreAliasCmd(flags))

	return cmd
}

func newStoreListCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every stored image's structural hash and its aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(flags)
			if err != nil {
				return err
			}
			return renderStoreList(cmd, app.Images)
		},
	}
}

func renderStoreList(cmd *cobra.Command, images *store.PipelineImageStore) error {
	hashes := images.ListImages()
	if len(hashes) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No images stored yet.")
		return nil
	}

	aliasesByHash := make(map[string][]string, len(hashes))
	for name, hash := range images.ListAliases() {
		aliasesByHash[hash] = append(aliasesByHash[hash], name)
	}
	for _, names := range aliasesByHash {
		sort.Strings(names)
	}

	sort.Strings(hashes)

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STRUCTURAL HASH\tALIASES")
	for _, hash := range hashes {
		fmt.Fprintf(tw, "%s\t%s\n", store.String(hash), aliasesByHash[hash])
	}
	return tw.Flush()
}

func newStoreAliasCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "alias <name> <structural-hash>",
		Short: "Assign a human-readable name to a stored image's structural hash",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(flags)
			if err != nil {
				return err
			}
			hash := store.StripHashPrefix(args[1])
			if err := app.Images.Alias(args[0], hash); err != nil {
				return err
			}
			if err := app.SaveImages(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "aliased %s -> %s\n", args[0], store.String(hash))
			return nil
		},
	}
}
