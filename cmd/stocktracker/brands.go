package main

import (
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-stock/models"
	"github.com/aluiziolira/go-scrape-stock/report"
)

func newBrandsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brands",
		Short: "Inspect or extend the brand registry.",
	}

	var match string
	list := &cobra.Command{
		Use:   "list",
		Short: "Lists registered brands.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			entries := st.directory.Entries()
			if match != "" {
				entries = st.directory.Match(match)
			}
			report.RenderBrands(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	list.Flags().StringVar(&match, "match", "", "Only brands whose name contains this text")

	add := &cobra.Command{
		Use:   "add NAME URL",
		Short: "Registers a brand and its storefront URL.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			entry := models.BrandEntry{Name: args[0], StorefrontURL: args[1]}
			if err := st.directory.Register(cmd.Context(), entry); err != nil {
				return err
			}
			report.RenderBrands(cmd.OutOrStdout(), []models.BrandEntry{entry})
			return nil
		},
	}

	cmd.AddCommand(list, add)
	return cmd
}
