package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-stock/models"
	"github.com/aluiziolira/go-scrape-stock/report"
)

func newQueryCmd(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "query BRAND",
		Short: "List a brand's unavailable listings recorded in the ledger.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			brand := args[0]
			var records []models.ProductRecord
			if all {
				records, err = st.ledger.History(cmd.Context(), brand)
			} else {
				records, err = st.ledger.Query(cmd.Context(), brand, st.filter)
			}
			if err != nil {
				return err
			}

			if len(records) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no matching rows for %s\n", brand)
				if _, known := st.directory.Lookup(brand); !known {
					for _, s := range st.directory.Suggest(brand, 3) {
						fmt.Fprintf(cmd.OutOrStdout(), "did you mean %q?\n", s.Name)
					}
				}
				return nil
			}
			report.RenderRecords(cmd.OutOrStdout(), records)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Show every recorded row for the brand")
	return cmd
}
