package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/sarchlab/tlul/datarecording"
	"github.com/spf13/cobra"
)

func newReportCmd(_ *options) *cobra.Command {
	var (
		limit   int
		outcome string
	)

	cmd := &cobra.Command{
		Use:   "report FILE",
		Short: "List the transactions of a SQLite recording.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return err
			}

			r, err := datarecording.NewReader(args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			r.MapTable(datarecording.TransactionTable,
				datarecording.TransactionEntry{})

			params := datarecording.QueryParams{
				OrderBy: "IssueCycle",
				Limit:   limit,
			}

			if outcome != "" {
				params.Where = "Outcome = ?"
				params.Args = []any{outcome}
			}

			results, total, err := r.Query(context.Background(),
				datarecording.TransactionTable, params)
			if err != nil {
				return err
			}

			data := pterm.TableData{{
				"Opcode", "Address", "Source", "Write", "Read",
				"Outcome", "Issue", "Latency",
			}}

			for _, res := range results {
				e := res.(*datarecording.TransactionEntry)
				data = append(data, []string{
					e.Opcode,
					e.Address,
					fmt.Sprint(e.Source),
					e.WriteData,
					e.ReadData,
					e.Outcome,
					fmt.Sprint(e.IssueCycle),
					fmt.Sprint(e.Latency),
				})
			}

			out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), out)
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d transactions\n",
				len(results), total)

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of rows, 0 for all")
	cmd.Flags().StringVar(&outcome, "outcome", "", "only list this outcome, e.g. ok or bus_error")

	return cmd
}
