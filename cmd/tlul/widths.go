package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/sarchlab/tlul/tlul"
	"github.com/spf13/cobra"
)

func newWidthsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "widths",
		Short: "Print the signal layout of both bundles.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			layout, err := opts.cfg.Layout()
			if err != nil {
				return err
			}

			return printWidths(cmd.OutOrStdout(), layout)
		},
	}
}

func printWidths(w io.Writer, layout *tlul.Layout) error {
	tables := []struct {
		title string
		table tlul.SignalWidths
	}{
		{"Host to device (Channel A)", layout.HostToDevice()},
		{"Device to host (Channel D)", layout.DeviceToHost()},
	}

	for _, t := range tables {
		padded := layout.PaddedBits(t.table)

		fmt.Fprintf(w, "%s: %d bits, padded to %d\n",
			t.title, t.table.Total(), padded)

		out, err := pterm.DefaultTable.
			WithHasHeader().
			WithData(widthTableData(t.table, padded)).
			Srender()
		if err != nil {
			return err
		}

		fmt.Fprintln(w, out)
	}

	return nil
}

func widthTableData(table tlul.SignalWidths, padded int) pterm.TableData {
	data := pterm.TableData{{"Signal", "Width", "Bits"}}

	for _, r := range table.Ranges(padded) {
		data = append(data, []string{
			r.Name,
			strconv.Itoa(r.Width),
			fmt.Sprintf("[%d:%d]", r.MSB, r.LSB),
		})
	}

	return data
}
