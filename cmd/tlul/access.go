package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sarchlab/tlul/testbench"
	"github.com/spf13/cobra"
)

func parseNumber(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}

	return n, nil
}

func newGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get ADDRESS",
		Short: "Read one bus word.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := parseNumber(args[0])
			if err != nil {
				return err
			}

			return opts.withBench(func(ctx context.Context, b *testbench.Bench) error {
				data, err := b.Host.Get(ctx, address)
				if err != nil {
					return err
				}

				width := b.Layout().DataBytes() * 2
				fmt.Fprintf(cmd.OutOrStdout(), "0x%0*x\n", width, data)

				return nil
			})
		},
	}
}

func newPutCmd(opts *options) *cobra.Command {
	var mask string

	cmd := &cobra.Command{
		Use:   "put ADDRESS DATA",
		Short: "Write one bus word.",
		Long: "Write DATA to ADDRESS. Without --mask every byte lane is " +
			"written with PutFullData. A partial mask issues PutPartialData.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := parseNumber(args[0])
			if err != nil {
				return err
			}

			data, err := parseNumber(args[1])
			if err != nil {
				return err
			}

			return opts.withBench(func(ctx context.Context, b *testbench.Bench) error {
				m := b.Layout().FullMask()
				if mask != "" {
					if m, err = parseNumber(mask); err != nil {
						return err
					}
				}

				rsp, err := b.Host.Put(ctx, address, data, m)
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), rsp.Opcode)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&mask, "mask", "", "byte lane mask, all lanes by default")

	return cmd
}
