package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/sarchlab/tlul/monitoring"
	"github.com/sarchlab/tlul/testbench"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// A step is one access of a script.
type step struct {
	Op      string  `yaml:"op"`
	Address uint64  `yaml:"address"`
	Data    uint64  `yaml:"data"`
	Mask    *uint64 `yaml:"mask"`
	Expect  *uint64 `yaml:"expect"`
}

type stepResult struct {
	step  step
	value uint64
	err   error
}

func (r stepResult) failed() bool {
	if r.err != nil {
		return true
	}

	return r.step.Op == "get" && r.step.Expect != nil && *r.step.Expect != r.value
}

var errScriptFailed = errors.New("script failed")

func parseScript(r io.Reader) ([]step, error) {
	var steps []step

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&steps); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse script: %w", err)
	}

	for i, s := range steps {
		switch s.Op {
		case "get":
		case "put":
		default:
			return nil, fmt.Errorf("step %d: unknown op %q", i+1, s.Op)
		}
	}

	return steps, nil
}

func newScriptCmd(opts *options) *cobra.Command {
	var keepGoing bool

	cmd := &cobra.Command{
		Use:   "script FILE",
		Short: "Run a YAML list of get and put steps.",
		Long: "Run a YAML list of steps such as\n\n" +
			"  - {op: put, address: 0x10, data: 0xCAFE}\n" +
			"  - {op: get, address: 0x10, expect: 0xCAFE}\n\n" +
			"and report each result. The command fails if a step fails or a " +
			"read does not match its expected value.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			steps, err := parseScript(f)
			if err != nil {
				return err
			}

			return opts.withBench(func(ctx context.Context, b *testbench.Bench) error {
				results := runScript(ctx, b, steps, keepGoing)

				if err := printResults(cmd.OutOrStdout(), results); err != nil {
					return err
				}

				for _, r := range results {
					if r.failed() {
						return errScriptFailed
					}
				}

				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&keepGoing, "keep-going", false,
		"run the remaining steps after a failure")

	return cmd
}

func runScript(
	ctx context.Context,
	b *testbench.Bench,
	steps []step,
	keepGoing bool,
) []stepResult {
	var (
		results []stepResult
		bar     *monitoring.ProgressBar
	)

	if b.Monitor != nil {
		bar = b.Monitor.CreateProgressBar("script", uint64(len(steps)))
		defer b.Monitor.CompleteProgressBar(bar)
	}

	for _, s := range steps {
		r := stepResult{step: s}

		switch s.Op {
		case "get":
			r.value, r.err = b.Host.Get(ctx, s.Address)
		case "put":
			mask := b.Layout().FullMask()
			if s.Mask != nil {
				mask = *s.Mask
			}

			_, r.err = b.Host.Put(ctx, s.Address, s.Data, mask)
			r.value = s.Data
		}

		results = append(results, r)

		if bar != nil {
			bar.IncrementFinished(1)
		}

		if r.failed() && !keepGoing {
			break
		}
	}

	return results
}

func printResults(w io.Writer, results []stepResult) error {
	data := pterm.TableData{{"#", "Op", "Address", "Value", "Result"}}

	for i, r := range results {
		status := "ok"

		switch {
		case r.err != nil:
			status = r.err.Error()
		case r.failed():
			status = fmt.Sprintf("expected 0x%x", *r.step.Expect)
		}

		data = append(data, []string{
			fmt.Sprint(i + 1),
			r.step.Op,
			fmt.Sprintf("0x%x", r.step.Address),
			fmt.Sprintf("0x%x", r.value),
			status,
		})
	}

	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, out)

	return nil
}
