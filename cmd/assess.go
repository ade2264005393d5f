package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	assessFile    string
	assessFormat  string
	assessOut     string
	assessExplain bool
	assessNoCache bool
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Assess one water heater snapshot",
	Long:  "Reads a snapshot (a YAML or JSON file, or JSON on stdin with -), prices the replacement when no cost is given, and prints the verdict, budget and maintenance schedule.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("assess"); err != nil {
			return err
		}
		switch assessFormat {
		case formatTable, formatJSON:
		case formatXLSX:
			if assessOut == "" {
				return eris.New("assess: --out is required for xlsx output")
			}
		default:
			return eris.Errorf("assess: unknown format %q", assessFormat)
		}

		snap, err := readSnapshot(assessFile, cmd.InOrStdin())
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, envOptions{Store: !assessNoCache, StoreOptional: true})
		if err != nil {
			return err
		}
		defer env.Close()

		a := runAssessment(ctx, env, prepareSnapshot(snap, time.Now()))
		if assessExplain {
			explain(ctx, env, &a)
		}

		if assessFormat == formatXLSX {
			return writeXLSX(assessOut, a)
		}

		w := cmd.OutOrStdout()
		if assessOut != "" {
			f, err := os.Create(assessOut)
			if err != nil {
				return eris.Wrap(err, "assess: create output")
			}
			defer f.Close() //nolint:errcheck
			w = f
		}
		if assessFormat == formatJSON {
			return writeJSON(w, a)
		}
		return writeTable(w, a)
	},
}

func init() {
	assessCmd.Flags().StringVarP(&assessFile, "file", "f", "-", "snapshot file (YAML or JSON), - for JSON on stdin")
	assessCmd.Flags().StringVar(&assessFormat, "format", formatTable, "output format: table, json or xlsx")
	assessCmd.Flags().StringVar(&assessOut, "out", "", "write output to a file (required for xlsx)")
	assessCmd.Flags().BoolVar(&assessExplain, "explain", false, "explain the primary finding")
	assessCmd.Flags().BoolVar(&assessNoCache, "no-cache", false, "skip the store and price from the static table")
	rootCmd.AddCommand(assessCmd)
}
