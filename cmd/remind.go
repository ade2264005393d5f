package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Deliver due maintenance reminders",
	Long:  "Sends every pending reminder whose due date has passed to the configured webhook and marks it sent.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("remind"); err != nil {
			return err
		}

		env, err := initEnv(ctx, envOptions{Store: true, Deliver: true})
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Dispatcher.DeliverDue(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "delivered %d reminders\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(remindCmd)
}
