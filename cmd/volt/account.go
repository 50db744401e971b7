package main

import (
	"github.com/spf13/cobra"

	"github.com/voltgpu/volt/api"
)

func newAccountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account <command>",
		Short: "Manage your account",
	}
	cmd.AddCommand(newAccountWhoAmICommand())
	cmd.AddCommand(newAccountSpendCommand())
	return cmd
}

func newAccountWhoAmICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display information about your account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := volt.WhoAmI(ctx)
			if err != nil {
				return err
			}
			return printUsers([]api.User{*user})
		},
	}
}

func newAccountSpendCommand() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "spend",
		Short: "Display your marketplace spend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := volt.SpendSummary(ctx, days)
			if err != nil {
				return err
			}
			return printSpend(summary)
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Days of history to report (default: server default)")
	return cmd
}
