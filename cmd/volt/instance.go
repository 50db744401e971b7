package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voltgpu/volt/api"
	"github.com/voltgpu/volt/config"
	"github.com/voltgpu/volt/race"
)

func newInstanceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instance <command>",
		Short: "Manage rented instances",
	}
	cmd.AddCommand(newInstanceListCommand())
	cmd.AddCommand(newInstanceInspectCommand())
	cmd.AddCommand(newInstanceDeleteCommand())
	cmd.AddCommand(newInstanceReconcileCommand())
	return cmd
}

func newInstanceListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all of your instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			instances, err := volt.ListInstances(ctx)
			if err != nil {
				return err
			}
			return printInstances(instances)
		},
	}
}

func newInstanceInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <instance...>",
		Short: "Display detailed information about one or more instances",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var instances []api.Instance
			for _, id := range args {
				info, err := volt.Instance(id).Get(ctx)
				if err != nil {
					return err
				}
				instances = append(instances, *info)
			}
			return printJSON(instances)
		},
	}
}

func newInstanceDeleteCommand() *cobra.Command {
	var skipConfirmation bool
	cmd := &cobra.Command{
		Use:   "delete <instance...>",
		Short: "Destroy one or more instances and stop their billing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !skipConfirmation {
				ok, err := confirm(fmt.Sprintf("Permanently delete %d instance(s)?", len(args)))
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}
			for _, id := range args {
				if err := volt.Instance(id).Delete(ctx); err != nil {
					return err
				}
				if !quiet {
					fmt.Println("Deleted", id)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&skipConfirmation, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newInstanceReconcileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Clean up instances orphaned by an interrupted deploy",
		Long: `Clean up instances orphaned by an interrupted deploy.

Every instance provisioned during a deploy race is recorded in a local
journal before the race depends on it. If a deploy is killed mid-race the
journal keeps the orphaned instances accounted for; reconcile deletes any
of them that are still running and settles the journal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			journal := race.OpenJournal(config.JournalPath(), raceLogger())
			deleted, err := race.Reconcile(ctx, journal, marketClient{volt})
			if err != nil {
				return err
			}
			if quiet {
				return nil
			}
			if len(deleted) == 0 {
				fmt.Println("No orphaned instances found.")
				return nil
			}
			for _, id := range deleted {
				fmt.Println("Deleted orphaned instance", id)
			}
			return nil
		},
	}
}
