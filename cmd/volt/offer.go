package main

import (
	"github.com/spf13/cobra"

	"github.com/voltgpu/volt/api"
)

func newOfferCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offer <command>",
		Short: "Browse marketplace offers",
	}
	cmd.AddCommand(newOfferSearchCommand())
	return cmd
}

func newOfferSearchCommand() *cobra.Command {
	var query api.OfferQuery
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search rentable offers, cheapest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			offers, err := volt.SearchOffers(ctx, query)
			if err != nil {
				return err
			}
			return printOffers(offers)
		},
	}
	cmd.Flags().StringVar(&query.GPUName, "gpu", "", "GPU model, e.g. \"RTX 4090\"")
	cmd.Flags().StringVar(&query.Region, "region", "", "Geolocation prefix, e.g. US")
	cmd.Flags().Float64Var(&query.MaxDPH, "max-price", 0, "Maximum price in dollars per hour")
	cmd.Flags().Int64Var(&query.MinGPURAM, "min-gpu-ram", 0, "Minimum per-GPU memory in MB")
	cmd.Flags().IntVar(&query.NumGPUs, "gpus", 0, "Exact number of GPUs")
	cmd.Flags().IntVar(&query.Limit, "limit", 50, "Maximum number of offers to return")
	return cmd
}
