package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voltgpu/volt/api"
)

func newRecommendCommand() *cobra.Command {
	var budget float64
	var region string
	cmd := &cobra.Command{
		Use:   "recommend <workload description>",
		Short: "Ask the advisor which GPU fits a workload",
		Example: `  volt recommend "fine-tune a 7B llama model on 50k samples"
  volt recommend --budget 1.50 "stable diffusion inference, batch 8"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := volt.Recommend(ctx, api.RecommendationRequest{
				Workload:  strings.Join(args, " "),
				BudgetDPH: budget,
				Region:    region,
			})
			if err != nil {
				return err
			}

			if format == formatJSON {
				return printJSON(rec)
			}
			fmt.Println(rec.Rationale)
			if len(rec.Offers) == 0 {
				return nil
			}
			fmt.Println()
			return printOffers(rec.Offers)
		},
	}
	cmd.Flags().Float64Var(&budget, "budget", 0, "Budget ceiling in dollars per hour")
	cmd.Flags().StringVar(&region, "region", "", "Preferred geolocation prefix")
	return cmd
}
