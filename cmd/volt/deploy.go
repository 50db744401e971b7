package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/voltgpu/volt/api"
	"github.com/voltgpu/volt/client"
	"github.com/voltgpu/volt/config"
	"github.com/voltgpu/volt/race"
)

// marketClient adapts *client.Client to race.MarketAPI.
type marketClient struct {
	*client.Client
}

func (m marketClient) CreateInstance(ctx context.Context, spec api.CreateInstanceSpec) (string, error) {
	handle, err := m.Client.CreateInstance(ctx, spec)
	if err != nil {
		return "", err
	}
	return handle.ID(), nil
}

func raceLogger() *slog.Logger {
	level := slog.LevelWarn
	if !quiet {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newDeployCommand() *cobra.Command {
	var query api.OfferQuery
	var diskGB float64
	var candidates int
	var label string

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Provision the best available machine for a GPU",
		Long: `Provision the best available machine matching the filters.

Deploy races the cheapest matching offers: it starts up to five instances
at once, keeps the first one whose machine is actually running, and
destroys the rest. Racing trades a few minutes of duplicate billing for
not gambling on a single host's boot time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if diskGB <= 0 {
				diskGB = voltConfig.DefaultDiskGB
			}
			if label == "" {
				label = voltConfig.DefaultLabel
			}

			logger := raceLogger()
			journal := race.OpenJournal(config.JournalPath(), logger)
			if open, err := journal.Unreleased(); err == nil && len(open) > 0 {
				fmt.Fprintf(os.Stderr, "%s %d instance(s) from an interrupted deploy may still be running; run 'volt instance reconcile'\n",
					color.YellowString("Warning:"), len(open))
			}

			query.Limit = race.MaxCandidates
			offers, err := volt.SearchOffers(ctx, query)
			if err != nil {
				return err
			}
			if len(offers) == 0 {
				return errors.New("no rentable offers match the given filters")
			}

			coordinator := race.New(marketClient{volt}, race.Options{
				DiskSize:   diskGB,
				Label:      label,
				Candidates: candidates,
				Logger:     logger,
				Journal:    journal,
				OnUpdate:   newRaceRenderer(),
			})

			winner, err := coordinator.Run(ctx, offers)
			if err != nil {
				return err
			}

			fmt.Println()
			fmt.Printf("Connected to %s (%s) at $%.3f/hr\n",
				color.GreenString(winner.Candidate.Offer.GPUName),
				winner.InstanceID,
				winner.DPHTotal)
			fmt.Printf("    ssh -p %d root@%s\n", winner.SSHPort, winner.SSHHost)
			return nil
		},
	}

	cmd.Flags().StringVar(&query.GPUName, "gpu", "", "GPU model, e.g. \"RTX 4090\"")
	cmd.Flags().StringVar(&query.Region, "region", "", "Geolocation prefix, e.g. US")
	cmd.Flags().Float64Var(&query.MaxDPH, "max-price", 0, "Maximum price in dollars per hour")
	cmd.Flags().Int64Var(&query.MinGPURAM, "min-gpu-ram", 0, "Minimum per-GPU memory in MB")
	cmd.Flags().IntVar(&query.NumGPUs, "gpus", 0, "Exact number of GPUs")
	cmd.Flags().Float64Var(&diskGB, "disk", 0, "Disk to request in GB")
	cmd.Flags().IntVar(&candidates, "candidates", race.MaxCandidates, "How many offers to race at once (max 5)")
	cmd.Flags().StringVar(&label, "label", "", "Label prefix for created instances")
	return cmd
}

// newRaceRenderer prints one line per candidate state change.
func newRaceRenderer() func([]race.Candidate) {
	if quiet {
		return nil
	}

	last := map[int]string{}
	return func(views []race.Candidate) {
		for i, cand := range views {
			line := candidateLine(cand)
			if last[i] == line {
				continue
			}
			last[i] = line
			fmt.Printf("  [%d] %s $%.3f/hr  %s\n", i+1, cand.Offer.GPUName, cand.Offer.DPHTotal, line)
		}
	}
}

func candidateLine(cand race.Candidate) string {
	switch cand.Status {
	case race.StatusConnected:
		return color.GreenString("connected")
	case race.StatusFailed:
		return color.RedString("failed: " + cand.ErrorMessage)
	case race.StatusCancelled:
		return color.YellowString("cancelled")
	case race.StatusCreating:
		return "creating..."
	default:
		return fmt.Sprintf("connecting (%d%%)", cand.Progress)
	}
}
