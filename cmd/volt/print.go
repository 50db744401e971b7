package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/allenai/bytefmt"

	"github.com/voltgpu/volt/api"
)

func printJSON(v interface{}) error {
	return jsonOut.Encode(v)
}

func printTableRow(cells ...interface{}) error {
	var cellStrings []string
	for _, cell := range cells {
		var formatted string
		if t, ok := cell.(time.Time); ok {
			if !t.IsZero() {
				formatted = t.Format(time.RFC3339)
			}
		} else {
			formatted = fmt.Sprintf("%v", cell)
		}
		cellStrings = append(cellStrings, formatted)
	}
	_, err := fmt.Fprintln(tableOut, strings.Join(cellStrings, "\t"))
	return err
}

func printOffers(offers []api.Offer) error {
	switch format {
	case formatJSON:
		return printJSON(offers)
	default:
		if err := printTableRow(
			"ID",
			"GPU",
			"COUNT",
			"GPU RAM",
			"DISK",
			"$/HR",
			"LOCATION",
			"RELIABILITY",
		); err != nil {
			return err
		}
		for _, offer := range offers {
			if err := printTableRow(
				offer.ID,
				offer.GPUName,
				offer.NumGPUs,
				bytefmt.New(offer.GPURAM*1000*1000, bytefmt.Metric),
				bytefmt.New(int64(offer.DiskSpace*1000*1000*1000), bytefmt.Metric),
				fmt.Sprintf("%.3f", offer.DPHTotal),
				offer.Geolocation,
				fmt.Sprintf("%.1f%%", offer.Reliability*100),
			); err != nil {
				return err
			}
		}
		return nil
	}
}

func printInstances(instances []api.Instance) error {
	switch format {
	case formatJSON:
		return printJSON(instances)
	default:
		if err := printTableRow(
			"ID",
			"LABEL",
			"GPU",
			"STATUS",
			"$/HR",
			"SSH",
			"STARTED",
		); err != nil {
			return err
		}
		for _, instance := range instances {
			var ssh string
			if instance.SSHHost != "" {
				ssh = fmt.Sprintf("%s:%d", instance.SSHHost, instance.SSHPort)
			}
			if err := printTableRow(
				instance.ID,
				instance.Label,
				fmt.Sprintf("%dx %s", instance.NumGPUs, instance.GPUName),
				instance.ActualStatus,
				fmt.Sprintf("%.3f", instance.DPHTotal),
				ssh,
				instance.StartTime,
			); err != nil {
				return err
			}
		}
		return nil
	}
}

func printUsers(users []api.User) error {
	switch format {
	case formatJSON:
		return printJSON(users)
	default:
		if err := printTableRow("ID", "USERNAME", "EMAIL", "BALANCE"); err != nil {
			return err
		}
		for _, user := range users {
			if err := printTableRow(
				user.ID,
				user.Username,
				user.Email,
				"$"+user.Balance.StringFixed(2),
			); err != nil {
				return err
			}
		}
		return nil
	}
}

func printSpend(summary *api.SpendSummary) error {
	switch format {
	case formatJSON:
		return printJSON(summary)
	default:
		fmt.Printf("Spend from %s to %s: $%s (%.1f GPU hours)\n",
			summary.Start.Format("2006-01-02"),
			summary.End.Format("2006-01-02"),
			summary.Total.StringFixed(2),
			summary.GPUHours)
		if err := printTableRow("DATE", "COST", "GPU HOURS", "INSTANCES"); err != nil {
			return err
		}
		for _, interval := range summary.Intervals {
			if err := printTableRow(
				interval.Start.Format("2006-01-02"),
				"$"+interval.Cost.StringFixed(2),
				fmt.Sprintf("%.1f", interval.GPUHours),
				interval.InstanceCount,
			); err != nil {
				return err
			}
		}
		return nil
	}
}
