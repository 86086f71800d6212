package main

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"
	"gonum.org/v1/gonum/floats"

	"github.com/airnub/speckit-internal-sub001/internal/trend"
	"github.com/airnub/speckit-internal-sub001/internal/types"
)

var errTrendArgs = errors.New("expected at least one argument: path to report.jsonl")

func trendCommand() *cli.Command {
	return &cli.Command{
		Name:      "trend",
		Usage:     "Show per-label failure trends across one or more JSONL reports",
		ArgsUsage: "<report.jsonl> [report.jsonl...]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "window",
				Aliases: []string{"w"},
				Usage:   "Rolling average window in days (1 disables smoothing)",
				Value:   7,
			},
			&cli.IntFlag{
				Name:  "width",
				Usage: "Maximum sparkline width (0 for one glyph per day)",
				Value: 30,
			},
			&cli.StringFlag{
				Name:  "label",
				Usage: "Only show this label",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() < 1 {
				return errTrendArgs
			}

			var artifacts []types.RunArtifact

			for _, path := range cmd.Args().Slice() {
				records, err := readRecords(path)
				if err != nil {
					return err
				}

				for _, rec := range records {
					if rec.Artifact != nil {
						artifacts = append(artifacts, *rec.Artifact)
					}
				}
			}

			printTrend(artifacts, cmd.Int("window"), cmd.Int("width"), cmd.String("label"))

			return nil
		},
	}
}

func printTrend(artifacts []types.RunArtifact, window, width int, only string) {
	series := trend.FillGaps(trend.FromArtifacts(artifacts))

	fmt.Println("=== Speckit Label Trend ===")
	fmt.Println()

	if len(series.Days) == 0 {
		fmt.Println("No analyzed runs")

		return
	}

	fmt.Printf("Days:  %s .. %s (%d)\n",
		series.Days[0].Format("2006-01-02"),
		series.Days[len(series.Days)-1].Format("2006-01-02"),
		len(series.Days),
	)
	fmt.Printf("Runs:  %d\n", len(artifacts))
	fmt.Println()

	labels := series.Labels
	if only != "" {
		if !slices.Contains(labels, only) {
			fmt.Printf("No runs matched by %s\n", only)

			return
		}

		labels = []string{only}
	}

	if len(labels) == 0 {
		fmt.Println("No failure labels matched")

		return
	}

	for _, label := range labels {
		values := series.Values[label]
		smoothed := trend.RollingAverage(values, window)

		fmt.Printf("  %-24s %s  total: %.0f  latest avg: %.2f\n",
			label,
			trend.Sparkline(smoothed, width),
			floats.Sum(values),
			smoothed[len(smoothed)-1],
		)
	}
}
