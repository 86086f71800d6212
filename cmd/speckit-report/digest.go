package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"
	"gonum.org/v1/gonum/stat"

	"github.com/airnub/speckit-internal-sub001/internal/metrics"
	"github.com/airnub/speckit-internal-sub001/internal/output"
	"github.com/airnub/speckit-internal-sub001/internal/rules"
	"github.com/airnub/speckit-internal-sub001/internal/types"
)

const maxLineSize = 64 * 1024 * 1024

func digestCommand() *cli.Command {
	return &cli.Command{
		Name:      "digest",
		Usage:     "Produce a summary digest from a speckit JSONL report",
		ArgsUsage: "<report.jsonl>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "label",
				Usage: "Show runs matched by a specific failure label",
			},
			&cli.StringFlag{
				Name:    "rules",
				Aliases: []string{"r"},
				Usage:   "Failure rule document used to narrow label hints",
				Sources: cli.EnvVars("SPECKIT_RULES"),
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return errors.New("expected exactly one argument: path to report.jsonl")
			}

			var set []rules.Rule
			if path := cmd.String("rules"); path != "" {
				set = rules.Load(path)
			}

			return runDigest(cmd.Args().First(), cmd.String("label"), set)
		},
	}
}

func runDigest(reportPath, labelFilter string, set []rules.Rule) error {
	records, err := readRecords(reportPath)
	if err != nil {
		return err
	}

	printDigest(records)

	if labelFilter != "" {
		printLabelDetail(records, labelFilter, set)
	}

	return nil
}

// readRecords decodes a JSONL report. Lines that cannot be decoded, or that were written with
// another artifact schema, count as failed records.
func readRecords(path string) ([]digestRecord, error) {
	file, err := os.Open(path) //nolint:gosec // CLI tool opens user-specified report files
	if err != nil {
		return nil, fmt.Errorf("opening report: %w", err)
	}
	defer file.Close()

	var records []digestRecord

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), maxLineSize)

	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}

		var raw rawRecord
		if err := json.Unmarshal(scanner.Bytes(), &raw); err != nil {
			records = append(records, digestRecord{Error: "parse error"})

			continue
		}

		record := digestRecord{File: raw.File, Error: raw.Error}

		if record.Error == "" && len(raw.Artifact) > 0 {
			artifact, err := output.DecodeArtifact(raw.Artifact)
			if err != nil {
				record.Error = err.Error()
			} else {
				record.Artifact = artifact
			}
		}

		if record.Error == "" && record.Artifact == nil {
			record.Error = "missing artifact"
		}

		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}

	return records, nil
}

func printDigest(records []digestRecord) {
	total := len(records)
	failed := 0
	statuses := map[types.Status]int{}
	labelStats := map[string]*labelBreakdown{}

	var (
		coverage, backtrack, precision, locality, reflection, ttfp []float64
	)

	for _, rec := range records {
		if rec.Error != "" || rec.Artifact == nil {
			failed++

			continue
		}

		for _, req := range rec.Artifact.Requirements {
			statuses[req.Status]++
		}

		m := rec.Artifact.Metrics
		coverage = append(coverage, m.ReqCoverage)
		backtrack = append(backtrack, m.BacktrackRatio)
		precision = append(precision, m.ToolPrecisionAt1)
		locality = append(locality, m.EditLocality)
		reflection = append(reflection, m.ReflectionDensity)

		if m.TTFPSeconds != nil {
			ttfp = append(ttfp, *m.TTFPSeconds)
		}

		for _, label := range rec.Artifact.Labels {
			breakdown, ok := labelStats[label]
			if !ok {
				breakdown = &labelBreakdown{Label: label}
				labelStats[label] = breakdown
			}

			breakdown.Total++
		}
	}

	analyzed := total - failed

	fmt.Println("=== Speckit Report Digest ===")
	fmt.Println()
	fmt.Printf("Total runs:  %d\n", total)
	fmt.Printf("Failed:      %d\n", failed)
	fmt.Printf("Analyzed:    %d\n", analyzed)
	fmt.Println()

	fmt.Println("--- Requirements ---")
	fmt.Printf("  Satisfied:  %d\n", statuses[types.StatusSatisfied])
	fmt.Printf("  Violated:   %d\n", statuses[types.StatusViolated])
	fmt.Printf("  Unknown:    %d\n", statuses[types.StatusUnknown])
	fmt.Println()

	if analyzed > 0 {
		thresholds := metrics.DefaultThresholds()

		fmt.Println("--- Mean Metrics ---")
		printMean(thresholds, metrics.KeyReqCoverage, coverage)
		printMean(thresholds, metrics.KeyBacktrackRatio, backtrack)
		printMean(thresholds, metrics.KeyToolPrecisionAt1, precision)
		printMean(thresholds, metrics.KeyEditLocality, locality)
		printMean(thresholds, metrics.KeyReflectionDensity, reflection)
		printMean(thresholds, metrics.KeyTTFPSeconds, ttfp)
		fmt.Printf("  Runs with a first pass:  %d\n", len(ttfp))
		fmt.Println()
	}

	fmt.Println("--- Failure Labels ---")

	breakdowns := make([]*labelBreakdown, 0, len(labelStats))
	for _, bd := range labelStats {
		breakdowns = append(breakdowns, bd)
	}

	slices.SortFunc(breakdowns, func(a, b *labelBreakdown) int {
		if a.Total != b.Total {
			return b.Total - a.Total
		}

		return strings.Compare(a.Label, b.Label)
	})

	if len(breakdowns) == 0 {
		fmt.Println("  none")
	}

	for _, bd := range breakdowns {
		fmt.Printf("  %s: %d runs\n", bd.Label, bd.Total)
	}
}

func printMean(thresholds metrics.Thresholds, key string, values []float64) {
	threshold, _ := thresholds.Lookup(key)

	label := threshold.Label
	if label == "" {
		label = key
	}

	if len(values) == 0 {
		fmt.Printf("  %s:  n/a\n", label)

		return
	}

	mean := stat.Mean(values, nil)

	row := metrics.Summarize(types.Metrics{}, []metrics.Extra{{Key: key, Label: label, Value: mean}}, thresholds)
	extra := row[len(row)-1]

	marker := ""

	switch {
	case extra.Met:
	case threshold.HigherIsBetter:
		marker = "  (below target)"
	default:
		marker = "  (above limit)"
	}

	fmt.Printf("  %s:  %s%s\n", label, extra.Value, marker)
}

// printLabelDetail lists the runs carrying label. With a rule set the hints are those of the
// label's rules; without one they are every hint recorded on those runs.
func printLabelDetail(records []digestRecord, label string, set []rules.Rule) {
	fmt.Println()

	var (
		files []string
		hints []string
	)

	for _, rec := range records {
		if rec.Artifact == nil || !slices.Contains(rec.Artifact.Labels, label) {
			continue
		}

		file := rec.File
		if file == "" {
			file = "(redacted)"
		}

		files = append(files, file)

		if len(set) > 0 {
			continue
		}

		for _, hint := range rec.Artifact.Hints {
			if !slices.Contains(hints, hint) {
				hints = append(hints, hint)
			}
		}
	}

	heading := "Hints recorded on these runs:"
	if len(set) > 0 {
		heading = "Hints:"
		hints = rules.Hints([]string{label}, set)
	}

	if len(files) == 0 {
		fmt.Printf("No runs matched by %s\n", label)

		return
	}

	fmt.Printf("=== %s: %d runs ===\n\n", label, len(files))

	for _, file := range files {
		fmt.Printf("  %s\n", file)
	}

	if len(hints) > 0 {
		fmt.Println()
		fmt.Println("  " + heading)

		for _, hint := range hints {
			fmt.Printf("    %s\n", hint)
		}
	}
}
