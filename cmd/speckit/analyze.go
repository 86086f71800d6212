//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/urfave/cli/v3"

	speckit "github.com/airnub/speckit-internal-sub001"
	"github.com/airnub/speckit-internal-sub001/internal/metrics"
	"github.com/airnub/speckit-internal-sub001/internal/output"
	"github.com/airnub/speckit-internal-sub001/internal/rules"
	"github.com/airnub/speckit-internal-sub001/internal/source"
)

var (
	errMissingLogs      = errors.New("expected at least one argument: log file path or \"-\" for stdin")
	errInvalidMeta      = errors.New("metadata must be key=value")
	errLabelsMatched    = errors.New("failure labels matched")
	errThresholdsMissed = errors.New("metrics missed their thresholds")
)

// analysisFlags are shared by every command that runs the analyzer.
func analysisFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "rules",
			Aliases: []string{"r"},
			Usage:   "Failure rule document (YAML or JSON)",
			Sources: cli.EnvVars("SPECKIT_RULES"),
		},
		&cli.StringFlag{
			Name:    "prompt",
			Aliases: []string{"p"},
			Usage:   "Task prompt to derive requirements from (default: detected from the logs)",
		},
		&cli.StringFlag{
			Name:  "run-id",
			Usage: "Run identifier (default: random UUID)",
		},
		&cli.StringSliceFlag{
			Name:    "meta",
			Aliases: []string{"m"},
			Usage:   "Artifact metadata as key=value, repeatable",
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"j"},
			Usage:   "Number of log files read concurrently",
			Value:   runtime.NumCPU(),
		},
		&cli.BoolFlag{
			Name:  "stream",
			Usage: "Hand logs to the analyzer as soon as each one is read (source order follows read completion)",
		},
		&cli.IntFlag{
			Name:  "sanitizer-hits",
			Usage: "Number of secrets redacted from the logs upstream, shown as an extra metric",
			Value: -1,
		},
	}
}

func analyzeCommand() *cli.Command {
	flags := append(analysisFlags(),
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: console, json, markdown",
			Value:   "console",
			Sources: cli.EnvVars("SPECKIT_FORMAT"),
		},
		&cli.BoolFlag{
			Name:    "debug",
			Aliases: []string{"D"},
			Usage:   "Include the full result in output",
		},
		&cli.StringFlag{
			Name:    "artifact",
			Aliases: []string{"a"},
			Usage:   "Write the run artifact as JSON to this path (\"-\" prints it instead of the summary)",
		},
		&cli.BoolFlag{
			Name:  "fail-on-labels",
			Usage: "Exit with an error when any failure label matched",
		},
		&cli.BoolFlag{
			Name:  "fail-on-thresholds",
			Usage: "Exit with an error when any metric misses its threshold",
		},
	)

	return &cli.Command{
		Name:      "analyze",
		Usage:     "Analyze run logs for requirement coverage, quality metrics and failure labels",
		ArgsUsage: "<file | -> [file...]",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() < 1 {
				return fmt.Errorf("%w: got %d", errMissingLogs, cmd.NArg())
			}

			result, err := runAnalysis(ctx, cmd)
			if err != nil {
				return err
			}

			artifactPath := cmd.String("artifact")
			if artifactPath != "" {
				if err := writeArtifact(artifactPath, result); err != nil {
					return err
				}
			}

			if artifactPath != "-" {
				object := strings.Join(cmd.Args().Slice(), ", ")
				if err := outputResult(object, result, cmd.String("format"), cmd.Bool("debug")); err != nil {
					return err
				}
			}

			return gate(result, cmd.Bool("fail-on-labels"), cmd.Bool("fail-on-thresholds"))
		},
	}
}

func optionsFromFlags(cmd *cli.Command) (speckit.Options, error) {
	opts := speckit.DefaultOptions()
	opts.RunID = cmd.String("run-id")
	opts.Prompt = cmd.String("prompt")

	if path := cmd.String("rules"); path != "" {
		opts.Rules = rules.Load(path)
	}

	meta, err := parseMetadata(cmd.StringSlice("meta"))
	if err != nil {
		return opts, err
	}

	opts.Metadata = meta

	if hits := cmd.Int("sanitizer-hits"); hits >= 0 {
		opts.Extras = append(opts.Extras, metrics.Extra{Key: metrics.KeySanitizerHits, Value: float64(hits)})
	}

	return opts, nil
}

func runAnalysis(ctx context.Context, cmd *cli.Command) (*speckit.Result, error) {
	opts, err := optionsFromFlags(cmd)
	if err != nil {
		return nil, err
	}

	paths := cmd.Args().Slice()
	workers := cmd.Int("workers")

	if !cmd.Bool("stream") {
		opts.Sources, err = source.LoadFiles(ctx, paths, workers)
		if err != nil {
			return nil, err
		}

		return speckit.Analyze(ctx, opts)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, wait := source.Stream(ctx, paths, workers)
	opts.Stream = stream

	var result *speckit.Result

	for event, err := range speckit.AnalyzeStream(ctx, opts) {
		if err != nil {
			cancel()
			_ = wait()

			return nil, err
		}

		slog.Debug("stage finished",
			"stage", event.Stage.String(),
			"sources", event.Sources,
			"events", event.Events,
			"requirements", event.Requirements,
			"labels", event.Labels,
		)

		if event.Stage == speckit.StageComplete {
			result = event.Result
		}
	}

	if err := wait(); err != nil {
		return nil, err
	}

	if result == nil {
		return nil, speckit.ErrIncomplete
	}

	return result, nil
}

func parseMetadata(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	meta := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%w: %q", errInvalidMeta, pair)
		}

		meta[strings.TrimSpace(key)] = value
	}

	return meta, nil
}

func writeArtifact(path string, result *speckit.Result) error {
	if path == "-" {
		return output.EncodeArtifact(os.Stdout, result.Artifact)
	}

	file, err := os.Create(path) //nolint:gosec // CLI tool writes to a user-specified path
	if err != nil {
		return fmt.Errorf("creating artifact file: %w", err)
	}
	defer file.Close()

	if err := output.EncodeArtifact(file, result.Artifact); err != nil {
		return err
	}

	return file.Close()
}

func gate(result *speckit.Result, onLabels, onThresholds bool) error {
	if onLabels && len(result.Artifact.Labels) > 0 {
		return fmt.Errorf("%w: %s", errLabelsMatched, strings.Join(result.Artifact.Labels, ", "))
	}

	if !onThresholds {
		return nil
	}

	var missed []string

	for _, row := range result.Rows {
		if !row.Met {
			missed = append(missed, fmt.Sprintf("%s=%s", row.Key, row.Value))
		}
	}

	if len(missed) > 0 {
		return fmt.Errorf("%w: %s", errThresholdsMissed, strings.Join(missed, ", "))
	}

	return nil
}
