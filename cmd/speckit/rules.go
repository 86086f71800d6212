//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/farcloser/primordium/fault"
	"github.com/farcloser/primordium/format"
	"github.com/urfave/cli/v3"

	"github.com/airnub/speckit-internal-sub001/internal/normalize"
	"github.com/airnub/speckit-internal-sub001/internal/rules"
	"github.com/airnub/speckit-internal-sub001/internal/source"
	"github.com/airnub/speckit-internal-sub001/internal/types"
)

var errRulesArgs = errors.New("expected a rule document path, optionally followed by log files")

func rulesCommand() *cli.Command {
	return &cli.Command{
		Name:      "rules",
		Usage:     "Validate a failure rule document, and optionally try it against logs",
		ArgsUsage: "<rules.yaml> [log...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: console, json, markdown",
				Value:   "console",
				Sources: cli.EnvVars("SPECKIT_FORMAT"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() < 1 {
				return errRulesArgs
			}

			path := cmd.Args().First()

			data, err := os.ReadFile(path) //nolint:gosec // CLI tool opens user-specified rule files
			if err != nil {
				return fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
			}

			set, err := rules.Parse(data)
			if err != nil {
				return err
			}

			meta := map[string]any{
				"rules":  len(set),
				"labels": toAny(rules.Labels(set)),
			}

			if logs := cmd.Args().Tail(); len(logs) > 0 {
				sources, err := source.LoadFiles(ctx, logs, len(logs))
				if err != nil {
					return err
				}

				normalized := make([]types.NormalizedLog, 0, len(sources))
				for _, src := range sources {
					normalized = append(normalized, normalize.Source(src))
				}

				matched := rules.Apply(normalize.Merge(normalized...), set)
				meta["matched"] = toAny(matched)
				meta["hints"] = toAny(rules.Hints(matched, set))
			}

			formatter, err := format.GetFormatter(cmd.String("format"))
			if err != nil {
				return err
			}

			return formatter.PrintAll([]*format.Data{{Object: path, Meta: meta}}, os.Stdout)
		},
	}
}
