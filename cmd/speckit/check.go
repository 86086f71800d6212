//nolint:wrapcheck
package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Print one verification check per derived requirement",
		ArgsUsage: "<file | -> [file...]",
		Flags:     analysisFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() < 1 {
				return fmt.Errorf("%w: got %d", errMissingLogs, cmd.NArg())
			}

			result, err := runAnalysis(ctx, cmd)
			if err != nil {
				return err
			}

			for idx, check := range result.Checks {
				fmt.Printf("%s\t%s\n", result.Artifact.Requirements[idx].ID, check)
			}

			return nil
		},
	}
}
