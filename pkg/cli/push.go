package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/drover/pkg/cli/config"
	"github.com/m-mizutani/drover/pkg/usecase"
)

func cmdPush() *cli.Command {
	var (
		githubCfg config.GitHub
		storeCfg  config.Store
		demandID  string
		repos     []string
	)

	flags := append(githubCfg.Flags(), storeCfg.Flags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "demand",
			Usage:       "Demand ID of the release to push",
			Required:    true,
			Destination: &demandID,
			Sources:     cli.EnvVars("DROVER_DEMAND_ID"),
		},
		&cli.StringSliceFlag{
			Name:        "repo",
			Usage:       "Target repository URL (repeatable, defaults to the release's repositories)",
			Destination: &repos,
		},
	)

	return &cli.Command{
		Name:  "push",
		Usage: "Version a release: commit it to GitHub and open pull requests",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			githubClient, err := githubCfg.Build()
			if err != nil {
				return err
			}

			store, closeStore, err := storeCfg.Build(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeStore(); err != nil {
					logger.Error("Failed to close store", slog.Any("error", err))
				}
			}()

			release, err := store.GetByDemandID(ctx, demandID)
			if err != nil {
				return err
			}
			if release == nil {
				return goerr.New("release not found", goerr.V("demandId", demandID))
			}

			versionUC := usecase.NewVersion(githubClient, store)
			result, err := versionUC.VersionRelease(ctx, release, repos)
			if err != nil {
				return err
			}

			for _, pr := range result.PullRequests {
				logger.Info("Pull request", slog.Int("number", pr.Number), slog.String("url", pr.URL))
			}
			logger.Info("Push complete",
				slog.String("demandId", demandID),
				slog.Int("repositories", result.Total),
				slog.Int("succeeded", result.Succeeded),
				slog.Int("failed", result.Failed),
			)
			if !result.Success() {
				return goerr.New("push failed on a majority of repositories",
					goerr.V("demandId", demandID), goerr.V("failed", result.Failed))
			}
			return nil
		},
	}
}
