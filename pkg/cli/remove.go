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

func cmdRemove() *cli.Command {
	var (
		githubCfg config.GitHub
		storeCfg  config.Store
		demandID  string
		keepLocal bool
	)

	flags := append(githubCfg.Flags(), storeCfg.Flags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "demand",
			Usage:       "Demand ID of the release to remove",
			Required:    true,
			Destination: &demandID,
			Sources:     cli.EnvVars("DROVER_DEMAND_ID"),
		},
		&cli.BoolFlag{
			Name:        "keep-local",
			Usage:       "Open removal pull requests but keep the release in the store",
			Destination: &keepLocal,
		},
	)

	return &cli.Command{
		Name:  "remove",
		Usage: "Remove a release from GitHub via removal pull requests",
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
			result, err := versionUC.DeleteFromGitHub(ctx, release)
			if err != nil {
				return err
			}

			logger.Info("Remove complete",
				slog.String("demandId", demandID),
				slog.Int("repositories", result.Total),
				slog.Int("succeeded", result.Succeeded),
				slog.Int("skipped", result.Skipped),
				slog.Int("failed", result.Failed),
			)
			if !result.Success() {
				return goerr.New("removal failed on a majority of repositories",
					goerr.V("demandId", demandID), goerr.V("failed", result.Failed))
			}

			if !keepLocal {
				if err := store.Delete(ctx, demandID); err != nil {
					return err
				}
				logger.Info("Release deleted from store", slog.String("demandId", demandID))
			}
			return nil
		},
	}
}
