package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/drover/pkg/cli/config"
	"github.com/m-mizutani/drover/pkg/usecase"
)

func cmdSync() *cli.Command {
	var (
		githubCfg config.GitHub
		storeCfg  config.Store
		demandID  string
	)

	flags := append(githubCfg.Flags(), storeCfg.Flags()...)
	flags = append(flags, &cli.StringFlag{
		Name:        "demand",
		Usage:       "Sync only the release with this demand ID",
		Destination: &demandID,
		Sources:     cli.EnvVars("DROVER_DEMAND_ID"),
	})

	return &cli.Command{
		Name:  "sync",
		Usage: "Pull release files from GitHub into the release store",
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

			syncUC := usecase.NewSync(githubClient, store)

			if demandID != "" {
				if err := syncUC.SyncOne(ctx, demandID); err != nil {
					return err
				}
				logger.Info("Sync complete", slog.String("demandId", demandID))
				return nil
			}

			report, err := syncUC.SyncAll(ctx)
			if err != nil {
				return err
			}
			logger.Info("Sync complete",
				slog.Int("repositories", report.Repositories),
				slog.Int("discovered", report.Discovered),
				slog.Int("operations", report.Operations),
				slog.Int("failed", report.Failed),
				slog.Int("pruned", report.Pruned),
			)
			return nil
		},
	}
}
