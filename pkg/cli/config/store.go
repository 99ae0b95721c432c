package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/infra/store/firestore"
	"github.com/m-mizutani/drover/pkg/infra/store/memory"
)

// Store holds release store configuration
type Store struct {
	Type       string
	ProjectID  string
	DatabaseID string
	Collection string
}

// Flags returns CLI flags for store configuration
func (c *Store) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "store",
			Usage:       "Release store backend (memory, firestore)",
			Value:       "memory",
			Destination: &c.Type,
			Sources:     cli.EnvVars("DROVER_STORE"),
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Google Cloud project ID for Firestore",
			Destination: &c.ProjectID,
			Sources:     cli.EnvVars("DROVER_FIRESTORE_PROJECT_ID"),
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore database ID (default database if empty)",
			Destination: &c.DatabaseID,
			Sources:     cli.EnvVars("DROVER_FIRESTORE_DATABASE_ID"),
		},
		&cli.StringFlag{
			Name:        "firestore-collection",
			Usage:       "Firestore collection for releases",
			Value:       firestore.DefaultCollection,
			Destination: &c.Collection,
			Sources:     cli.EnvVars("DROVER_FIRESTORE_COLLECTION"),
		},
	}
}

// Build creates a ReleaseStore from the configuration. The returned closer
// releases backend resources and is safe to call once.
func (c *Store) Build(ctx context.Context) (interfaces.ReleaseStore, func() error, error) {
	switch c.Type {
	case "memory":
		return memory.New(), func() error { return nil }, nil

	case "firestore":
		if c.ProjectID == "" {
			return nil, nil, goerr.New("firestore-project-id is required for firestore store")
		}
		store, err := firestore.New(ctx, c.ProjectID, c.DatabaseID, c.Collection)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	default:
		return nil, nil, goerr.New("unknown store backend", goerr.V("store", c.Type))
	}
}
