package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	ghinfra "github.com/m-mizutani/drover/pkg/infra/github"
)

// GitHub holds GitHub client configuration. Either a personal access token
// or a GitHub App (app ID + installation ID + private key) must be given.
type GitHub struct {
	Token          string `masq:"secret"`
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
}

// Flags returns CLI flags for GitHub configuration
func (c *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-token",
			Usage:       "GitHub personal access token",
			Destination: &c.Token,
			Sources:     cli.EnvVars("DROVER_GITHUB_TOKEN"),
		},
		&cli.Int64Flag{
			Name:        "github-app-id",
			Usage:       "GitHub App ID",
			Destination: &c.AppID,
			Sources:     cli.EnvVars("DROVER_GITHUB_APP_ID"),
		},
		&cli.Int64Flag{
			Name:        "github-installation-id",
			Usage:       "GitHub App installation ID",
			Destination: &c.InstallationID,
			Sources:     cli.EnvVars("DROVER_GITHUB_INSTALLATION_ID"),
		},
		&cli.StringFlag{
			Name:        "github-private-key",
			Usage:       "Path to GitHub App private key (PEM)",
			Destination: &c.PrivateKeyPath,
			Sources:     cli.EnvVars("DROVER_GITHUB_PRIVATE_KEY"),
		},
	}
}

// Build creates a GitClient from the configuration.
func (c *GitHub) Build() (interfaces.GitClient, error) {
	if c.AppID != 0 || c.InstallationID != 0 || c.PrivateKeyPath != "" {
		if c.AppID == 0 || c.InstallationID == 0 || c.PrivateKeyPath == "" {
			return nil, goerr.New("GitHub App auth requires app ID, installation ID and private key")
		}
		key, err := os.ReadFile(c.PrivateKeyPath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read GitHub App private key",
				goerr.V("path", c.PrivateKeyPath))
		}
		return ghinfra.NewAppClient(c.AppID, c.InstallationID, key)
	}

	if c.Token == "" {
		return nil, goerr.New("either github-token or GitHub App credentials are required")
	}
	return ghinfra.NewClient(ghinfra.NewAuthContext(c.Token)), nil
}
