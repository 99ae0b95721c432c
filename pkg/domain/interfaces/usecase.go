package interfaces

import (
	"context"

	"github.com/m-mizutani/drover/pkg/domain/model"
)

// SyncUseCase pulls release files from GitHub and reconciles them into the
// Release Store.
type SyncUseCase interface {
	// SyncAll runs a full pass over every accessible repository.
	SyncAll(ctx context.Context) (*model.SyncReport, error)

	// SyncOne refreshes a single release from its known repositories.
	SyncOne(ctx context.Context, demandID string) error
}

// VersionUseCase mirrors release state from the Release Store into GitHub as
// commits and Pull Requests.
type VersionUseCase interface {
	// VersionRelease writes the release document and changed scripts to the
	// working branch of each target repository as one commit, then opens
	// (or reuses) a Pull Request against the base branch. An empty
	// repoURLs targets the release's own repositories.
	VersionRelease(ctx context.Context, release *model.Release, repoURLs []string) (*model.BatchResult, error)

	// DeleteFromGitHub mirrors a release deletion: for every repository
	// holding the release document, it opens a removal Pull Request
	// deleting the document and all known script paths.
	DeleteFromGitHub(ctx context.Context, release *model.Release) (*model.BatchResult, error)
}
