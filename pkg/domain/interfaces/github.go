package interfaces

import (
	"context"

	"github.com/m-mizutani/drover/pkg/domain/model"
)

// GitClient defines the Git provider operations the engines depend on. All
// implementations normalize provider errors into tagged errors (see
// pkg/domain/types); a missing file or branch is reported as a nil/empty
// result, not an error.
type GitClient interface {
	// ListRepositories returns all repositories the caller may push to.
	// Pagination is handled internally and capped.
	ListRepositories(ctx context.Context) ([]model.RepositoryRef, error)

	// GetFileContent returns the decoded file at path on ref, or nil when
	// the file (or the ref) does not exist.
	GetFileContent(ctx context.Context, owner, repo, path, ref string) (*model.FileContent, error)

	// GetFileSHA returns the current blob SHA of path on ref, or "" when
	// absent. Required before any update to avoid unintentional overwrite.
	GetFileSHA(ctx context.Context, owner, repo, path, ref string) (string, error)

	// ListDirectory lists the entries of a directory on ref. A missing
	// directory or ref yields an empty result.
	ListDirectory(ctx context.Context, owner, repo, dir, ref string) ([]model.DirEntry, error)

	// CreateOrUpdateFile upserts a single file on branch. Writing identical
	// content is a no-op; a SHA conflict is retried with backoff before
	// being surfaced.
	CreateOrUpdateFile(ctx context.Context, owner, repo, branch, path, message, content string) error

	// DeleteFile removes a single file from branch.
	DeleteFile(ctx context.Context, owner, repo, branch, path, message string) error

	// FindBranch returns the first branch of candidates that exists, or ""
	// when none do.
	FindBranch(ctx context.Context, owner, repo string, candidates []string) (string, error)

	// EnsureBranch creates branch name from the first existing base branch
	// in basePreference (falling back to the repository default) and
	// returns the base branch used. Creating an existing branch succeeds.
	EnsureBranch(ctx context.Context, owner, repo, name string, basePreference []string) (string, error)

	// DeleteBranch removes a branch. Deleting a missing branch succeeds.
	DeleteBranch(ctx context.Context, owner, repo, name string) error

	// IsBranchProtected reports whether branch has a protection rule.
	IsBranchProtected(ctx context.Context, owner, repo, branch string) (bool, error)

	// CommitFiles publishes all files as one commit on branch, built from
	// blob/tree/commit/ref primitives. The branch ref is re-validated
	// before the update; on drift the whole build is retried a bounded
	// number of times. Returns the new commit SHA.
	CommitFiles(ctx context.Context, owner, repo, branch, message string, files []model.CommitFile) (string, error)

	// CreatePullRequest opens a Pull Request. An already-open PR for the
	// same head/base is reported as a conflict-tagged error; head equal to
	// base (no commits ahead) as a no-diff-tagged error.
	CreatePullRequest(ctx context.Context, params model.PullRequestParams) (*model.PullRequest, error)

	// FindOpenPullRequest returns the open PR for head/base, or nil.
	FindOpenPullRequest(ctx context.Context, owner, repo, head, base string) (*model.PullRequest, error)

	// CompareBranches returns how many commits head is ahead of base.
	CompareBranches(ctx context.Context, owner, repo, base, head string) (int, error)

	// FirstCommit returns the oldest commit touching path on ref, or nil
	// when history is unavailable. The history walk is capped.
	FirstCommit(ctx context.Context, owner, repo, path, ref string) (*model.CommitInfo, error)

	// LastCommit returns the most recent commit touching path on ref, or
	// nil when history is unavailable.
	LastCommit(ctx context.Context, owner, repo, path, ref string) (*model.CommitInfo, error)
}
