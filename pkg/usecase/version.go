package usecase

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/drover/pkg/markdown"
	"github.com/m-mizutani/drover/pkg/utils/async"
)

type versionUseCase struct {
	github interfaces.GitClient
	store  interfaces.ReleaseStore
}

// NewVersion creates the Versioning Engine: it mirrors release state into
// GitHub as atomic commits and Pull Requests.
func NewVersion(githubClient interfaces.GitClient, store interfaces.ReleaseStore) interfaces.VersionUseCase {
	return &versionUseCase{
		github: githubClient,
		store:  store,
	}
}

// VersionRelease writes the release to each target repository: ensure the
// working branch, commit the document plus changed scripts atomically, and
// open (or reuse) a Pull Request against the discovered base branch.
// Repositories are independent; a partial result is reported, not rolled
// back.
func (uc *versionUseCase) VersionRelease(ctx context.Context, release *model.Release, repoURLs []string) (*model.BatchResult, error) {
	logger := ctxlog.From(ctx)

	if release == nil || release.DemandID == "" {
		return nil, goerr.New("release has no demand ID")
	}
	urls := repoURLs
	if len(urls) == 0 {
		urls = release.RepositoryURLs()
	}
	if len(urls) == 0 {
		return nil, goerr.New("release has no target repositories",
			goerr.V("demandId", release.DemandID))
	}

	doc := markdown.Render(release)
	outcomes := async.Collect(ctx, urls, func(ctx context.Context, url string) (*model.PullRequest, error) {
		return uc.versionOne(ctx, release, doc, url)
	})

	result := &model.BatchResult{}
	for i, o := range outcomes {
		if o.Err != nil {
			logger.Error("Failed to version release in repository",
				"demandId", release.DemandID, "repo", urls[i], "error", o.Err)
			result.AddFailure(o.Err)
			continue
		}
		result.AddSuccess(o.Value)
	}

	if len(result.PullRequests) > 0 && !release.IsVersioned {
		release.IsVersioned = true
		if err := uc.store.Put(ctx, release); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}

	logger.Info("Versioning finished",
		"demandId", release.DemandID,
		"repositories", result.Total,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"pullRequests", len(result.PullRequests),
	)
	return result, nil
}

func (uc *versionUseCase) versionOne(ctx context.Context, release *model.Release, doc, url string) (*model.PullRequest, error) {
	ref, err := model.ParseRepositoryURL(url)
	if err != nil {
		return nil, err
	}

	base, err := uc.github.EnsureBranch(ctx, ref.Owner, ref.Name, types.BranchWorking, types.BaseBranchCandidates)
	if err != nil {
		return nil, err
	}

	// Content-compare against the branch to avoid redundant commits.
	var files []model.CommitFile
	docPath := types.ReleaseFilePath(release.DemandID)
	cur, err := uc.github.GetFileContent(ctx, ref.Owner, ref.Name, docPath, types.BranchWorking)
	if err != nil {
		return nil, err
	}
	if cur == nil || cur.Text != doc {
		files = append(files, model.CommitFile{Path: docPath, Content: doc})
	}

	for _, sc := range release.Scripts {
		if sc.Content == "" {
			continue
		}
		path := types.ScriptPath(release.DemandID, sc.Name)
		cur, err := uc.github.GetFileContent(ctx, ref.Owner, ref.Name, path, types.BranchWorking)
		if err != nil {
			return nil, err
		}
		if cur == nil || cur.Text != sc.Content {
			files = append(files, model.CommitFile{Path: path, Content: sc.Content})
		}
	}

	if len(files) > 0 {
		protected, err := uc.github.IsBranchProtected(ctx, ref.Owner, ref.Name, types.BranchWorking)
		if err != nil {
			return nil, err
		}
		if protected {
			return nil, goerr.New("working branch is protected, cannot push release commit",
				goerr.T(types.TagAuth), goerr.V("repo", ref.FullName()),
				goerr.V("branch", types.BranchWorking))
		}

		sha, err := uc.github.CommitFiles(ctx, ref.Owner, ref.Name, types.BranchWorking,
			"Upsert release "+release.DemandID, files)
		if err != nil {
			return nil, err
		}
		ctxlog.From(ctx).Info("Committed release artifacts",
			"demandId", release.DemandID, "repo", ref.FullName(),
			"files", len(files), "commit", sha)
	}

	return uc.openPullRequest(ctx, ref, model.PullRequestParams{
		Owner: ref.Owner,
		Repo:  ref.Name,
		Title: "Release " + release.DemandID,
		Body:  release.Title,
		Head:  types.BranchWorking,
		Base:  base,
	})
}

// DeleteFromGitHub mirrors a release deletion. Repositories that do not hold
// the release document are skipped as already consistent.
func (uc *versionUseCase) DeleteFromGitHub(ctx context.Context, release *model.Release) (*model.BatchResult, error) {
	logger := ctxlog.From(ctx)

	if release == nil || release.DemandID == "" {
		return nil, goerr.New("release has no demand ID")
	}

	urls := release.RepositoryURLs()
	outcomes := async.Collect(ctx, urls, func(ctx context.Context, url string) (*model.PullRequest, error) {
		return uc.removeOne(ctx, release, url)
	})

	result := &model.BatchResult{}
	for i, o := range outcomes {
		switch {
		case o.Err != nil:
			logger.Error("Failed to remove release from repository",
				"demandId", release.DemandID, "repo", urls[i], "error", o.Err)
			result.AddFailure(o.Err)
		case o.Value == nil:
			result.AddSkip()
		default:
			result.AddSuccess(o.Value)
		}
	}

	logger.Info("Mirror delete finished",
		"demandId", release.DemandID,
		"repositories", result.Total,
		"succeeded", result.Succeeded,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}

// removeOne returns (nil, nil) when the repository has no copy to remove.
func (uc *versionUseCase) removeOne(ctx context.Context, release *model.Release, url string) (*model.PullRequest, error) {
	ref, err := model.ParseRepositoryURL(url)
	if err != nil {
		return nil, err
	}

	base, err := uc.github.FindBranch(ctx, ref.Owner, ref.Name, types.BaseBranchCandidates)
	if err != nil {
		return nil, err
	}
	if base == "" {
		return nil, nil
	}

	docPath := types.ReleaseFilePath(release.DemandID)
	sha, err := uc.github.GetFileSHA(ctx, ref.Owner, ref.Name, docPath, base)
	if err != nil {
		return nil, err
	}
	if sha == "" {
		return nil, nil
	}

	if _, err := uc.github.EnsureBranch(ctx, ref.Owner, ref.Name, types.BranchRemoval, []string{base}); err != nil {
		return nil, err
	}

	message := "Remove release " + release.DemandID
	if err := uc.github.DeleteFile(ctx, ref.Owner, ref.Name, types.BranchRemoval, docPath, message); err != nil {
		if !goerr.HasTag(err, types.TagNotFound) {
			return nil, err
		}
	}
	for _, sc := range release.Scripts {
		path := types.ScriptPath(release.DemandID, sc.Name)
		if err := uc.github.DeleteFile(ctx, ref.Owner, ref.Name, types.BranchRemoval, path, message); err != nil {
			if !goerr.HasTag(err, types.TagNotFound) {
				return nil, err
			}
		}
	}

	pr, err := uc.openPullRequest(ctx, ref, model.PullRequestParams{
		Owner: ref.Owner,
		Repo:  ref.Name,
		Title: "Remove Release " + release.DemandID,
		Head:  types.BranchRemoval,
		Base:  base,
	})
	if err != nil && goerr.HasTag(err, types.TagNoDiff) {
		// Stale removal branch with nothing ahead of base: drop it and
		// report the repository as already consistent.
		if derr := uc.github.DeleteBranch(ctx, ref.Owner, ref.Name, types.BranchRemoval); derr != nil {
			ctxlog.From(ctx).Warn("Failed to delete stale removal branch",
				"repo", ref.FullName(), "error", derr)
		}
		return nil, nil
	}
	return pr, err
}

// openPullRequest creates the PR, treating an already-open PR for the same
// head/base as success. A no-diff condition stays an error: it usually means
// the commit silently produced nothing.
func (uc *versionUseCase) openPullRequest(ctx context.Context, ref model.RepositoryRef, params model.PullRequestParams) (*model.PullRequest, error) {
	pr, err := uc.github.CreatePullRequest(ctx, params)
	if err == nil {
		ctxlog.From(ctx).Info("Opened pull request",
			"repo", ref.FullName(), "number", pr.Number, "head", params.Head, "base", params.Base)
		return pr, nil
	}

	if goerr.HasTag(err, types.TagConflict) {
		existing, ferr := uc.github.FindOpenPullRequest(ctx, ref.Owner, ref.Name, params.Head, params.Base)
		if ferr == nil && existing != nil {
			ctxlog.From(ctx).Info("Reusing open pull request",
				"repo", ref.FullName(), "number", existing.Number)
			return existing, nil
		}
	}
	return nil, err
}
