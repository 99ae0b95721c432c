package usecase

import (
	"context"
	"slices"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/drover/pkg/markdown"
	"github.com/m-mizutani/drover/pkg/utils/async"
)

type syncUseCase struct {
	github interfaces.GitClient
	store  interfaces.ReleaseStore
}

// NewSync creates the Synchronization Engine: it pulls release files from
// GitHub branches and reconciles them into the Release Store.
func NewSync(githubClient interfaces.GitClient, store interfaces.ReleaseStore) interfaces.SyncUseCase {
	return &syncUseCase{
		github: githubClient,
		store:  store,
	}
}

// foundFile is one release document after branch-precedence resolution:
// the winning copy of a file name within one repository.
type foundFile struct {
	repo       model.RepositoryRef
	file       model.DirEntry
	branch     string
	fromBase   bool
	seenOnBase bool
}

// SyncAll runs a full reconciliation pass: discover release files on the
// working and base branches of every accessible repository, apply the
// winning copies to the store, then prune local records that are provably
// gone upstream.
func (uc *syncUseCase) SyncAll(ctx context.Context) (*model.SyncReport, error) {
	logger := ctxlog.From(ctx)
	report := &model.SyncReport{}

	repos, err := uc.github.ListRepositories(ctx)
	if err != nil {
		return nil, err
	}
	report.Repositories = len(repos)
	logger.Info("Starting sync pass", "repositories", len(repos))

	discoveries := async.Collect(ctx, repos, uc.discoverRepo)
	var found []foundFile
	for _, d := range discoveries {
		report.Operations++
		if d.Err != nil {
			report.Failed++
			report.Errors = append(report.Errors, d.Err.Error())
			continue
		}
		found = append(found, d.Value...)
	}
	report.Discovered = len(found)

	// Fetch, parse and enrich concurrently; merge into the store
	// sequentially so overlapping demand IDs accumulate instead of racing.
	loaded := async.Collect(ctx, found, uc.loadFile)
	seen := make(map[string]bool)
	for i, l := range loaded {
		report.Operations++
		if l.Err != nil {
			report.Failed++
			report.Errors = append(report.Errors, l.Err.Error())
			continue
		}

		updated, err := uc.applyRelease(ctx, found[i], l.Value)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		seen[strings.ToLower(l.Value.DemandID)] = true
		if updated {
			report.Updated++
		} else {
			report.Skipped++
		}
	}

	uc.prune(ctx, report, seen)

	logger.Info("Sync pass finished",
		"discovered", report.Discovered,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"pruned", report.Pruned,
		"failed", report.Failed,
	)
	return report, nil
}

// SyncOne refreshes a single release from its known repositories, applying
// the same precedence and enrichment rules as a full pass.
func (uc *syncUseCase) SyncOne(ctx context.Context, demandID string) error {
	existing, err := uc.store.GetByDemandID(ctx, demandID)
	if err != nil {
		return err
	}
	if existing == nil {
		return goerr.New("release not found", goerr.T(types.TagNotFound),
			goerr.V("demandId", demandID))
	}
	if len(existing.Repositories) == 0 {
		return nil
	}

	var firstErr error
	applied := 0
	for _, repo := range existing.Repositories {
		f, err := uc.probeRepo(ctx, repo, demandID)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if f == nil {
			continue
		}

		rel, err := uc.loadFile(ctx, *f)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if _, err := uc.applyRelease(ctx, *f, rel); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		applied++
	}

	if applied == 0 && firstErr != nil {
		return firstErr
	}
	return nil
}

// discoverRepo lists releases/*.md on both branches of one repository and
// resolves branch precedence: a working-branch copy always wins over the
// base-branch copy of the same file name.
func (uc *syncUseCase) discoverRepo(ctx context.Context, repo model.RepositoryRef) ([]foundFile, error) {
	base, err := uc.github.FindBranch(ctx, repo.Owner, repo.Name,
		append(slices.Clone(types.BaseBranchCandidates), repo.DefaultBranch))
	if err != nil {
		return nil, err
	}

	working, err := uc.github.ListDirectory(ctx, repo.Owner, repo.Name, types.ReleaseDir, types.BranchWorking)
	if err != nil {
		return nil, err
	}
	var published []model.DirEntry
	if base != "" {
		published, err = uc.github.ListDirectory(ctx, repo.Owner, repo.Name, types.ReleaseDir, base)
		if err != nil {
			return nil, err
		}
	}

	byName := make(map[string]foundFile)
	for _, e := range published {
		if !strings.HasSuffix(e.Name, ".md") {
			continue
		}
		byName[e.Name] = foundFile{repo: repo, file: e, branch: base, fromBase: true, seenOnBase: true}
	}
	for _, e := range working {
		if !strings.HasSuffix(e.Name, ".md") {
			continue
		}
		_, onBase := byName[e.Name]
		byName[e.Name] = foundFile{repo: repo, file: e, branch: types.BranchWorking, seenOnBase: onBase}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]foundFile, 0, len(names))
	for _, name := range names {
		out = append(out, byName[name])
	}
	return out, nil
}

// probeRepo checks both branches of one known repository for a single
// release file, for the scoped SyncOne path.
func (uc *syncUseCase) probeRepo(ctx context.Context, repo model.Repository, demandID string) (*foundFile, error) {
	ref, err := model.ParseRepositoryURL(repo.URL)
	if err != nil {
		return nil, err
	}

	base, err := uc.github.FindBranch(ctx, ref.Owner, ref.Name, types.BaseBranchCandidates)
	if err != nil {
		return nil, err
	}

	path := types.ReleaseFilePath(demandID)
	entry := model.DirEntry{Name: types.ReleaseFileName(demandID), Path: path}

	workingSHA, err := uc.github.GetFileSHA(ctx, ref.Owner, ref.Name, path, types.BranchWorking)
	if err != nil {
		return nil, err
	}
	var baseSHA string
	if base != "" {
		baseSHA, err = uc.github.GetFileSHA(ctx, ref.Owner, ref.Name, path, base)
		if err != nil {
			return nil, err
		}
	}

	switch {
	case workingSHA != "":
		entry.SHA = workingSHA
		return &foundFile{repo: ref, file: entry, branch: types.BranchWorking, seenOnBase: baseSHA != ""}, nil
	case baseSHA != "":
		entry.SHA = baseSHA
		return &foundFile{repo: ref, file: entry, branch: base, fromBase: true, seenOnBase: true}, nil
	default:
		return nil, nil
	}
}

// loadFile fetches and parses the winning copy from the HEAD of its branch,
// enriches script bodies and attributes the record from commit history.
func (uc *syncUseCase) loadFile(ctx context.Context, f foundFile) (*model.Release, error) {
	logger := ctxlog.From(ctx)

	content, err := uc.github.GetFileContent(ctx, f.repo.Owner, f.repo.Name, f.file.Path, f.branch)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, goerr.New("release file disappeared between listing and fetch",
			goerr.T(types.TagNotFound),
			goerr.V("repo", f.repo.FullName()), goerr.V("path", f.file.Path))
	}

	release, err := markdown.Parse(content.Text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse release document",
			goerr.V("repo", f.repo.FullName()), goerr.V("path", f.file.Path))
	}
	release.IsVersioned = f.seenOnBase

	// Script bodies live next to the document; a missing script is a normal
	// case (added locally, not committed yet).
	scripts := async.Collect(ctx, release.Scripts, func(ctx context.Context, sc model.Script) (string, error) {
		body, err := uc.github.GetFileContent(ctx, f.repo.Owner, f.repo.Name,
			types.ScriptPath(release.DemandID, sc.Name), f.branch)
		if err != nil {
			return "", err
		}
		if body == nil {
			return "", nil
		}
		return body.Text, nil
	})
	for i, sc := range scripts {
		if sc.Err != nil {
			logger.Warn("Failed to fetch script body",
				"repo", f.repo.FullName(), "script", release.Scripts[i].Name, "error", sc.Err)
			continue
		}
		release.Scripts[i].Content = sc.Value
	}

	if first, err := uc.github.FirstCommit(ctx, f.repo.Owner, f.repo.Name, f.file.Path, f.branch); err == nil && first != nil {
		release.CreatedBy = first.Author
		release.CreatedAt = first.Date
	} else if err != nil {
		logger.Debug("First-commit lookup failed, keeping local attribution",
			"repo", f.repo.FullName(), "path", f.file.Path, "error", err)
	}
	if last, err := uc.github.LastCommit(ctx, f.repo.Owner, f.repo.Name, f.file.Path, f.branch); err == nil && last != nil {
		release.UpdatedBy = last.Author
		release.UpdatedAt = last.Date
	}

	release.Repositories = unionRepositories(release.Repositories, []model.Repository{{
		URL:           f.repo.URL,
		Name:          f.repo.Name,
		ReleaseBranch: f.branch,
	}})

	return release, nil
}

// applyRelease merges the loaded release into the store. Base-branch copies
// are skipped when nothing differs; working-branch copies are authoritative
// and always re-applied.
func (uc *syncUseCase) applyRelease(ctx context.Context, f foundFile, incoming *model.Release) (bool, error) {
	existing, err := uc.store.GetByDemandID(ctx, incoming.DemandID)
	if err != nil {
		return false, err
	}

	if f.fromBase && existing != nil && existing.IsVersioned && existing.ContentEquals(incoming) {
		return false, nil
	}

	merged := mergeRelease(existing, incoming, f.branch)
	if err := uc.store.Put(ctx, merged); err != nil {
		return false, err
	}
	return true, nil
}

// prune deletes local records that this pass did not rediscover, but only
// when their absence is directly confirmed on the base branch of every
// repository they claim, and never when the pass itself was mostly errors.
func (uc *syncUseCase) prune(ctx context.Context, report *model.SyncReport, seen map[string]bool) {
	logger := ctxlog.From(ctx)

	if report.TooManyErrors() {
		logger.Warn("Pruning suppressed: too many sync errors this pass",
			"operations", report.Operations, "failed", report.Failed)
		return
	}

	locals, err := uc.store.GetAll(ctx)
	if err != nil {
		report.Failed++
		report.Errors = append(report.Errors, err.Error())
		return
	}

	for _, rel := range locals {
		// Unversioned records may simply not be visible yet.
		if !rel.IsVersioned || seen[rel.Key()] {
			continue
		}
		if !uc.confirmedAbsent(ctx, rel) {
			continue
		}

		if err := uc.store.Delete(ctx, rel.DemandID); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		report.Pruned++
		logger.Info("Pruned release absent upstream", "demandId", rel.DemandID)
	}
}

// confirmedAbsent reports whether the release document is proven missing on
// the base branch of every repository the record claims. Any lookup failure
// counts as "not proven".
func (uc *syncUseCase) confirmedAbsent(ctx context.Context, rel *model.Release) bool {
	if len(rel.Repositories) == 0 {
		return false
	}

	for _, repo := range rel.Repositories {
		ref, err := model.ParseRepositoryURL(repo.URL)
		if err != nil {
			return false
		}
		base, err := uc.github.FindBranch(ctx, ref.Owner, ref.Name, types.BaseBranchCandidates)
		if err != nil || base == "" {
			return false
		}
		sha, err := uc.github.GetFileSHA(ctx, ref.Owner, ref.Name, types.ReleaseFilePath(rel.DemandID), base)
		if err != nil || sha != "" {
			return false
		}
	}
	return true
}
