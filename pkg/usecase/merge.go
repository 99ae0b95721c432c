package usecase

import (
	"strings"

	"github.com/google/uuid"

	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
)

// mergeRelease reconciles an incoming remotely-observed release with the
// existing local record. Pure function: all precedence rules live here
// instead of being inlined at the call sites.
//
// Rules:
//   - incoming content always wins; the working branch copy is the latest
//     human edit, and a base-branch copy is only applied when no working
//     copy exists.
//   - attribution falls back to the existing record when the commit lookup
//     produced nothing.
//   - script bodies fall back to the existing record when the incoming copy
//     could not be read.
//   - repository entries accumulate; they are merged, never dropped.
//   - a base-branch sighting proves the release is versioned; a working-only
//     sighting keeps whatever was proven before.
func mergeRelease(existing, incoming *model.Release, source string) *model.Release {
	out := incoming.Clone()

	if source != types.BranchWorking {
		out.IsVersioned = true
	} else if existing != nil {
		out.IsVersioned = out.IsVersioned || existing.IsVersioned
	}

	if existing == nil {
		if out.ID == "" {
			out.ID = uuid.NewString()
		}
		return out
	}

	out.ID = existing.ID
	if out.ID == "" {
		out.ID = uuid.NewString()
	}

	if out.CreatedBy == "" {
		out.CreatedBy = existing.CreatedBy
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = existing.CreatedAt
	}
	if out.UpdatedBy == "" {
		out.UpdatedBy = existing.UpdatedBy
	}
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = existing.UpdatedAt
	}

	for i := range out.Scripts {
		if out.Scripts[i].Content != "" {
			continue
		}
		if prev := existing.FindScript(out.Scripts[i].Name); prev != nil {
			out.Scripts[i].Content = prev.Content
		}
	}

	out.Repositories = unionRepositories(existing.Repositories, out.Repositories)
	return out
}

// unionRepositories merges two repository lists keyed by URL (falling back
// to name), overlaying non-empty fields of later entries so the most
// specific observation wins.
func unionRepositories(base, incoming []model.Repository) []model.Repository {
	out := make([]model.Repository, 0, len(base)+len(incoming))
	index := make(map[string]int)

	add := func(repo model.Repository) {
		key := strings.ToLower(repo.URL)
		if key == "" {
			key = strings.ToLower(repo.Name)
		}
		if key == "" {
			return
		}

		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, repo)
			return
		}
		if repo.Name != "" {
			out[i].Name = repo.Name
		}
		if repo.URL != "" {
			out[i].URL = repo.URL
		}
		if repo.Impact != "" {
			out[i].Impact = repo.Impact
		}
		if repo.ReleaseBranch != "" {
			out[i].ReleaseBranch = repo.ReleaseBranch
		}
	}

	for _, r := range base {
		add(r)
	}
	for _, r := range incoming {
		add(r)
	}
	return out
}
