// Package github wraps the GitHub REST and Git Data APIs behind the
// interfaces.GitClient contract. All provider error shapes are normalized
// into tagged errors before they reach the use cases.
package github

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
)

const (
	perPage = 100

	// maxListPages caps transparent pagination so a huge account cannot
	// turn a sync pass into a runaway loop.
	maxListPages = 10

	// maxHistoryPages caps the oldest-ward walk used for attribution.
	maxHistoryPages = 10
)

type client struct {
	gh      *github.Client
	backoff backoffPolicy
}

// NewClient creates a GitHub client authenticated with the token held by the
// AuthContext. The token is read per request, so refreshing it takes effect
// immediately.
func NewClient(auth *AuthContext) interfaces.GitClient {
	httpClient := &http.Client{
		Transport: auth.Transport(),
		Timeout:   30 * time.Second,
	}
	return &client{
		gh:      github.NewClient(httpClient),
		backoff: defaultBackoff,
	}
}

// NewAppClient creates a GitHub client with App installation authentication.
func NewAppClient(appID, installationID int64, privateKey []byte) (interfaces.GitClient, error) {
	itr, err := ghinstallation.New(http.DefaultTransport, appID, installationID, privateKey)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GitHub App transport")
	}
	return &client{
		gh:      github.NewClient(&http.Client{Transport: itr}),
		backoff: defaultBackoff,
	}, nil
}

// NewFromGitHub wraps an already configured go-github client. Used by tests
// to point the wrapper at a mock API server.
func NewFromGitHub(gh *github.Client) interfaces.GitClient {
	return &client{gh: gh, backoff: backoffPolicy{
		maxAttempts: defaultBackoff.maxAttempts,
		delay:       func(int) time.Duration { return 0 },
	}}
}

// ListRepositories returns all repositories the authenticated identity can
// push to, iterating pages up to the page ceiling.
func (c *client) ListRepositories(ctx context.Context) ([]model.RepositoryRef, error) {
	var out []model.RepositoryRef

	opt := &github.RepositoryListByAuthenticatedUserOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	for page := 0; ; page++ {
		if page >= maxListPages {
			ctxlog.From(ctx).Warn("Repository listing truncated at page ceiling",
				"pages", maxListPages, "repos", len(out))
			break
		}

		repos, resp, err := c.gh.Repositories.ListByAuthenticatedUser(ctx, opt)
		if err != nil {
			return nil, normalizeErr(err, "failed to list repositories")
		}
		for _, r := range repos {
			if !r.GetPermissions()["push"] {
				continue
			}
			out = append(out, model.RepositoryRef{
				Owner:         r.GetOwner().GetLogin(),
				Name:          r.GetName(),
				URL:           r.GetHTMLURL(),
				DefaultBranch: r.GetDefaultBranch(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	return out, nil
}

func (c *client) GetFileContent(ctx context.Context, owner, repo, path, ref string) (*model.FileContent, error) {
	file, _, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, path,
		&github.RepositoryContentGetOptions{Ref: ref})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, normalizeErr(err, "failed to get file content",
			goerr.V("repo", owner+"/"+repo), goerr.V("path", path), goerr.V("ref", ref))
	}
	if file == nil {
		// path is a directory
		return nil, nil
	}

	text, err := file.GetContent()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode file content", goerr.V("path", path))
	}
	return &model.FileContent{Text: text, SHA: file.GetSHA()}, nil
}

func (c *client) GetFileSHA(ctx context.Context, owner, repo, path, ref string) (string, error) {
	file, _, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, path,
		&github.RepositoryContentGetOptions{Ref: ref})
	if isNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", normalizeErr(err, "failed to get file SHA",
			goerr.V("repo", owner+"/"+repo), goerr.V("path", path), goerr.V("ref", ref))
	}
	if file == nil {
		return "", nil
	}
	return file.GetSHA(), nil
}

func (c *client) ListDirectory(ctx context.Context, owner, repo, dir, ref string) ([]model.DirEntry, error) {
	_, entries, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, dir,
		&github.RepositoryContentGetOptions{Ref: ref})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, normalizeErr(err, "failed to list directory",
			goerr.V("repo", owner+"/"+repo), goerr.V("dir", dir), goerr.V("ref", ref))
	}

	out := make([]model.DirEntry, 0, len(entries))
	for _, e := range entries {
		if e.GetType() != "file" {
			continue
		}
		out = append(out, model.DirEntry{
			Name: e.GetName(),
			Path: e.GetPath(),
			SHA:  e.GetSHA(),
		})
	}
	return out, nil
}

// CreateOrUpdateFile reads the current blob first: identical content is a
// no-op, and the read SHA guards the write against overwriting concurrent
// edits. SHA conflicts re-read and retry under the backoff policy.
func (c *client) CreateOrUpdateFile(ctx context.Context, owner, repo, branch, path, message, content string) error {
	var lastErr error
	for attempt := 0; attempt < c.backoff.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.backoff.wait(ctx, attempt); err != nil {
				return err
			}
		}

		cur, err := c.GetFileContent(ctx, owner, repo, path, branch)
		if err != nil {
			return err
		}
		if cur != nil && cur.Text == content {
			return nil
		}

		opts := &github.RepositoryContentFileOptions{
			Message: github.String(message),
			Content: []byte(content),
			Branch:  github.String(branch),
		}
		if cur == nil {
			_, _, err = c.gh.Repositories.CreateFile(ctx, owner, repo, path, opts)
		} else {
			opts.SHA = github.String(cur.SHA)
			_, _, err = c.gh.Repositories.UpdateFile(ctx, owner, repo, path, opts)
		}
		if err == nil {
			return nil
		}

		nerr := normalizeErr(err, "failed to write file",
			goerr.V("repo", owner+"/"+repo), goerr.V("path", path), goerr.V("attempt", attempt))
		if !goerr.HasTag(nerr, types.TagConflict) {
			return nerr
		}
		lastErr = nerr
	}
	return lastErr
}

func (c *client) DeleteFile(ctx context.Context, owner, repo, branch, path, message string) error {
	sha, err := c.GetFileSHA(ctx, owner, repo, path, branch)
	if err != nil {
		return err
	}
	if sha == "" {
		return goerr.New("file not found", goerr.T(types.TagNotFound),
			goerr.V("repo", owner+"/"+repo), goerr.V("path", path))
	}

	_, _, err = c.gh.Repositories.DeleteFile(ctx, owner, repo, path, &github.RepositoryContentFileOptions{
		Message: github.String(message),
		SHA:     github.String(sha),
		Branch:  github.String(branch),
	})
	if err != nil {
		return normalizeErr(err, "failed to delete file",
			goerr.V("repo", owner+"/"+repo), goerr.V("path", path))
	}
	return nil
}

func (c *client) FindBranch(ctx context.Context, owner, repo string, candidates []string) (string, error) {
	for _, cand := range candidates {
		if cand == "" {
			continue
		}
		_, _, err := c.gh.Git.GetRef(ctx, owner, repo, "refs/heads/"+cand)
		if err == nil {
			return cand, nil
		}
		if !isNotFound(err) {
			return "", normalizeErr(err, "failed to look up branch",
				goerr.V("repo", owner+"/"+repo), goerr.V("branch", cand))
		}
	}
	return "", nil
}

// EnsureBranch is idempotent: an already existing branch is success, and the
// discovered base branch is returned either way so the caller can target it
// with a Pull Request.
func (c *client) EnsureBranch(ctx context.Context, owner, repo, name string, basePreference []string) (string, error) {
	prefs := slices.Clone(basePreference)
	if def, err := c.defaultBranch(ctx, owner, repo); err == nil && def != "" {
		prefs = append(prefs, def)
	}

	base, err := c.FindBranch(ctx, owner, repo, prefs)
	if err != nil {
		return "", err
	}
	if base == "" {
		return "", goerr.New("no base branch found", goerr.T(types.TagNotFound),
			goerr.V("repo", owner+"/"+repo), goerr.V("candidates", prefs))
	}

	if _, _, err := c.gh.Git.GetRef(ctx, owner, repo, "refs/heads/"+name); err == nil {
		return base, nil
	}

	baseRef, _, err := c.gh.Git.GetRef(ctx, owner, repo, "refs/heads/"+base)
	if err != nil {
		return "", normalizeErr(err, "failed to resolve base branch",
			goerr.V("repo", owner+"/"+repo), goerr.V("base", base))
	}

	_, _, err = c.gh.Git.CreateRef(ctx, owner, repo, github.CreateRef{
		Ref: "refs/heads/" + name,
		SHA: baseRef.GetObject().GetSHA(),
	})
	if err != nil {
		nerr := normalizeErr(err, "failed to create branch",
			goerr.V("repo", owner+"/"+repo), goerr.V("branch", name))
		// Concurrent creation of the same branch is fine.
		if goerr.HasTag(nerr, types.TagConflict) {
			return base, nil
		}
		return "", nerr
	}

	ctxlog.From(ctx).Info("Created branch",
		"repo", owner+"/"+repo, "branch", name, "base", base)
	return base, nil
}

func (c *client) DeleteBranch(ctx context.Context, owner, repo, name string) error {
	_, err := c.gh.Git.DeleteRef(ctx, owner, repo, "refs/heads/"+name)
	if err != nil && !isNotFound(err) {
		return normalizeErr(err, "failed to delete branch",
			goerr.V("repo", owner+"/"+repo), goerr.V("branch", name))
	}
	return nil
}

func (c *client) IsBranchProtected(ctx context.Context, owner, repo, branch string) (bool, error) {
	_, _, err := c.gh.Repositories.GetBranchProtection(ctx, owner, repo, branch)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, normalizeErr(err, "failed to get branch protection",
			goerr.V("repo", owner+"/"+repo), goerr.V("branch", branch))
	}
	return true, nil
}

// CommitFiles builds one commit touching every file: N blobs, one tree over
// the branch head, one commit, one ref update. The ref is re-validated right
// before the update; if another writer moved it, the build is retried from
// the tree instead of force-pushing over their commit.
func (c *client) CommitFiles(ctx context.Context, owner, repo, branch, message string, files []model.CommitFile) (string, error) {
	if len(files) == 0 {
		return "", goerr.New("no files to commit", goerr.V("repo", owner+"/"+repo))
	}

	var lastErr error
	for attempt := 0; attempt < c.backoff.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.backoff.wait(ctx, attempt); err != nil {
				return "", err
			}
		}

		ref, _, err := c.gh.Git.GetRef(ctx, owner, repo, "refs/heads/"+branch)
		if err != nil {
			return "", normalizeErr(err, "failed to get branch ref",
				goerr.V("repo", owner+"/"+repo), goerr.V("branch", branch))
		}
		baseSHA := ref.GetObject().GetSHA()

		parent, _, err := c.gh.Git.GetCommit(ctx, owner, repo, baseSHA)
		if err != nil {
			return "", normalizeErr(err, "failed to get parent commit", goerr.V("sha", baseSHA))
		}

		entries := make([]*github.TreeEntry, 0, len(files))
		for _, f := range files {
			blob, _, err := c.gh.Git.CreateBlob(ctx, owner, repo, github.Blob{
				Content:  github.String(f.Content),
				Encoding: github.String("utf-8"),
			})
			if err != nil {
				return "", normalizeErr(err, "failed to create blob", goerr.V("path", f.Path))
			}
			entries = append(entries, &github.TreeEntry{
				Path: github.String(f.Path),
				Mode: github.String("100644"),
				Type: github.String("blob"),
				SHA:  blob.SHA,
			})
		}

		tree, _, err := c.gh.Git.CreateTree(ctx, owner, repo, parent.GetTree().GetSHA(), entries)
		if err != nil {
			return "", normalizeErr(err, "failed to create tree", goerr.V("repo", owner+"/"+repo))
		}

		commit, _, err := c.gh.Git.CreateCommit(ctx, owner, repo, github.Commit{
			Message: github.String(message),
			Tree:    tree,
			Parents: []*github.Commit{{SHA: github.String(baseSHA)}},
		}, nil)
		if err != nil {
			return "", normalizeErr(err, "failed to create commit", goerr.V("repo", owner+"/"+repo))
		}

		cur, _, err := c.gh.Git.GetRef(ctx, owner, repo, "refs/heads/"+branch)
		if err != nil {
			return "", normalizeErr(err, "failed to re-read branch ref", goerr.V("branch", branch))
		}
		if cur.GetObject().GetSHA() != baseSHA {
			lastErr = goerr.New("branch ref moved during commit build", goerr.T(types.TagConflict),
				goerr.V("repo", owner+"/"+repo), goerr.V("branch", branch), goerr.V("attempt", attempt))
			continue
		}

		_, _, err = c.gh.Git.UpdateRef(ctx, owner, repo, "refs/heads/"+branch,
			github.UpdateRef{SHA: commit.GetSHA()})
		if err != nil {
			nerr := normalizeErr(err, "failed to update branch ref",
				goerr.V("repo", owner+"/"+repo), goerr.V("branch", branch))
			if goerr.HasTag(nerr, types.TagConflict) {
				lastErr = nerr
				continue
			}
			return "", nerr
		}

		return commit.GetSHA(), nil
	}
	return "", lastErr
}

// CreatePullRequest distinguishes the two user-actionable 422 cases: an open
// PR already covering head/base, and a head with no commits ahead of base.
func (c *client) CreatePullRequest(ctx context.Context, p model.PullRequestParams) (*model.PullRequest, error) {
	pr, _, err := c.gh.PullRequests.Create(ctx, p.Owner, p.Repo, &github.NewPullRequest{
		Title: github.String(p.Title),
		Body:  github.String(p.Body),
		Head:  github.String(p.Head),
		Base:  github.String(p.Base),
	})
	if err == nil {
		return convertPR(pr), nil
	}

	nerr := normalizeErr(err, "failed to create pull request",
		goerr.V("repo", p.Owner+"/"+p.Repo), goerr.V("head", p.Head), goerr.V("base", p.Base))
	if !goerr.HasTag(nerr, types.TagConflict) {
		return nil, nerr
	}

	if existing, ferr := c.FindOpenPullRequest(ctx, p.Owner, p.Repo, p.Head, p.Base); ferr == nil && existing != nil {
		return nil, goerr.Wrap(err, "open pull request already exists",
			goerr.T(types.TagConflict), goerr.V("number", existing.Number),
			goerr.V("repo", p.Owner+"/"+p.Repo))
	}
	if ahead, cerr := c.CompareBranches(ctx, p.Owner, p.Repo, p.Base, p.Head); cerr == nil && ahead == 0 {
		return nil, goerr.Wrap(err, "no commits between base and head",
			goerr.T(types.TagNoDiff), goerr.V("head", p.Head), goerr.V("base", p.Base),
			goerr.V("repo", p.Owner+"/"+p.Repo))
	}
	return nil, nerr
}

func (c *client) FindOpenPullRequest(ctx context.Context, owner, repo, head, base string) (*model.PullRequest, error) {
	prs, _, err := c.gh.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
		State:       "open",
		Head:        owner + ":" + head,
		Base:        base,
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return nil, normalizeErr(err, "failed to list pull requests",
			goerr.V("repo", owner+"/"+repo), goerr.V("head", head), goerr.V("base", base))
	}
	if len(prs) == 0 {
		return nil, nil
	}
	return convertPR(prs[0]), nil
}

func (c *client) CompareBranches(ctx context.Context, owner, repo, base, head string) (int, error) {
	cmp, _, err := c.gh.Repositories.CompareCommits(ctx, owner, repo, base, head,
		&github.ListOptions{PerPage: 1})
	if err != nil {
		return 0, normalizeErr(err, "failed to compare branches",
			goerr.V("repo", owner+"/"+repo), goerr.V("base", base), goerr.V("head", head))
	}
	return cmp.GetAheadBy(), nil
}

// FirstCommit pages the file's history oldest-ward, capped. When the cap is
// hit the oldest commit seen so far is returned rather than hanging on deep
// histories.
func (c *client) FirstCommit(ctx context.Context, owner, repo, path, ref string) (*model.CommitInfo, error) {
	opts := &github.CommitsListOptions{
		Path:        path,
		SHA:         ref,
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var oldest *github.RepositoryCommit
	for page := 0; page < maxHistoryPages; page++ {
		commits, resp, err := c.gh.Repositories.ListCommits(ctx, owner, repo, opts)
		if err != nil {
			if isNotFound(err) {
				return nil, nil
			}
			return nil, normalizeErr(err, "failed to list commits",
				goerr.V("repo", owner+"/"+repo), goerr.V("path", path))
		}
		if len(commits) == 0 {
			break
		}
		oldest = commits[len(commits)-1]
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if oldest == nil {
		return nil, nil
	}
	return commitInfo(oldest), nil
}

func (c *client) LastCommit(ctx context.Context, owner, repo, path, ref string) (*model.CommitInfo, error) {
	commits, _, err := c.gh.Repositories.ListCommits(ctx, owner, repo, &github.CommitsListOptions{
		Path:        path,
		SHA:         ref,
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, normalizeErr(err, "failed to list commits",
			goerr.V("repo", owner+"/"+repo), goerr.V("path", path))
	}
	if len(commits) == 0 {
		return nil, nil
	}
	return commitInfo(commits[0]), nil
}

func (c *client) defaultBranch(ctx context.Context, owner, repo string) (string, error) {
	r, _, err := c.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return "", normalizeErr(err, "failed to get repository", goerr.V("repo", owner+"/"+repo))
	}
	return r.GetDefaultBranch(), nil
}

func convertPR(pr *github.PullRequest) *model.PullRequest {
	return &model.PullRequest{
		Number: pr.GetNumber(),
		URL:    pr.GetHTMLURL(),
		Head:   pr.GetHead().GetRef(),
		Base:   pr.GetBase().GetRef(),
	}
}

func commitInfo(rc *github.RepositoryCommit) *model.CommitInfo {
	author := rc.GetCommit().GetAuthor().GetName()
	if author == "" {
		author = rc.GetAuthor().GetLogin()
	}
	return &model.CommitInfo{
		SHA:    rc.GetSHA(),
		Author: author,
		Date:   rc.GetCommit().GetAuthor().GetDate().Time,
	}
}

// normalizeErr maps a go-github error into a tagged error carrying the HTTP
// status, so use cases never inspect provider-native error types.
func normalizeErr(err error, msg string, options ...goerr.Option) error {
	status := statusOf(err)
	options = append(options, goerr.V("status", status))
	switch status {
	case http.StatusNotFound:
		options = append(options, goerr.T(types.TagNotFound))
	case http.StatusUnauthorized, http.StatusForbidden:
		options = append(options, goerr.T(types.TagAuth))
	case http.StatusConflict, http.StatusUnprocessableEntity:
		options = append(options, goerr.T(types.TagConflict))
	}
	return goerr.Wrap(err, msg, options...)
}

func statusOf(err error) int {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode
	}
	return 0
}

func isNotFound(err error) bool {
	return err != nil && statusOf(err) == http.StatusNotFound
}
