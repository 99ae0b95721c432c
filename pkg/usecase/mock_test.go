package usecase_test

import (
	"context"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
)

// mockGitClient is a func-field mock of interfaces.GitClient. Unset fields
// behave as "nothing there": empty listings, missing files, missing branches.
type mockGitClient struct {
	listRepositoriesFunc    func(ctx context.Context) ([]model.RepositoryRef, error)
	getFileContentFunc      func(ctx context.Context, owner, repo, path, ref string) (*model.FileContent, error)
	getFileSHAFunc          func(ctx context.Context, owner, repo, path, ref string) (string, error)
	listDirectoryFunc       func(ctx context.Context, owner, repo, dir, ref string) ([]model.DirEntry, error)
	createOrUpdateFileFunc  func(ctx context.Context, owner, repo, branch, path, message, content string) error
	deleteFileFunc          func(ctx context.Context, owner, repo, branch, path, message string) error
	findBranchFunc          func(ctx context.Context, owner, repo string, candidates []string) (string, error)
	ensureBranchFunc        func(ctx context.Context, owner, repo, name string, basePreference []string) (string, error)
	deleteBranchFunc        func(ctx context.Context, owner, repo, name string) error
	isBranchProtectedFunc   func(ctx context.Context, owner, repo, branch string) (bool, error)
	commitFilesFunc         func(ctx context.Context, owner, repo, branch, message string, files []model.CommitFile) (string, error)
	createPullRequestFunc   func(ctx context.Context, params model.PullRequestParams) (*model.PullRequest, error)
	findOpenPullRequestFunc func(ctx context.Context, owner, repo, head, base string) (*model.PullRequest, error)
	compareBranchesFunc     func(ctx context.Context, owner, repo, base, head string) (int, error)
	firstCommitFunc         func(ctx context.Context, owner, repo, path, ref string) (*model.CommitInfo, error)
	lastCommitFunc          func(ctx context.Context, owner, repo, path, ref string) (*model.CommitInfo, error)

	commitCalls []commitCall
	prCalls     []model.PullRequestParams
	deleteCalls []string
}

type commitCall struct {
	Repo    string
	Branch  string
	Message string
	Files   []model.CommitFile
}

var _ interfaces.GitClient = &mockGitClient{}

func (m *mockGitClient) ListRepositories(ctx context.Context) ([]model.RepositoryRef, error) {
	if m.listRepositoriesFunc != nil {
		return m.listRepositoriesFunc(ctx)
	}
	return nil, nil
}

func (m *mockGitClient) GetFileContent(ctx context.Context, owner, repo, path, ref string) (*model.FileContent, error) {
	if m.getFileContentFunc != nil {
		return m.getFileContentFunc(ctx, owner, repo, path, ref)
	}
	return nil, nil
}

func (m *mockGitClient) GetFileSHA(ctx context.Context, owner, repo, path, ref string) (string, error) {
	if m.getFileSHAFunc != nil {
		return m.getFileSHAFunc(ctx, owner, repo, path, ref)
	}
	return "", nil
}

func (m *mockGitClient) ListDirectory(ctx context.Context, owner, repo, dir, ref string) ([]model.DirEntry, error) {
	if m.listDirectoryFunc != nil {
		return m.listDirectoryFunc(ctx, owner, repo, dir, ref)
	}
	return nil, nil
}

func (m *mockGitClient) CreateOrUpdateFile(ctx context.Context, owner, repo, branch, path, message, content string) error {
	if m.createOrUpdateFileFunc != nil {
		return m.createOrUpdateFileFunc(ctx, owner, repo, branch, path, message, content)
	}
	return nil
}

func (m *mockGitClient) DeleteFile(ctx context.Context, owner, repo, branch, path, message string) error {
	m.deleteCalls = append(m.deleteCalls, path)
	if m.deleteFileFunc != nil {
		return m.deleteFileFunc(ctx, owner, repo, branch, path, message)
	}
	return nil
}

func (m *mockGitClient) FindBranch(ctx context.Context, owner, repo string, candidates []string) (string, error) {
	if m.findBranchFunc != nil {
		return m.findBranchFunc(ctx, owner, repo, candidates)
	}
	return "", nil
}

func (m *mockGitClient) EnsureBranch(ctx context.Context, owner, repo, name string, basePreference []string) (string, error) {
	if m.ensureBranchFunc != nil {
		return m.ensureBranchFunc(ctx, owner, repo, name, basePreference)
	}
	return "develop", nil
}

func (m *mockGitClient) DeleteBranch(ctx context.Context, owner, repo, name string) error {
	if m.deleteBranchFunc != nil {
		return m.deleteBranchFunc(ctx, owner, repo, name)
	}
	return nil
}

func (m *mockGitClient) IsBranchProtected(ctx context.Context, owner, repo, branch string) (bool, error) {
	if m.isBranchProtectedFunc != nil {
		return m.isBranchProtectedFunc(ctx, owner, repo, branch)
	}
	return false, nil
}

func (m *mockGitClient) CommitFiles(ctx context.Context, owner, repo, branch, message string, files []model.CommitFile) (string, error) {
	m.commitCalls = append(m.commitCalls, commitCall{
		Repo:    owner + "/" + repo,
		Branch:  branch,
		Message: message,
		Files:   files,
	})
	if m.commitFilesFunc != nil {
		return m.commitFilesFunc(ctx, owner, repo, branch, message, files)
	}
	return "commit-sha", nil
}

func (m *mockGitClient) CreatePullRequest(ctx context.Context, params model.PullRequestParams) (*model.PullRequest, error) {
	m.prCalls = append(m.prCalls, params)
	if m.createPullRequestFunc != nil {
		return m.createPullRequestFunc(ctx, params)
	}
	return &model.PullRequest{Number: 1, Head: params.Head, Base: params.Base}, nil
}

func (m *mockGitClient) FindOpenPullRequest(ctx context.Context, owner, repo, head, base string) (*model.PullRequest, error) {
	if m.findOpenPullRequestFunc != nil {
		return m.findOpenPullRequestFunc(ctx, owner, repo, head, base)
	}
	return nil, nil
}

func (m *mockGitClient) CompareBranches(ctx context.Context, owner, repo, base, head string) (int, error) {
	if m.compareBranchesFunc != nil {
		return m.compareBranchesFunc(ctx, owner, repo, base, head)
	}
	return 0, nil
}

func (m *mockGitClient) FirstCommit(ctx context.Context, owner, repo, path, ref string) (*model.CommitInfo, error) {
	if m.firstCommitFunc != nil {
		return m.firstCommitFunc(ctx, owner, repo, path, ref)
	}
	return nil, nil
}

func (m *mockGitClient) LastCommit(ctx context.Context, owner, repo, path, ref string) (*model.CommitInfo, error) {
	if m.lastCommitFunc != nil {
		return m.lastCommitFunc(ctx, owner, repo, path, ref)
	}
	return nil, nil
}
