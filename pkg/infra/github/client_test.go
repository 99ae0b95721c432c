package github_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	gh "github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
	githubinfra "github.com/m-mizutani/drover/pkg/infra/github"
)

// newTestClient wires the wrapper to a mock API server.
func newTestClient(t *testing.T, handler http.Handler) interfaces.GitClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := gh.NewClient(nil)
	baseURL := gt.R1(url.Parse(server.URL + "/")).NoError(t)
	client.BaseURL = baseURL

	return githubinfra.NewFromGitHub(client)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
}

func contentsBody(path, text string) map[string]any {
	return map[string]any{
		"type":     "file",
		"name":     path,
		"path":     path,
		"sha":      "file-sha",
		"encoding": "base64",
		"content":  base64.StdEncoding.EncodeToString([]byte(text)),
	}
}

func TestCreateOrUpdateFile_IdenticalContentIsNoOp(t *testing.T) {
	var mutations atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/payments/contents/releases/release_DMND1.md", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, contentsBody("releases/release_DMND1.md", "same content"))
	})
	mux.HandleFunc("PUT /repos/acme/payments/contents/releases/release_DMND1.md", func(w http.ResponseWriter, r *http.Request) {
		mutations.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	client := newTestClient(t, mux)
	gt.NoError(t, client.CreateOrUpdateFile(context.Background(),
		"acme", "payments", types.BranchWorking,
		"releases/release_DMND1.md", "Upsert release DMND1", "same content"))

	gt.Value(t, mutations.Load()).Equal(int32(0))
}

func TestCreateOrUpdateFile_CreatesMissingFile(t *testing.T) {
	var mutations atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/payments/contents/releases/release_DMND2.md", func(w http.ResponseWriter, r *http.Request) {
		notFound(w)
	})
	mux.HandleFunc("PUT /repos/acme/payments/contents/releases/release_DMND2.md", func(w http.ResponseWriter, r *http.Request) {
		mutations.Add(1)

		var req map[string]any
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		// A create must not carry a SHA guard
		_, hasSHA := req["sha"]
		gt.Value(t, hasSHA).Equal(false)
		gt.Value(t, req["branch"]).Equal(types.BranchWorking)

		writeJSON(w, http.StatusCreated, map[string]any{})
	})

	client := newTestClient(t, mux)
	gt.NoError(t, client.CreateOrUpdateFile(context.Background(),
		"acme", "payments", types.BranchWorking,
		"releases/release_DMND2.md", "Upsert release DMND2", "new content"))

	gt.Value(t, mutations.Load()).Equal(int32(1))
}

func TestGetFileContent_MissingFileIsNil(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/payments/contents/releases/release_DMND3.md", func(w http.ResponseWriter, r *http.Request) {
		notFound(w)
	})

	client := newTestClient(t, mux)
	content := gt.R1(client.GetFileContent(context.Background(),
		"acme", "payments", "releases/release_DMND3.md", "develop")).NoError(t)
	gt.Value(t, content).Nil()
}

func TestGetFileContent_AuthErrorIsTagged(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/payments/contents/releases/release_DMND4.md", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Forbidden"})
	})

	client := newTestClient(t, mux)
	_, err := client.GetFileContent(context.Background(),
		"acme", "payments", "releases/release_DMND4.md", "develop")
	gt.Error(t, err)
	gt.Value(t, goerr.HasTag(err, types.TagAuth)).Equal(true)
}

func TestFindBranch_PrecedenceOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/payments/git/ref/heads/develop", func(w http.ResponseWriter, r *http.Request) {
		notFound(w)
	})
	mux.HandleFunc("GET /repos/acme/payments/git/ref/heads/main", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ref":    "refs/heads/main",
			"object": map[string]any{"sha": "main-sha", "type": "commit"},
		})
	})

	client := newTestClient(t, mux)
	branch := gt.R1(client.FindBranch(context.Background(),
		"acme", "payments", types.BaseBranchCandidates)).NoError(t)
	gt.Value(t, branch).Equal("main")
}

func TestEnsureBranch_ExistingBranchIsIdempotent(t *testing.T) {
	var created atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/payments", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"default_branch": "main"})
	})
	mux.HandleFunc("GET /repos/acme/payments/git/ref/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ref":    "refs/heads/develop",
			"object": map[string]any{"sha": "dev-sha", "type": "commit"},
		})
	})
	mux.HandleFunc("POST /repos/acme/payments/git/refs", func(w http.ResponseWriter, r *http.Request) {
		created.Add(1)
		writeJSON(w, http.StatusCreated, map[string]any{})
	})

	client := newTestClient(t, mux)
	base := gt.R1(client.EnsureBranch(context.Background(),
		"acme", "payments", types.BranchWorking, types.BaseBranchCandidates)).NoError(t)

	gt.Value(t, base).Equal("develop")
	gt.Value(t, created.Load()).Equal(int32(0))
}

func TestCommitFiles_SingleCommit(t *testing.T) {
	var blobs, trees, commits, refUpdates atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/payments/git/ref/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ref":    "refs/heads/" + types.BranchWorking,
			"object": map[string]any{"sha": "base-sha", "type": "commit"},
		})
	})
	mux.HandleFunc("GET /repos/acme/payments/git/commits/base-sha", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"sha":  "base-sha",
			"tree": map[string]any{"sha": "base-tree"},
		})
	})
	mux.HandleFunc("POST /repos/acme/payments/git/blobs", func(w http.ResponseWriter, r *http.Request) {
		blobs.Add(1)
		writeJSON(w, http.StatusCreated, map[string]any{"sha": "blob-sha"})
	})
	mux.HandleFunc("POST /repos/acme/payments/git/trees", func(w http.ResponseWriter, r *http.Request) {
		trees.Add(1)

		var req map[string]any
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gt.Value(t, req["base_tree"]).Equal("base-tree")

		writeJSON(w, http.StatusCreated, map[string]any{"sha": "new-tree"})
	})
	mux.HandleFunc("POST /repos/acme/payments/git/commits", func(w http.ResponseWriter, r *http.Request) {
		commits.Add(1)
		writeJSON(w, http.StatusCreated, map[string]any{"sha": "new-commit"})
	})
	mux.HandleFunc("PATCH /repos/acme/payments/git/refs/", func(w http.ResponseWriter, r *http.Request) {
		refUpdates.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{
			"ref":    "refs/heads/" + types.BranchWorking,
			"object": map[string]any{"sha": "new-commit", "type": "commit"},
		})
	})

	client := newTestClient(t, mux)
	sha := gt.R1(client.CommitFiles(context.Background(),
		"acme", "payments", types.BranchWorking, "Upsert release DMND5",
		[]model.CommitFile{
			{Path: "releases/release_DMND5.md", Content: "doc"},
			{Path: "scripts/DMND5/migrate.sql", Content: "CREATE TABLE t;"},
		})).NoError(t)

	gt.Value(t, sha).Equal("new-commit")
	gt.Value(t, blobs.Load()).Equal(int32(2))
	gt.Value(t, trees.Load()).Equal(int32(1))
	gt.Value(t, commits.Load()).Equal(int32(1))
	gt.Value(t, refUpdates.Load()).Equal(int32(1))
}

func TestCommitFiles_NoFiles(t *testing.T) {
	client := newTestClient(t, http.NewServeMux())
	_, err := client.CommitFiles(context.Background(),
		"acme", "payments", types.BranchWorking, "empty", nil)
	gt.Error(t, err)
}

func TestCreatePullRequest_ExistingPRIsConflictTagged(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/acme/payments/pulls", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "Validation Failed",
			"errors":  []map[string]any{{"message": "A pull request already exists"}},
		})
	})
	mux.HandleFunc("GET /repos/acme/payments/pulls", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{
				"number":   7,
				"html_url": "https://github.com/acme/payments/pull/7",
				"head":     map[string]any{"ref": types.BranchWorking},
				"base":     map[string]any{"ref": "develop"},
			},
		})
	})

	client := newTestClient(t, mux)
	_, err := client.CreatePullRequest(context.Background(), model.PullRequestParams{
		Owner: "acme", Repo: "payments",
		Title: "Release DMND6",
		Head:  types.BranchWorking, Base: "develop",
	})
	gt.Error(t, err)
	gt.Value(t, goerr.HasTag(err, types.TagConflict)).Equal(true)
}

func TestCreatePullRequest_NoDiffIsTagged(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/acme/payments/pulls", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "Validation Failed",
			"errors":  []map[string]any{{"message": "No commits between develop and feature/upsert-release"}},
		})
	})
	mux.HandleFunc("GET /repos/acme/payments/pulls", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{})
	})
	mux.HandleFunc("GET /repos/acme/payments/compare/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ahead_by": 0})
	})

	client := newTestClient(t, mux)
	_, err := client.CreatePullRequest(context.Background(), model.PullRequestParams{
		Owner: "acme", Repo: "payments",
		Title: "Release DMND7",
		Head:  types.BranchWorking, Base: "develop",
	})
	gt.Error(t, err)
	gt.Value(t, goerr.HasTag(err, types.TagNoDiff)).Equal(true)
}
