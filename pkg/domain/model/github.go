package model

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// RepositoryRef identifies a repository on the Git provider.
type RepositoryRef struct {
	Owner         string
	Name          string
	URL           string
	DefaultBranch string
}

// FullName returns "owner/name".
func (r RepositoryRef) FullName() string {
	return r.Owner + "/" + r.Name
}

// ParseRepositoryURL extracts owner and name from a repository URL such as
// "https://github.com/owner/name" (a trailing ".git" is tolerated).
func ParseRepositoryURL(rawURL string) (RepositoryRef, error) {
	trimmed := strings.TrimSuffix(strings.TrimSuffix(rawURL, "/"), ".git")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 {
		return RepositoryRef{}, goerr.New("invalid repository URL", goerr.V("url", rawURL))
	}
	owner, name := parts[len(parts)-2], parts[len(parts)-1]
	if owner == "" || name == "" {
		return RepositoryRef{}, goerr.New("invalid repository URL", goerr.V("url", rawURL))
	}
	return RepositoryRef{Owner: owner, Name: name, URL: rawURL}, nil
}

// ReleaseFile is a transient projection of a release document discovered in
// a repository branch. It is produced by directory listing and consumed
// immediately; it is never persisted.
type ReleaseFile struct {
	Repo   RepositoryRef
	Name   string
	Path   string
	SHA    string
	Branch string
}

// DirEntry is a single entry of a repository directory listing.
type DirEntry struct {
	Name string
	Path string
	SHA  string
}

// FileContent is a decoded file fetched from a repository.
type FileContent struct {
	Text string
	SHA  string
}

// CommitFile is one file of an atomic multi-file commit.
type CommitFile struct {
	Path    string
	Content string
}

// PullRequestParams describes a Pull Request to create.
type PullRequestParams struct {
	Owner string
	Repo  string
	Title string
	Body  string
	Head  string
	Base  string
}

// PullRequest is a created or discovered Pull Request.
type PullRequest struct {
	Number int
	URL    string
	Head   string
	Base   string
}

// CommitInfo carries the attribution of a commit touching a file.
type CommitInfo struct {
	SHA    string
	Author string
	Date   time.Time
}
