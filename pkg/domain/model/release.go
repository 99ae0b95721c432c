package model

import (
	"slices"
	"strings"
	"time"
)

// Environment is a deployment environment for a secret.
type Environment string

const (
	EnvDEV Environment = "DEV"
	EnvQAS Environment = "QAS"
	EnvPRD Environment = "PRD"
)

// SecretStatus represents the configuration state of a secret.
type SecretStatus string

const (
	SecretPending     SecretStatus = "PENDING"
	SecretConfigured  SecretStatus = "CONFIGURED"
	SecretNotRequired SecretStatus = "NOT_REQUIRED"
)

// Secret is an environment variable or credential the release depends on.
// The Key is the name of the secret, never its value.
type Secret struct {
	Environment Environment  `json:"environment" firestore:"environment"`
	Key         string       `json:"key" firestore:"key"`
	Description string       `json:"description" firestore:"description"`
	Status      SecretStatus `json:"status" firestore:"status"`
}

// Script is a database or migration script shipped with the release. Content
// is the script body fetched from the repository; it is not embedded in the
// release document.
type Script struct {
	Name     string `json:"name" firestore:"name"`
	Path     string `json:"path" firestore:"path"`
	Content  string `json:"content,omitempty" firestore:"content"`
	ChangeID string `json:"changeId,omitempty" firestore:"changeId"`
}

// Repository is a repository impacted by the release.
type Repository struct {
	URL           string `json:"url" firestore:"url"`
	Name          string `json:"name" firestore:"name"`
	Impact        string `json:"impact" firestore:"impact"`
	ReleaseBranch string `json:"releaseBranch,omitempty" firestore:"releaseBranch"`
}

// Responsible lists the people accountable for the release.
type Responsible struct {
	Developer  string `json:"developer" firestore:"developer"`
	Functional string `json:"functional" firestore:"functional"`
	TechLead   string `json:"techLead" firestore:"techLead"`
	SRE        string `json:"sre" firestore:"sre"`
}

// Release is the unit of work: a demand mirrored as a Markdown document and
// scripts across one or more GitHub repositories. DemandID is the business
// key and is unique case-insensitively within the store.
type Release struct {
	ID           string       `json:"id" firestore:"id"`
	DemandID     string       `json:"demandId" firestore:"demandId"`
	Title        string       `json:"title" firestore:"title"`
	Description  string       `json:"description" firestore:"description"`
	Responsible  Responsible  `json:"responsible" firestore:"responsible"`
	Secrets      []Secret     `json:"secrets" firestore:"secrets"`
	Scripts      []Script     `json:"scripts" firestore:"scripts"`
	Repositories []Repository `json:"repositories" firestore:"repositories"`
	Observations string       `json:"observations" firestore:"observations"`
	CreatedAt    time.Time    `json:"createdAt" firestore:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt" firestore:"updatedAt"`
	CreatedBy    string       `json:"createdBy" firestore:"createdBy"`
	UpdatedBy    string       `json:"updatedBy" firestore:"updatedBy"`
	IsVersioned  bool         `json:"isVersioned" firestore:"isVersioned"`
}

// Key returns the case-insensitive store key for the release.
func (r *Release) Key() string {
	return strings.ToLower(r.DemandID)
}

// Clone returns a deep copy of the release.
func (r *Release) Clone() *Release {
	if r == nil {
		return nil
	}
	out := *r
	out.Secrets = slices.Clone(r.Secrets)
	out.Scripts = slices.Clone(r.Scripts)
	out.Repositories = slices.Clone(r.Repositories)
	return &out
}

// ContentEquals reports whether the user-editable content of two releases is
// identical. Attribution fields, IsVersioned and script bodies are excluded:
// script bodies live outside the document and are compared separately.
func (r *Release) ContentEquals(o *Release) bool {
	if r == nil || o == nil {
		return r == o
	}
	if !strings.EqualFold(r.DemandID, o.DemandID) ||
		r.Title != o.Title ||
		r.Description != o.Description ||
		r.Responsible != o.Responsible ||
		r.Observations != o.Observations {
		return false
	}
	if !slices.Equal(r.Secrets, o.Secrets) {
		return false
	}
	if len(r.Scripts) != len(o.Scripts) {
		return false
	}
	for i := range r.Scripts {
		a, b := r.Scripts[i], o.Scripts[i]
		if a.Name != b.Name || a.Path != b.Path || a.ChangeID != b.ChangeID {
			return false
		}
	}
	return slices.Equal(r.Repositories, o.Repositories)
}

// FindScript returns the script with the given name, or nil.
func (r *Release) FindScript(name string) *Script {
	for i := range r.Scripts {
		if r.Scripts[i].Name == name {
			return &r.Scripts[i]
		}
	}
	return nil
}

// RepositoryURLs returns the URLs of all linked repositories.
func (r *Release) RepositoryURLs() []string {
	urls := make([]string, 0, len(r.Repositories))
	for _, repo := range r.Repositories {
		urls = append(urls, repo.URL)
	}
	return urls
}
