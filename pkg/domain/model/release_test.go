package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/drover/pkg/domain/model"
)

func TestRelease_Key(t *testing.T) {
	r := &model.Release{DemandID: "DMND0011870"}
	gt.Value(t, r.Key()).Equal("dmnd0011870")
}

func TestRelease_Clone(t *testing.T) {
	r := &model.Release{
		DemandID: "DMND0011870",
		Scripts:  []model.Script{{Name: "a.sql"}},
	}

	c := r.Clone()
	c.Scripts[0].Name = "b.sql"
	gt.Value(t, r.Scripts[0].Name).Equal("a.sql")

	var nilRelease *model.Release
	gt.Value(t, nilRelease.Clone()).Nil()
}

func TestRelease_ContentEquals(t *testing.T) {
	base := func() *model.Release {
		return &model.Release{
			DemandID:    "DMND0011870",
			Title:       "title",
			Description: "desc",
			Secrets:     []model.Secret{{Key: "K", Environment: model.EnvPRD}},
			Scripts:     []model.Script{{Name: "a.sql", Path: "scripts/DMND0011870/a.sql"}},
		}
	}

	a, b := base(), base()
	gt.Value(t, a.ContentEquals(b)).Equal(true)

	// Demand ID comparison is case-insensitive
	b.DemandID = "dmnd0011870"
	gt.Value(t, a.ContentEquals(b)).Equal(true)

	// Attribution, IsVersioned and script bodies are not content
	b.CreatedBy = "alice"
	b.UpdatedAt = time.Now()
	b.IsVersioned = true
	b.Scripts[0].Content = "SELECT 1;"
	gt.Value(t, a.ContentEquals(b)).Equal(true)

	b.Title = "changed"
	gt.Value(t, a.ContentEquals(b)).Equal(false)
}

func TestRelease_FindScript(t *testing.T) {
	r := &model.Release{
		Scripts: []model.Script{{Name: "a.sql"}, {Name: "b.sql"}},
	}
	gt.Value(t, r.FindScript("b.sql")).NotNil()
	gt.Value(t, r.FindScript("c.sql")).Nil()
}

func TestParseRepositoryURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		owner   string
		repo    string
		wantErr bool
	}{
		{name: "https URL", url: "https://github.com/acme/payments", owner: "acme", repo: "payments"},
		{name: "trailing .git", url: "https://github.com/acme/payments.git", owner: "acme", repo: "payments"},
		{name: "trailing slash", url: "https://github.com/acme/payments/", owner: "acme", repo: "payments"},
		{name: "owner/name shorthand", url: "acme/payments", owner: "acme", repo: "payments"},
		{name: "no repository", url: "payments", wantErr: true},
		{name: "empty segments", url: "https://github.com//", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := model.ParseRepositoryURL(tt.url)
			if tt.wantErr {
				gt.Error(t, err)
				return
			}
			gt.NoError(t, err)
			gt.Value(t, ref.Owner).Equal(tt.owner)
			gt.Value(t, ref.Name).Equal(tt.repo)
		})
	}
}

func TestBatchResult_MajorityRule(t *testing.T) {
	r := &model.BatchResult{}
	r.AddSuccess(nil)
	r.AddSuccess(nil)
	r.AddFailure(nil)
	// 1 of 3 failed: still a success
	gt.Value(t, r.Success()).Equal(true)

	r.AddFailure(nil)
	// 2 of 4 failed: exactly half is still tolerated
	gt.Value(t, r.Success()).Equal(true)

	r.AddFailure(nil)
	// 3 of 5 failed: majority failed
	gt.Value(t, r.Success()).Equal(false)
}
