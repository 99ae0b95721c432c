package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/drover/pkg/utils/async"
)

// ReleaseHandler exposes the Release Store and the sync/versioning engines
// to the UI layer.
type ReleaseHandler struct {
	store     interfaces.ReleaseStore
	syncUC    interfaces.SyncUseCase
	versionUC interfaces.VersionUseCase
}

// NewReleaseHandler creates a new ReleaseHandler
func NewReleaseHandler(store interfaces.ReleaseStore, syncUC interfaces.SyncUseCase, versionUC interfaces.VersionUseCase) *ReleaseHandler {
	return &ReleaseHandler{
		store:     store,
		syncUC:    syncUC,
		versionUC: versionUC,
	}
}

// List returns every stored release.
func (h *ReleaseHandler) List(w http.ResponseWriter, r *http.Request) {
	releases, err := h.store.GetAll(r.Context())
	if err != nil {
		writeError(w, err, statusOf(err))
		return
	}
	writeJSON(w, http.StatusOK, releases)
}

// Get returns one release by demand ID.
func (h *ReleaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	demandID := chi.URLParam(r, "demandID")

	release, err := h.store.GetByDemandID(r.Context(), demandID)
	if err != nil {
		writeError(w, err, statusOf(err))
		return
	}
	if release == nil {
		writeError(w, goerr.New("release not found", goerr.V("demandId", demandID)), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, release)
}

// Put creates or replaces a release. A local edit is presumed unpublished:
// IsVersioned is reset to false unless the caller passes keepVersioned=true.
func (h *ReleaseHandler) Put(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	demandID := chi.URLParam(r, "demandID")

	var release model.Release
	if err := json.NewDecoder(r.Body).Decode(&release); err != nil {
		writeError(w, goerr.Wrap(err, "invalid release payload"), http.StatusBadRequest)
		return
	}
	release.DemandID = demandID

	existing, err := h.store.GetByDemandID(ctx, demandID)
	if err != nil {
		writeError(w, err, statusOf(err))
		return
	}

	now := time.Now().UTC()
	if existing != nil {
		release.ID = existing.ID
		if release.CreatedAt.IsZero() {
			release.CreatedAt = existing.CreatedAt
		}
		if release.CreatedBy == "" {
			release.CreatedBy = existing.CreatedBy
		}
	} else {
		release.ID = uuid.NewString()
		if release.CreatedAt.IsZero() {
			release.CreatedAt = now
		}
	}
	release.UpdatedAt = now
	if user := r.Header.Get("X-User"); user != "" {
		release.UpdatedBy = user
		if existing == nil && release.CreatedBy == "" {
			release.CreatedBy = user
		}
	}

	if r.URL.Query().Get("keepVersioned") != "true" {
		release.IsVersioned = false
	}

	if err := h.store.Put(ctx, &release); err != nil {
		writeError(w, err, statusOf(err))
		return
	}

	status := http.StatusOK
	if existing == nil {
		status = http.StatusCreated
	}
	writeJSON(w, status, &release)
}

// Delete removes a release from the store; with mirror=true the deletion is
// first mirrored to GitHub as removal Pull Requests.
func (h *ReleaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	demandID := chi.URLParam(r, "demandID")

	release, err := h.store.GetByDemandID(ctx, demandID)
	if err != nil {
		writeError(w, err, statusOf(err))
		return
	}
	if release == nil {
		writeError(w, goerr.New("release not found", goerr.V("demandId", demandID)), http.StatusNotFound)
		return
	}

	var result *model.BatchResult
	if r.URL.Query().Get("mirror") == "true" {
		result, err = h.versionUC.DeleteFromGitHub(ctx, release)
		if err != nil {
			writeError(w, err, statusOf(err))
			return
		}
	}

	if err := h.store.Delete(ctx, demandID); err != nil {
		writeError(w, err, statusOf(err))
		return
	}

	if result != nil {
		writeJSON(w, http.StatusOK, result)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type versionRequest struct {
	Repositories []string `json:"repositories"`
}

// Version mirrors a release into GitHub as commits and Pull Requests.
func (h *ReleaseHandler) Version(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	demandID := chi.URLParam(r, "demandID")

	release, err := h.store.GetByDemandID(ctx, demandID)
	if err != nil {
		writeError(w, err, statusOf(err))
		return
	}
	if release == nil {
		writeError(w, goerr.New("release not found", goerr.V("demandId", demandID)), http.StatusNotFound)
		return
	}

	var req versionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, goerr.Wrap(err, "invalid version payload"), http.StatusBadRequest)
			return
		}
	}

	result, err := h.versionUC.VersionRelease(ctx, release, req.Repositories)
	if err != nil {
		writeError(w, err, statusOf(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Sync triggers synchronization. A scoped sync (?demand=...) runs inline;
// a full pass is dispatched to the background and acknowledged immediately.
func (h *ReleaseHandler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if demandID := r.URL.Query().Get("demand"); demandID != "" {
		if err := h.syncUC.SyncOne(ctx, demandID); err != nil {
			writeError(w, err, statusOf(err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	async.Dispatch(ctx, func(ctx context.Context) error {
		_, err := h.syncUC.SyncAll(ctx)
		return err
	})
	ctxlog.From(ctx).Info("Full sync dispatched")
	w.WriteHeader(http.StatusAccepted)
}

// statusOf maps tagged domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case goerr.HasTag(err, types.TagNotFound):
		return http.StatusNotFound
	case goerr.HasTag(err, types.TagConflict), goerr.HasTag(err, types.TagNoDiff):
		return http.StatusConflict
	case goerr.HasTag(err, types.TagAuth):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
