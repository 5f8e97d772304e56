package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/daykeep/daykeep-api/internal/api/shared"
	"github.com/daykeep/daykeep-api/internal/domain"
	"github.com/daykeep/daykeep-api/internal/service"
	"github.com/daykeep/daykeep-api/internal/store"
	enginesync "github.com/daykeep/daykeep-api/internal/sync"
)

// SyncSettingsRequest carries the remote document settings.
type SyncSettingsRequest struct {
	GistID string `json:"gist_id" validate:"required"`
	Token  string `json:"token"   validate:"required"`
}

// CreateDocumentRequest carries the token used to create a fresh remote
// document.
type CreateDocumentRequest struct {
	Token string `json:"token" validate:"required"`
}

// CreateDocumentResponse returns the ID of the newly created remote
// document.
type CreateDocumentResponse struct {
	GistID string `json:"gist_id"`
}

// DocumentCreator is the slice of the remote client the sync handler needs
// beyond the engine: creating a brand-new remote document.
type DocumentCreator interface {
	CreateDocument(ctx context.Context, tasks []domain.Task, token string) (string, error)
}

// SyncHandler handles synchronization-related HTTP requests: engine status,
// the explicit "load now"/"push now" actions, and the settings that make
// sync configured.
type SyncHandler struct {
	engine      *enginesync.Engine
	creator     DocumentCreator
	credStore   store.CredentialStore
	taskService service.TaskService
	logger      *slog.Logger
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(
	engine *enginesync.Engine,
	creator DocumentCreator,
	credStore store.CredentialStore,
	taskService service.TaskService,
	logger *slog.Logger,
) *SyncHandler {
	return &SyncHandler{
		engine:      engine,
		creator:     creator,
		credStore:   credStore,
		taskService: taskService,
		logger:      logger,
	}
}

// Status handles GET /api/sync/status requests.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.engine.Status(r.Context()))
}

// Refresh handles POST /api/sync/refresh requests. The client calls this
// when the application regains focus; the pull itself runs after the
// engine's delay, so the response is 202.
func (h *SyncHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.engine.NotifyActive()
	shared.RespondWithJSON(w, r, http.StatusAccepted, h.engine.Status(r.Context()))
}

// Pull handles POST /api/sync/pull requests: the explicit "load now"
// action. Unlike background pulls, failures surface directly to the caller;
// a pull dropped because the engine is mid-pull or mid-push answers 409.
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.PullNow(r.Context()); err != nil {
		msg := "Failed to load tasks from remote"
		if errors.Is(err, enginesync.ErrBusy) {
			msg = "Sync is busy, try again shortly"
		}
		shared.RespondWithErrorAndLog(w, r, StatusForError(err), msg, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, h.engine.Status(r.Context()))
}

// Push handles POST /api/sync/push requests: the explicit "push now"
// action.
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.PushNow(r.Context()); err != nil {
		shared.RespondWithErrorAndLog(w, r, StatusForError(err), "Failed to push tasks to remote", err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, h.engine.Status(r.Context()))
}

// UpdateSettings handles PUT /api/sync/settings requests. Saving a complete
// document ID and token is what makes sync configured; the caller follows
// up with an explicit pull or waits for the next refresh.
func (h *SyncHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SyncSettingsRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	creds := store.Credentials{GistID: req.GistID, Token: req.Token}
	if err := h.credStore.Save(r.Context(), creds); err != nil {
		shared.RespondWithErrorAndLog(w, r, StatusForError(err), "Failed to save sync settings", err)
		return
	}

	h.logger.Info("sync settings updated", "gist_id", req.GistID)
	shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
}

// CreateDocument handles POST /api/sync/create requests: the explicit
// "create now" action. It creates a remote document pre-populated with the
// current task list and saves the resulting credentials, making sync
// configured.
func (h *SyncHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	tasks, err := h.taskService.ListTasks(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, StatusForError(err), "Failed to read tasks", err)
		return
	}

	gistID, err := h.creator.CreateDocument(r.Context(), tasks, req.Token)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, StatusForError(err), "Failed to create remote document", err)
		return
	}

	creds := store.Credentials{GistID: gistID, Token: req.Token}
	if err := h.credStore.Save(r.Context(), creds); err != nil {
		shared.RespondWithErrorAndLog(w, r, StatusForError(err), "Failed to save sync settings", err)
		return
	}

	h.logger.Info("remote document created", "gist_id", gistID)
	shared.RespondWithJSON(w, r, http.StatusCreated, CreateDocumentResponse{GistID: gistID})
}
