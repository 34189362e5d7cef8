package handlers

import (
	"fmt"
	"net/http"

	"task-sync-backend/pkg/config"
	"task-sync-backend/pkg/database"
	"task-sync-backend/pkg/middleware"
	"task-sync-backend/pkg/pairing"
	"task-sync-backend/pkg/tasks"
	"task-sync-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// SpacesHandler serves space membership and pairing endpoints
type SpacesHandler struct {
	config  *config.Config
	db      database.DatabaseInterface
	pairing *pairing.Service
	tasks   *tasks.Service
}

// NewSpacesHandler creates the spaces handler
func NewSpacesHandler(cfg *config.Config, db database.DatabaseInterface) *SpacesHandler {
	return &SpacesHandler{
		config:  cfg,
		db:      db,
		pairing: pairing.NewService(db),
		tasks:   tasks.NewService(db),
	}
}

// ListSpaces returns the user's spaces with a weak ETag so unchanged lists
// answer 304.
func (h *SpacesHandler) ListSpaces(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Not authenticated")
		return
	}

	spaces, err := h.pairing.ListSpaces(user.ID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	var maxUpdated int64
	for _, s := range spaces {
		if u := s.UpdatedAt.Unix(); u > maxUpdated {
			maxUpdated = u
		}
	}
	etag := fmt.Sprintf("W/\"spaces:%s:%d:%d\"", user.ID, len(spaces), maxUpdated)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	utils.WriteSuccessResponse(w, spaces)
}

// CreateSpace creates a space with a fresh invite code.
func (h *SpacesHandler) CreateSpace(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Not authenticated")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	space, err := h.pairing.CreateSpace(user.ID, req.Name)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, space)
}

// JoinSpace adds the user to the space behind an invite code.
func (h *SpacesHandler) JoinSpace(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Not authenticated")
		return
	}

	var req struct {
		InviteCode string `json:"inviteCode"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	space, err := h.pairing.JoinSpace(user.ID, req.InviteCode)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, space)
}

// LeaveSpace removes the user from a space.
func (h *SpacesHandler) LeaveSpace(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Not authenticated")
		return
	}

	spaceID := chi.URLParam(r, "spaceID")
	if err := h.pairing.LeaveSpace(user.ID, spaceID); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{"status": "left"})
}

// DeleteSpace deletes a member's space and its tasks.
func (h *SpacesHandler) DeleteSpace(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Not authenticated")
		return
	}

	spaceID := chi.URLParam(r, "spaceID")
	if err := h.pairing.DeleteSpace(user.ID, spaceID); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{"status": "deleted"})
}

// SpaceProgress returns the effort-weighted completion percentage.
func (h *SpacesHandler) SpaceProgress(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Not authenticated")
		return
	}

	spaceID := chi.URLParam(r, "spaceID")
	pct, err := h.tasks.SpaceProgress(user.ID, spaceID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]int{"progressPercentage": pct})
}

// Pair links the user to the account behind a pairing code and returns the
// shared space created for them.
func (h *SpacesHandler) Pair(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Not authenticated")
		return
	}

	var req struct {
		PairingCode string `json:"pairingCode"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	space, err := h.pairing.Pair(user.ID, req.PairingCode)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, space)
}

// Unpair severs the pairing and deletes its shared tasks.
func (h *SpacesHandler) Unpair(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Not authenticated")
		return
	}

	if err := h.pairing.Unpair(user.ID); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{"status": "unpaired"})
}

// Partner returns the paired account's public profile.
func (h *SpacesHandler) Partner(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Not authenticated")
		return
	}

	partner, err := h.pairing.Partner(user.ID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	// Strip fields the partner has no business seeing
	partner.PairingCode = ""
	utils.WriteSuccessResponse(w, partner)
}

// RefreshPairingCode rotates the user's pairing code.
func (h *SpacesHandler) RefreshPairingCode(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Not authenticated")
		return
	}

	code, err := h.pairing.RefreshPairingCode(user.ID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{"pairingCode": code})
}
