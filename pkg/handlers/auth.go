package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"task-sync-backend/pkg/config"
	"task-sync-backend/pkg/database"
	"task-sync-backend/pkg/middleware"
	"task-sync-backend/pkg/models"
	"task-sync-backend/pkg/pairing"
	"task-sync-backend/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

// AuthHandler serves registration, login and token refresh
type AuthHandler struct {
	config  *config.Config
	db      database.DatabaseInterface
	jwt     *utils.JWTService
	pairing *pairing.Service
}

// NewAuthHandler creates the auth handler
func NewAuthHandler(cfg *config.Config, db database.DatabaseInterface) *AuthHandler {
	return &AuthHandler{
		config:  cfg,
		db:      db,
		jwt:     utils.NewJWTService(cfg.JWTSecret),
		pairing: pairing.NewService(db),
	}
}

// Register creates an account, its personal space and a pairing code, and
// signs the user in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.UserRegisterRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		utils.WriteValidationErrorResponse(w, "A valid email is required", "")
		return
	}
	if len(req.Password) < 8 {
		utils.WriteValidationErrorResponse(w, "Password must be at least 8 characters", "")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to process password")
		return
	}

	user := &models.User{
		Email:    req.Email,
		Password: string(hash),
		Name:     req.Name,
	}
	if err := h.db.CreateUser(user); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	if _, err := h.pairing.RefreshPairingCode(user.ID); err != nil {
		fmt.Printf("[warn] failed to assign pairing code to %s: %v\n", user.ID, err)
	}

	h.respondWithSession(w, user, http.StatusCreated)
}

// Login verifies credentials and signs the user in.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.UserLoginRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	user, err := h.db.GetUserByEmail(req.Email)
	if err != nil {
		// Indistinguishable from a wrong password on purpose
		utils.WriteUnauthorizedResponse(w, "Invalid email or password")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid email or password")
		return
	}

	h.respondWithSession(w, user, http.StatusOK)
}

// respondWithSession issues the token pair and guarantees a default space.
func (h *AuthHandler) respondWithSession(w http.ResponseWriter, user *models.User, status int) {
	accessToken, refreshToken, expiresIn, err := h.jwt.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to generate tokens")
		return
	}

	spaceID := ""
	if space, err := h.pairing.EnsureDefaultSpace(user.ID, user.Name); err == nil {
		spaceID = space.ID
	} else {
		fmt.Printf("[warn] failed to ensure default space for %s: %v\n", user.ID, err)
	}

	// Reload so the response carries the pairing code just assigned
	if fresh, err := h.db.GetUserByID(user.ID); err == nil {
		user = fresh
	}

	utils.WriteJSONResponse(w, status, models.UserLoginResponse{
		User:         *user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		SpaceID:      spaceID,
	})
}

// RefreshToken exchanges a refresh token for a new access token.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.RefreshToken == "" {
		utils.WriteValidationErrorResponse(w, "refresh_token is required", "")
		return
	}

	accessToken, expiresIn, err := h.jwt.RefreshAccessToken(req.RefreshToken)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid refresh token")
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"access_token": accessToken,
		"expires_in":   expiresIn,
	})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Not authenticated")
		return
	}

	profile, err := h.db.GetUserByID(user.ID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, profile)
}

// UpdateMe updates the mutable profile fields.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Not authenticated")
		return
	}

	var req struct {
		Name     *string `json:"name"`
		PhotoURL *string `json:"photoUrl"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	profile, err := h.db.GetUserByID(user.ID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	if req.Name != nil {
		profile.Name = *req.Name
	}
	if req.PhotoURL != nil {
		profile.PhotoURL = *req.PhotoURL
	}
	if err := h.db.UpdateUser(profile); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, profile)
}

// UpdatePushToken stores the device token reminders are delivered to.
func (h *AuthHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Not authenticated")
		return
	}

	var req struct {
		PushToken string `json:"pushToken"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	if err := h.db.UpdatePushToken(user.ID, req.PushToken); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{"status": "ok"})
}

// HealthCheck reports process and store health.
func (h *AuthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.db.HealthCheck(); err != nil {
		utils.WriteErrorResponse(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{
		"status":      "healthy",
		"environment": h.config.Environment,
	})
}
