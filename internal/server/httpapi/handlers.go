// Package httpapi exposes the account service over a JSON HTTP API.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/proloapp/sparkle/internal/common"
	"github.com/proloapp/sparkle/internal/logging"
	"github.com/proloapp/sparkle/internal/server/models"
	"github.com/proloapp/sparkle/internal/server/repositories/profiles"
	"github.com/proloapp/sparkle/internal/server/services"
)

const maxAvatarBytes = 5 << 20

type Handler struct {
	accounts *services.AccountService
	profiles *services.ProfileService
	avatars  *services.AvatarService
	logger   logging.Logger
}

func NewHandler(accounts *services.AccountService, profileSvc *services.ProfileService, avatars *services.AvatarService, logger logging.Logger) *Handler {
	return &Handler{
		accounts: accounts,
		profiles: profileSvc,
		avatars:  avatars,
		logger:   logger,
	}
}

type userJSON struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserJSON(u *models.User) userJSON {
	return userJSON{ID: u.ID, Email: u.Email, Username: u.Username, CreatedAt: u.CreatedAt}
}

type sessionJSON struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	User         userJSON `json:"user"`
}

type profileJSON struct {
	UserID             string `json:"user_id"`
	Username           string `json:"username"`
	Email              string `json:"email"`
	AvatarURL          string `json:"avatar_url"`
	FingerprintEnabled bool   `json:"fingerprint_enabled"`
	Charms             int    `json:"charms"`
	Level              int    `json:"level"`
}

func toProfileJSON(p *models.Profile) profileJSON {
	return profileJSON{
		UserID:             p.UserID,
		Username:           p.Username,
		Email:              p.Email,
		AvatarURL:          p.AvatarURL,
		FingerprintEnabled: p.FingerprintEnabled,
		Charms:             p.Charms,
		Level:              p.Level,
	}
}

func decodeBody(r *http.Request, out any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(out)
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Email == "" || req.Password == "" || req.Username == "" {
		writeMessage(w, http.StatusBadRequest, "email, password and username are required")
		return
	}

	user, pair, err := h.accounts.SignUp(r.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			writeMessage(w, http.StatusConflict, "User already registered")
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionJSON{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         toUserJSON(user),
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed request body")
		return
	}

	user, pair, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			writeMessage(w, http.StatusUnauthorized, "Invalid login credentials")
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionJSON{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         toUserJSON(user),
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeBody(r, &req); err != nil || req.RefreshToken == "" {
		writeMessage(w, http.StatusBadRequest, "malformed request body")
		return
	}

	user, pair, err := h.accounts.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionJSON{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         toUserJSON(user),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Logout(r.Context(), userIDFromContext(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.GetUser(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserJSON(user))
}

func (h *Handler) recover(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil || req.Email == "" {
		writeMessage(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.accounts.Recover(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// listProfiles serves the profile lookups: by user_id, by username, or by
// the email/username pair used by the registration pre-check. Results come
// back as an array; a lookup with no match is an empty array, not an error.
func (h *Handler) listProfiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("user_id")
	username := q.Get("username")
	email := q.Get("email")

	result := make([]profileJSON, 0, 1)

	switch {
	case userID != "":
		p, err := h.profiles.GetByUserID(r.Context(), userID)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			writeError(w, err)
			return
		}
		if p != nil {
			result = append(result, toProfileJSON(p))
		}

	case email != "" && username != "":
		list, err := h.profiles.FindByEmailOrUsername(r.Context(), email, username)
		if err != nil {
			writeError(w, err)
			return
		}
		for i := range list {
			result = append(result, toProfileJSON(&list[i]))
		}

	case username != "":
		p, err := h.profiles.GetByUsername(r.Context(), username)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			writeError(w, err)
			return
		}
		if p != nil {
			result = append(result, toProfileJSON(p))
		}

	default:
		writeMessage(w, http.StatusBadRequest, "a filter is required")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) createProfile(w http.ResponseWriter, r *http.Request) {
	var req profileJSON
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed request body")
		return
	}

	p := &models.Profile{
		UserID:             req.UserID,
		Username:           req.Username,
		Email:              req.Email,
		AvatarURL:          req.AvatarURL,
		FingerprintEnabled: req.FingerprintEnabled,
		Charms:             req.Charms,
		Level:              req.Level,
	}

	if err := h.profiles.Create(r.Context(), userIDFromContext(r.Context()), p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProfileJSON(p))
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req struct {
		Username           *string `json:"username"`
		AvatarURL          *string `json:"avatar_url"`
		FingerprintEnabled *bool   `json:"fingerprint_enabled"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed request body")
		return
	}

	patch := profiles.Patch{
		Username:           req.Username,
		AvatarURL:          req.AvatarURL,
		FingerprintEnabled: req.FingerprintEnabled,
	}

	if err := h.profiles.Update(r.Context(), userIDFromContext(r.Context()), userID, patch); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) uploadAvatar(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	callerID := userIDFromContext(r.Context())

	if err := h.avatars.ValidateKey(key, callerID); err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			writeError(w, err)
			return
		}
		writeMessage(w, http.StatusBadRequest, "malformed object key")
		return
	}

	content, err := io.ReadAll(io.LimitReader(r.Body, maxAvatarBytes+1))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(content) > maxAvatarBytes {
		writeMessage(w, http.StatusRequestEntityTooLarge, "avatar exceeds the size limit")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := h.avatars.Upload(r.Context(), key, content, contentType); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, nil)
}

// serveAvatar redirects to the object in the public bucket. The service
// never proxies image bytes.
func (h *Handler) serveAvatar(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	http.Redirect(w, r, h.avatars.PublicURL(key), http.StatusFound)
}
