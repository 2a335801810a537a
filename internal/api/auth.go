package api

import (
	"errors"
	"net/http"

	"github.com/SigNoz/techstore-go-app/internal/models"
	"github.com/SigNoz/techstore-go-app/internal/services"
	"github.com/SigNoz/techstore-go-app/internal/session"
	"github.com/SigNoz/techstore-go-app/pkg/logger"
)

// userPayload is the public view of an account.
type userPayload struct {
	ID      int64  `json:"id,omitempty"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Pincode string `json:"pincode"`
}

func newUserPayload(u *models.User) userPayload {
	return userPayload{
		ID:      u.ID,
		Name:    u.FullName,
		Email:   u.Email,
		Phone:   u.Phone,
		Address: u.Address,
		Pincode: u.Pincode,
	}
}

// RegisterHandler handles POST /api/auth/register
func (a *App) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := a.deps.Accounts.Register(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	a.startSession(w, r, user, "Registration successful")
}

// LoginHandler handles POST /api/auth/login
func (a *App) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := a.deps.Accounts.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	a.startSession(w, r, user, "Login successful")
}

// startSession issues the session cookie and writes the account summary.
// The session is created last so a failed lookup leaves nothing behind.
func (a *App) startSession(w http.ResponseWriter, r *http.Request, user *models.User, message string) {
	cartCount, wishlistCount, err := a.deps.Accounts.Counts(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	token, err := a.deps.Sessions.Create(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	http.SetCookie(w, a.sessionCookie(token, int(a.config.SessionTTL.Seconds())))
	logger.Info(r.Context()).Int64("user_id", user.ID).Msg("session started")

	respondJSON(w, http.StatusOK, envelope{
		"success":        true,
		"message":        message,
		"user":           newUserPayload(user),
		"cart_count":     cartCount,
		"wishlist_count": wishlistCount,
	})
}

// LogoutHandler handles GET /api/auth/logout. Logging out without a session
// succeeds.
func (a *App) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(a.config.SessionCookieName); err == nil && cookie.Value != "" {
		if err := a.deps.Sessions.Destroy(r.Context(), cookie.Value); err != nil {
			respondError(w, r, err)
			return
		}
	}

	http.SetCookie(w, a.sessionCookie("", -1))
	respondJSON(w, http.StatusOK, envelope{"success": true, "message": "Logged out successfully"})
}

// CheckAuthHandler handles GET /api/auth/check
func (a *App) CheckAuthHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := session.UserFromContext(r.Context())
	if !ok {
		respondJSON(w, http.StatusOK, envelope{"logged_in": false})
		return
	}

	user, err := a.deps.Accounts.GetUser(r.Context(), userID)
	if errors.Is(err, services.ErrNotFound) {
		respondJSON(w, http.StatusOK, envelope{"logged_in": false})
		return
	}
	if err != nil {
		respondError(w, r, err)
		return
	}

	cartCount, wishlistCount, err := a.deps.Accounts.Counts(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	payload := newUserPayload(user)
	payload.ID = 0
	respondJSON(w, http.StatusOK, envelope{
		"logged_in":      true,
		"user":           payload,
		"cart_count":     cartCount,
		"wishlist_count": wishlistCount,
	})
}

// UpdateProfileHandler handles POST /api/auth/update-profile
func (a *App) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.UserFromContext(r.Context()); !ok {
		respondError(w, r, services.ErrLoginRequired)
		return
	}

	var req models.UpdateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := a.deps.Accounts.UpdateProfile(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Profile updated",
		"user":    newUserPayload(user),
	})
}

func (a *App) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     a.config.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   a.config.SessionCookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
