package httpapi

import (
	"net/http"
	"time"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/authz"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/service"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/store"

	"go.uber.org/zap"
)

// AuthHandler 登录 / 登出 / 刷新
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

type sessionResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    int64     `json:"user_id"`
	UserType  string    `json:"user_type,omitempty"`
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, sess store.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Login 用户登录
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request, _ *authz.Caller) {
	var req service.LoginRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	req.PreviousToken = sessionToken(r)
	req.IPAddress = clientIP(r)
	req.UserAgent = r.UserAgent()

	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	setSessionCookie(w, r, resp.Session)
	writeJSON(w, http.StatusOK, OkMessage("successfully logged in", sessionResult{
		Token:     resp.Session.Token,
		ExpiresAt: resp.Session.ExpiresAt,
		UserID:    resp.User.ID,
		UserType:  string(resp.User.Role),
	}))
}

// Logout 登出；没有会话也返回成功
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request, _ *authz.Caller) {
	if token := sessionToken(r); token != "" {
		if err := h.authService.Logout(r.Context(), token); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, OkMessage[any]("successfully logged out", nil))
}

// Refresh 轮换会话 token
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	sess, err := h.authService.Refresh(r.Context(), c.Token)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	setSessionCookie(w, r, *sess)
	writeJSON(w, http.StatusOK, Ok(sessionResult{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		UserID:    sess.UserID,
	}))
}

// RegisterAuthRoutes /api/auth
func (r *Router) RegisterAuthRoutes(h *AuthHandler, g *Guards) {
	r.route("/api/auth/login", methods{
		http.MethodPost: {handle: h.Login},
	})
	r.route("/api/auth/logout", methods{
		http.MethodPost: {handle: h.Logout},
	})
	r.route("/api/auth/refresh", methods{
		http.MethodPost: {guard: authz.RequireAuthenticated(g.sessions), handle: h.Refresh},
	})
}
