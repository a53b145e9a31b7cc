package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/authz"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/service"

	"go.uber.org/zap"
)

// UserHandler 用户资料、出行状态与 caretaker 配对
type UserHandler struct {
	userService    service.UserService
	pairingService service.PairingService
	tripService    service.TripService
	sessions       authz.SessionResolver
	logger         *zap.Logger
}

func NewUserHandler(
	userService service.UserService,
	pairingService service.PairingService,
	tripService service.TripService,
	sessions authz.SessionResolver,
	logger *zap.Logger,
) *UserHandler {
	return &UserHandler{
		userService:    userService,
		pairingService: pairingService,
		tripService:    tripService,
		sessions:       sessions,
		logger:         logger,
	}
}

type statusResult struct {
	Status domain.TripStatus `json:"status"`
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	user, err := h.userService.GetProfile(r.Context(), c.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(user))
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	var req service.UpdateProfileRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.userService.UpdateProfile(r.Context(), c.UserID, req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, OkMessage[any]("updated user account", nil))
}

// GetOwnStatus 当前 impaired 用户是否在行程中
func (h *UserHandler) GetOwnStatus(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	status, err := h.tripService.Status(r.Context(), c.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(statusResult{Status: status}))
}

// GetStatusByID checks access itself: the caller must be the user or their caretaker.
func (h *UserHandler) GetStatusByID(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	targetID, ok := statusTarget(r.URL.Path)
	if !ok {
		writeJSON(w, http.StatusNotFound, Fail("not found"))
		return
	}
	var (
		callerID int64
		err      error
	)
	if c.Token != "" {
		callerID, err = h.sessions.Resolve(r.Context(), c.Token)
		if err != nil && domain.KindOf(err) != domain.KindUnauthorized {
			writeError(w, r, h.logger, err)
			return
		}
	}
	status, err := h.tripService.StatusOf(r.Context(), callerID, targetID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(statusResult{Status: status}))
}

// statusTarget parses /api/user/{id}/status.
func statusTarget(path string) (int64, bool) {
	rest, ok := strings.CutPrefix(path, "/api/user/")
	if !ok {
		return 0, false
	}
	raw, ok := strings.CutSuffix(rest, "/status")
	if !ok || raw == "" || strings.Contains(raw, "/") {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *UserHandler) GetCaretaker(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	user, err := h.pairingService.GetCaretaker(r.Context(), c.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(user))
}

func (h *UserHandler) AssignCaretaker(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	var req service.AssignCaretakerRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.pairingService.AssignCaretaker(r.Context(), c.UserID, req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, OkMessage[any]("successfully added new caretaker", nil))
}

func (h *UserHandler) RemoveCaretaker(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	if err := h.pairingService.RemovePairing(r.Context(), c.UserID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, OkMessage[any]("successfully deleted caretaker", nil))
}

func (h *UserHandler) GetImpaired(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	user, err := h.pairingService.GetImpaired(r.Context(), c.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(user))
}

// RegisterUserRoutes /api/user 资料、状态与配对
func (r *Router) RegisterUserRoutes(h *UserHandler, g *Guards) {
	r.route("/api/user/{$}", methods{
		http.MethodGet: {guard: g.Auth(), handle: h.GetProfile},
		http.MethodPut: {guard: g.Auth(), handle: h.UpdateProfile},
	})
	r.route("/api/user/status", methods{
		http.MethodGet: {guard: g.Role(domain.RoleImpaired), handle: h.GetOwnStatus},
	})
	// /api/user/{id}/status shares its shape with the {id} routes below, so
	// it hangs off the subtree fallback and parses the path itself.
	statusByID := r.dispatch(methods{
		// no guard: an unbound session is answered by StatusOf with the same
		// 403 as an unrelated caller, so the route does not reveal which ids exist
		http.MethodGet: {handle: h.GetStatusByID},
	})
	r.Handle("/api/user/", func(w http.ResponseWriter, req *http.Request) {
		if _, ok := statusTarget(req.URL.Path); !ok {
			writeJSON(w, http.StatusNotFound, Fail("not found"))
			return
		}
		statusByID(w, req)
	})
	r.route("/api/user/caretaker", methods{
		http.MethodGet:    {guard: g.PairedRole(domain.RoleImpaired), handle: h.GetCaretaker},
		http.MethodPut:    {guard: g.Role(domain.RoleImpaired), handle: h.AssignCaretaker},
		http.MethodDelete: {guard: g.PairedRole(domain.RoleImpaired), handle: h.RemoveCaretaker},
	})
	r.route("/api/user/impaired", methods{
		http.MethodGet: {guard: g.PairedRole(domain.RoleCaretaker), handle: h.GetImpaired},
	})
}
