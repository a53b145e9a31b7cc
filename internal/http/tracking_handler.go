package httpapi

import (
	"net/http"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/authz"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/service"

	"go.uber.org/zap"
)

// TrackingHandler 紧急联系人、行程与活动
type TrackingHandler struct {
	contactService  service.ContactService
	tripService     service.TripService
	activityService service.ActivityService
	logger          *zap.Logger
}

func NewTrackingHandler(
	contactService service.ContactService,
	tripService service.TripService,
	activityService service.ActivityService,
	logger *zap.Logger,
) *TrackingHandler {
	return &TrackingHandler{
		contactService:  contactService,
		tripService:     tripService,
		activityService: activityService,
		logger:          logger,
	}
}

// ---- emergency contacts ----

func (h *TrackingHandler) ListContacts(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	list, err := h.contactService.ListContacts(r.Context(), c.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

func (h *TrackingHandler) AddContact(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	var req service.AddContactRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	contact, err := h.contactService.AddContact(r.Context(), c.UserID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, OkMessage("successfully added emergency contact", contact))
}

func (h *TrackingHandler) GetContact(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	contact, err := h.contactService.GetContact(r.Context(), c.UserID, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(contact))
}

func (h *TrackingHandler) DeleteContact(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.contactService.DeleteContact(r.Context(), c.UserID, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, OkMessage[any]("successfully deleted emergency contact", nil))
}

// ---- trips ----

func (h *TrackingHandler) GetCurrentTrip(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	trip, err := h.tripService.GetCurrentTrip(r.Context(), c.UserID, c.Role)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(trip))
}

func (h *TrackingHandler) StartTrip(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	var req service.StartTripRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	trip, err := h.tripService.StartTrip(r.Context(), c.UserID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, OkMessage("successfully added current trip", trip))
}

func (h *TrackingHandler) EndTrip(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	if err := h.tripService.EndTrip(r.Context(), c.UserID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, OkMessage[any]("successfully deleted current trip", nil))
}

func (h *TrackingHandler) ListPastTrips(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	list, err := h.tripService.ListPastTrips(r.Context(), c.UserID, c.Role)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

func (h *TrackingHandler) AddPastTrip(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	var req service.AddPastTripRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	trip, err := h.tripService.AddPastTrip(r.Context(), c.UserID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, OkMessage("successfully added past trips", trip))
}

func (h *TrackingHandler) GetPastTrip(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	trip, err := h.tripService.GetPastTrip(r.Context(), c.UserID, c.Role, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(trip))
}

// ---- activities ----

func (h *TrackingHandler) ListActivities(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	list, err := h.activityService.ListActivities(r.Context(), c.UserID, c.Role)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

func (h *TrackingHandler) AddActivity(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	var req service.AddActivityRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	activity, err := h.activityService.AddActivity(r.Context(), c.UserID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, OkMessage("successfully added activity", activity))
}

func (h *TrackingHandler) GetActivity(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	activity, err := h.activityService.GetActivity(r.Context(), c.UserID, c.Role, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(activity))
}

// RegisterTrackingRoutes /api/user 下的联系人、行程、活动
func (r *Router) RegisterTrackingRoutes(h *TrackingHandler, g *Guards) {
	impaired := g.Role(domain.RoleImpaired)

	r.route("/api/user/emergency_contact", methods{
		http.MethodGet:  {guard: impaired, handle: h.ListContacts},
		http.MethodPost: {guard: impaired, handle: h.AddContact},
	})
	r.route("/api/user/emergency_contact/{id}", methods{
		http.MethodGet:    {guard: impaired, handle: h.GetContact},
		http.MethodDelete: {guard: impaired, handle: h.DeleteContact},
	})

	r.route("/api/user/current_trip", methods{
		http.MethodGet:    {guard: g.Auth(), handle: h.GetCurrentTrip},
		http.MethodPost:   {guard: impaired, handle: h.StartTrip},
		http.MethodDelete: {guard: impaired, handle: h.EndTrip},
	})
	r.route("/api/user/past_trip", methods{
		http.MethodGet:  {guard: g.Auth(), handle: h.ListPastTrips},
		http.MethodPost: {guard: impaired, handle: h.AddPastTrip},
	})
	r.route("/api/user/past_trip/{id}", methods{
		http.MethodGet: {guard: g.Auth(), handle: h.GetPastTrip},
	})

	r.route("/api/user/activity", methods{
		http.MethodGet:  {guard: g.Auth(), handle: h.ListActivities},
		http.MethodPost: {guard: impaired, handle: h.AddActivity},
	})
	r.route("/api/user/activity/{id}", methods{
		http.MethodGet: {guard: g.Auth(), handle: h.GetActivity},
	})
}
