package httpapi

import (
	"net/http"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/authz"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/service"

	"go.uber.org/zap"
)

// ConversationHandler caretaker 会话；路由均要求已配对
type ConversationHandler struct {
	conversationService service.ConversationService
	logger              *zap.Logger
}

func NewConversationHandler(conversationService service.ConversationService, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService, logger: logger}
}

func participant(c *authz.Caller) service.Participant {
	return service.Participant{UserID: c.UserID, Role: c.Role, CounterpartID: c.CounterpartID}
}

func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	conv, created, err := h.conversationService.CreateConversation(r.Context(), participant(c))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, OkMessage("successfully added conversation", conv))
}

func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	if err := h.conversationService.DeleteConversation(r.Context(), participant(c)); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, OkMessage[any]("successfully removed conversation", nil))
}

func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	msgs, err := h.conversationService.ListMessages(r.Context(), participant(c))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(msgs))
}

func (h *ConversationHandler) AppendMessage(w http.ResponseWriter, r *http.Request, c *authz.Caller) {
	var req service.AppendMessageRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	msg, err := h.conversationService.AppendMessage(r.Context(), participant(c), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, OkMessage("successfully added conversation message", msg))
}

// RegisterConversationRoutes /api/user/caretaker_conversation
func (r *Router) RegisterConversationRoutes(h *ConversationHandler, g *Guards) {
	paired := g.Paired()
	r.route("/api/user/caretaker_conversation", methods{
		http.MethodPost:   {guard: paired, handle: h.Create},
		http.MethodDelete: {guard: paired, handle: h.Delete},
	})
	r.route("/api/user/caretaker_conversation/messages", methods{
		http.MethodGet:  {guard: paired, handle: h.ListMessages},
		http.MethodPost: {guard: paired, handle: h.AppendMessage},
	})
}
