package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/visaflow/internal/middleware"
	"github.com/visaflow/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

func (h *ChatHandler) Thread(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetIdentity(r.Context())
	msgs, err := h.chat.GetThread(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, msgs)
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetIdentity(r.Context())
	var req service.SendMessageRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	msg, err := h.chat.Send(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, msg)
}

type systemMessageRequest struct {
	Content string `json:"content"`
}

func (h *ChatHandler) SendSystem(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetIdentity(r.Context())
	var req systemMessageRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	msg, err := h.chat.SendSystem(r.Context(), actor, chi.URLParam(r, "id"), req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, msg)
}

type markReadRequest struct {
	MessageIDs []string `json:"message_ids"`
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetIdentity(r.Context())
	var req markReadRequest
	if r.ContentLength > 0 && !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.chat.MarkRead(r.Context(), actor, chi.URLParam(r, "id"), req.MessageIDs); err != nil {
		writeServiceError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "messages marked as read")
}

func (h *ChatHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetIdentity(r.Context())
	limit := queryInt(r, "limit", 50)
	feed, err := h.chat.Feed(r.Context(), actor, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, feed)
}
