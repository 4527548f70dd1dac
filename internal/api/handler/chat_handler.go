package handler

import (
	"context"
	"log/slog"
	"net/http"

	"loan-agreement-engine/internal/api/handler/dto"
)

// ChatDispatcher routes one inbound chat message through the interview and
// borrower-response flows.
type ChatDispatcher interface {
	Handle(ctx context.Context, from, text string) (bool, error)
}

type ChatHandler struct {
	dispatcher ChatDispatcher
	logger     *slog.Logger
}

func NewChatHandler(d ChatDispatcher, l *slog.Logger) *ChatHandler {
	if d == nil {
		panic("chat dispatcher cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &ChatHandler{dispatcher: d, logger: l.With("component", "ChatHandler")}
}

// ReceiveMessage handles POST /chat/messages
// @Summary Deliver an inbound chat message
// @Description Feeds one message from the chat gateway into the agreement interview. Replies to the sender are published asynchronously.
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body dto.ChatMessageRequest true "Inbound message"
// @Success 200 {object} dto.ChatMessageResponse "Whether the message was consumed by a flow"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /chat/messages [post]
func (h *ChatHandler) ReceiveMessage(w http.ResponseWriter, r *http.Request) {
	var req dto.ChatMessageRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Rejected chat message payload", slog.Any("error", err))
		respondError(w, err)
		return
	}

	handled, err := h.dispatcher.Handle(r.Context(), req.From, req.Text)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Chat message handling failed", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.DebugContext(r.Context(), "Chat message processed", slog.Bool("handled", handled))
	respondJSON(w, http.StatusOK, dto.ChatMessageResponse{Handled: handled})
}
