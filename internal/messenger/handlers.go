// internal/messenger/handlers.go

package messenger

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/giit-community/futurenet-backend/internal/common/authctx"
	"github.com/giit-community/futurenet-backend/internal/common/utils"
)

type Handler struct {
	service *Service
	media   MediaStorage
	hub     *Hub
	log     *zap.SugaredLogger

	maxUploadSize int64
}

func NewHandler(service *Service, media MediaStorage, hub *Hub, maxUploadSize int64, log *zap.SugaredLogger) *Handler {
	return &Handler{
		service:       service,
		media:         media,
		hub:           hub,
		maxUploadSize: maxUploadSize,
		log:           log,
	}
}

// userID pulls the authenticated user from the request context; the auth
// middleware guarantees it on protected routes.
func userID(r *http.Request) string {
	id, _ := authctx.UserID(r.Context())
	return id
}

// GetChats lists the caller's conversations, most recent first.
func (h *Handler) GetChats(w http.ResponseWriter, r *http.Request) {
	views := h.service.ChatViews(r.Context(), userID(r))
	utils.SuccessResponse(w, views, http.StatusOK)
}

// StartDirectChat finds or creates the DM with another user.
func (h *Handler) StartDirectChat(w http.ResponseWriter, r *http.Request) {
	otherID := mux.Vars(r)["userId"]
	view, err := h.service.StartPrivateChat(r.Context(), userID(r), otherID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.SuccessResponse(w, view, http.StatusOK)
}

// CreateGroupChat creates a group conversation.
func (h *Handler) CreateGroupChat(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	view, err := h.service.CreateGroupChat(r.Context(), userID(r), &req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.SuccessResponse(w, view, http.StatusCreated)
}

// StartAssistantChat finds or creates the caller's assistant chat.
func (h *Handler) StartAssistantChat(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.StartAssistantChat(r.Context(), userID(r))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.SuccessResponse(w, view, http.StatusOK)
}

// GetMessages returns the ordered messages of one chat.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["id"]
	messages, err := h.service.Messages(r.Context(), chatID, userID(r))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.SuccessResponse(w, messages, http.StatusOK)
}

// SendMessage appends an outgoing message.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	msg, err := h.service.SendMessage(r.Context(), userID(r), &req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.SuccessResponse(w, msg, http.StatusCreated)
}

// MarkRead resets a chat's unread counter.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["id"]
	if err := h.service.MarkRead(r.Context(), chatID, userID(r)); err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.MessageResponse(w, "Chat marked as read", http.StatusOK)
}

// SetActive records which chat the caller is viewing. Body: {"chatId": ""}
// deselects.
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChatID string `json:"chatId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.service.SetActive(r.Context(), userID(r), req.ChatID); err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.MessageResponse(w, "Active chat updated", http.StatusOK)
}

// UpdateTyping toggles the caller's typing indicator.
func (h *Handler) UpdateTyping(w http.ResponseWriter, r *http.Request) {
	var req TypingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.service.Typing(r.Context(), userID(r), &req); err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.MessageResponse(w, "Typing status updated", http.StatusOK)
}

// UploadMedia stores a media file and returns its URL for use as a
// message payload.
func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		utils.ErrorResponse(w, "File too large or malformed upload", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		utils.ErrorResponse(w, "Missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	url, err := h.media.Upload(r.Context(), file, header)
	if err != nil {
		switch {
		case errors.Is(err, ErrFileTooLarge), errors.Is(err, ErrUnsupportedType):
			utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		default:
			h.log.Errorw("media upload failed", "error", err)
			utils.ErrorResponse(w, "Upload failed", http.StatusInternalServerError)
		}
		return
	}
	utils.SuccessResponse(w, map[string]string{"url": url}, http.StatusCreated)
}

// HandleWebSocket upgrades the connection and joins the event stream.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := userID(r)
	if id == "" {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	ServeWS(h.hub, w, r, id, h.log)
}

// HealthCheck reports liveness plus a couple of cheap gauges.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	utils.SuccessResponse(w, map[string]interface{}{
		"status":      "ok",
		"connections": h.hub.ActiveConnections(),
		"messages":    h.service.dir.LedgerLen(),
	}, http.StatusOK)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrChatNotFound):
		utils.ErrorResponse(w, "Chat not found", http.StatusNotFound)
	case errors.Is(err, ErrNotParticipant):
		utils.ErrorResponse(w, "Not a participant in this chat", http.StatusForbidden)
	case errors.Is(err, ErrValidation):
		utils.ErrorResponse(w, "Validation failed", http.StatusBadRequest)
	default:
		h.log.Errorw("messenger request failed", "error", err)
		utils.ErrorResponse(w, "Request failed", http.StatusInternalServerError)
	}
}
