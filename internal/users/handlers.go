// internal/users/handlers.go

package users

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/giit-community/futurenet-backend/internal/common/utils"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register creates an account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := h.service.Register(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			utils.ErrorResponse(w, err.Error(), http.StatusConflict)
			return
		}
		utils.ErrorResponse(w, "Registration failed", http.StatusInternalServerError)
		return
	}
	utils.SuccessResponse(w, resp, http.StatusCreated)
}

// Login exchanges credentials for an access token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := h.service.Login(r.Context(), &req)
	if err != nil {
		utils.ErrorResponse(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}
	utils.SuccessResponse(w, resp, http.StatusOK)
}

// Me returns the authenticated user's record.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	user, err := h.service.Get(r.Context(), userID)
	if err != nil {
		utils.ErrorResponse(w, "User not found", http.StatusNotFound)
		return
	}
	utils.SuccessResponse(w, user, http.StatusOK)
}

// List returns the community member directory.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	utils.SuccessResponse(w, h.service.List(r.Context()), http.StatusOK)
}

// Get returns one user by id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		utils.ErrorResponse(w, "User not found", http.StatusNotFound)
		return
	}
	utils.SuccessResponse(w, user, http.StatusOK)
}
