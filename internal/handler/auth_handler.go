package handler

import (
	"net/http"

	"go-portfolio-cms/internal/middleware"
	"go-portfolio-cms/internal/model"
	"go-portfolio-cms/pkg/apierror"
)

type authenticator interface {
	Login(req model.LoginRequest) (model.TokenPair, error)
}

type AuthHandler struct {
	service authenticator
}

func NewAuthHandler(service authenticator) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	tokens, err := h.service.Login(payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, tokens, nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	writeSuccess(w, http.StatusOK, model.AuthUser{ID: claims.UserID, Username: claims.Username, Role: claims.Role}, nil)
}
