package http

import (
	"errors"
	"net/http"

	"github.com/studyhall/studyhall-lms/internal/auth"
	"github.com/studyhall/studyhall-lms/internal/lms"
)

type registerReq struct {
	Username  string `json:"username" validate:"required,min=3,max=80"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Role      string `json:"role" validate:"omitempty,oneof=student instructor"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

// POST /auth/register
func RegisterHandler(a *auth.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerReq
		if err := decodeValid(r, &req); err != nil {
			http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
			return
		}
		u, err := a.Register(r.Context(), req.Username, req.Email, req.Password, req.Role, req.FirstName, req.LastName)
		if errors.Is(err, lms.ErrConflict) {
			http.Error(w, "username or email already taken", http.StatusConflict)
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, u)
	}
}

type loginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// POST /auth/login
func LoginHandler(a *auth.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := decodeValid(r, &req); err != nil {
			http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
			return
		}
		tok, u, err := a.Login(r.Context(), req.Username, req.Password)
		if errors.Is(err, auth.ErrBadCredentials) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"access_token": tok, "user": u})
	}
}
