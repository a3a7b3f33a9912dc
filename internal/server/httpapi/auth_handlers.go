package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/common"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (s *Server) setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(r.Context(), w, fmt.Errorf("%w: invalid json body", common.ErrValidation))
		return
	}

	user, token, err := s.accounts.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.setAuthCookie(w, token)
	s.writeJSON(w, http.StatusCreated, userResponse{ID: user.ID, Username: user.UserName})
}

func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(r.Context(), w, fmt.Errorf("%w: invalid json body", common.ErrValidation))
		return
	}

	user, token, err := s.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.setAuthCookie(w, token)
	s.writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Username: user.UserName})
}
