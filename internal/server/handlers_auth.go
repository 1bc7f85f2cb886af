package server

import (
	"net/http"
)

type registerRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Phone    string `json:"phone" validate:"required,min=7,max=15"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decode(w, r, &req) {
		return
	}

	user, err := s.service.RegisterUser(r.Context(), req.FullName, req.Phone, req.Email, req.Password)
	if err != nil {
		s.respondErr(w, err)
		return
	}

	token, err := s.issueToken(user)
	if err != nil {
		s.logger.Errorf("handleRegister: issue token: %v", err)
		s.respondErr(w, err)
		return
	}

	s.respond(w, http.StatusCreated, "Registration successful", map[string]interface{}{
		"user":  user,
		"token": token,
	})
}

type loginRequest struct {
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}

	user, err := s.service.Authenticate(r.Context(), req.Phone, req.Password)
	if err != nil {
		s.respondErr(w, err)
		return
	}

	token, err := s.issueToken(user)
	if err != nil {
		s.logger.Errorf("handleLogin: issue token: %v", err)
		s.respondErr(w, err)
		return
	}

	s.respond(w, http.StatusOK, "Login successful", map[string]interface{}{
		"user":  user,
		"token": token,
	})
}
