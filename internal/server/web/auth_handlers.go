package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gotodo/internal/server/auth"
	"github.com/dmitrijs2005/gotodo/internal/server/services"
)

const (
	msgLogout      = "Logout Successful"
	msgUserCreated = "User successfully created"
	msgUnknown     = "Unknown Error"
)

func (s *HTTPServer) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageLogin, pageData{})
}

// loginCredentials reads the login form. The username field falls back to
// email, which is what older login forms posted.
func loginCredentials(r *http.Request) (string, string) {
	username := r.PostFormValue("username")
	if username == "" {
		username = r.PostFormValue("email")
	}
	return username, r.PostFormValue("password")
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	username, password := loginCredentials(r)

	token, _, err := s.users.Login(r.Context(), username, password)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		s.render(w, r, http.StatusOK, pageLogin, pageData{Msg: err.Error(), Username: username})
		return
	case err != nil:
		s.render(w, r, http.StatusInternalServerError, pageLogin, pageData{Msg: msgUnknown})
		return
	}

	auth.SetTokenCookie(w, token, s.users.LoginTTL(), s.secureCookie)
	http.Redirect(w, r, "/todos", http.StatusFound)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// handleToken is the machine-friendly login: form credentials in, JSON out.
// The cookie is set as well so the token works for the HTML pages.
func (s *HTTPServer) handleToken(w http.ResponseWriter, r *http.Request) {
	username, password := loginCredentials(r)

	token, _, err := s.users.Login(r.Context(), username, password)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: msgUnknown})
		return
	}

	auth.SetTokenCookie(w, token, s.users.LoginTTL(), s.secureCookie)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Logout(r.Context(), auth.TokenFromRequest(r)); err != nil {
		s.logger.Warn(r.Context(), "logout could not revoke token", "error", err)
	}
	auth.ClearTokenCookie(w, s.secureCookie)

	// the gate already resolved this request; the page must not show it as signed in
	s.render(w, r.WithContext(auth.WithoutIdentity(r.Context())), http.StatusOK, pageLogin, pageData{Msg: msgLogout})
}

func (s *HTTPServer) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageRegister, pageData{})
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	req := services.RegisterRequest{
		Email:     r.PostFormValue("email"),
		Username:  r.PostFormValue("username"),
		FirstName: r.PostFormValue("firstname"),
		LastName:  r.PostFormValue("lastname"),
		Password:  r.PostFormValue("password"),
		Password2: r.PostFormValue("password2"),
	}

	_, err := s.users.Register(r.Context(), req)
	switch {
	case errors.Is(err, services.ErrInvalidRegistration):
		s.render(w, r, http.StatusOK, pageRegister, pageData{Msg: err.Error(), Username: req.Username, Email: req.Email})
	case err != nil:
		s.render(w, r, http.StatusInternalServerError, pageRegister, pageData{Msg: msgUnknown})
	default:
		s.render(w, r, http.StatusOK, pageLogin, pageData{Msg: msgUserCreated})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
