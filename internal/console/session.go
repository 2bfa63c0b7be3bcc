package console

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/wolfeidau/gitclub-console/internal/login"
)

type loginData struct {
	Username  string
	ReturnTo  string
	ErrorCode string
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	if _, err := s.sessions.GetSession(r); err == nil {
		http.Redirect(w, r, login.SafeReturnPath(r.URL.Query().Get("return_to"), "/orgs"), http.StatusFound)
		return
	}

	s.render(w, r, http.StatusOK, "login", "Sign In", loginData{
		ReturnTo:  r.URL.Query().Get("return_to"),
		ErrorCode: r.URL.Query().Get("error_code"),
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	username := formValue(r, "username")
	returnTo := r.PostFormValue("return_to")

	if _, err := s.sessions.StartSession(w, r, username); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("username", username).Msg("Login failed")
		s.renderForm(w, r, "login", "Sign In", loginData{Username: username, ReturnTo: returnTo}, err)
		return
	}

	http.Redirect(w, r, login.SafeReturnPath(returnTo, "/orgs"), http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.EndSession(w, r); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Logout failed")
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
