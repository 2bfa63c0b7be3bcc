package console

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/wolfeidau/gitclub-console/internal/api"
	"github.com/wolfeidau/gitclub-console/internal/jobs"
	"github.com/wolfeidau/gitclub-console/internal/login"
	"github.com/wolfeidau/gitclub-console/internal/models"

	httputil "github.com/wolfeidau/gitclub-console/internal/http"
)

var (
	// ErrEmptyName is returned when a create form is submitted without a name.
	ErrEmptyName = errors.New("name must not be empty")

	// ErrUnknownRole is returned when a member form names a role the scope does not offer.
	ErrUnknownRole = errors.New("unknown role")
	// ErrNoUser is returned when a member form does not identify a user.
	ErrNoUser = errors.New("a user must be selected")

	errNotFound = errors.New("page not found")
)

// view is the data every page template is executed with.
type view struct {
	Title   string
	User    *models.User
	Path    string
	Scripts []string
	Error   string
	Data    any
}

func (s *Server) newView(r *http.Request, page, title string, data any) view {
	v := view{
		Title: title,
		Path:  r.URL.Path,
		Data:  data,
	}
	if user, ok := login.UserFromContext(r.Context()); ok {
		v.User = user
	}
	if page == "jobs" {
		v.Scripts = s.pages.Scripts(jobsEntryPoint)
	}
	return v
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page, title string, data any) {
	s.pages.Render(w, status, page, s.newView(r, page, title, data))
}

// renderForm re-renders page with formErr shown above the form.
func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, page, title string, data any, formErr error) {
	v := s.newView(r, page, title, data)
	v.Error = formErr.Error()
	s.pages.Render(w, statusFor(formErr), page, v)
}

type errorData struct {
	Status     int
	StatusText string
	Message    string
	RequestID  string
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, err error) {
	zerolog.Ctx(r.Context()).Debug().Err(err).Int("status", status).Msg("Rendering error page")

	s.render(w, r, status, "error", http.StatusText(status), errorData{
		Status:     status,
		StatusText: http.StatusText(status),
		Message:    err.Error(),
		RequestID:  httputil.RequestIDFromContext(r.Context()),
	})
}

// fail renders the error page for err with the status it maps to.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		// client went away
		return
	}
	status := statusFor(err)
	if status >= 500 {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Backend request failed")
	}
	s.renderError(w, r, status, err)
}

// statusFor maps backend and validation errors onto the status of the page
// that reports them. Anything unrecognised is a bad gateway.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrEmptyName), errors.Is(err, jobs.ErrEmptyJobName),
		errors.Is(err, ErrUnknownRole), errors.Is(err, ErrNoUser):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errNotFound), errors.Is(err, api.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, api.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, api.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, api.ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// idParam reads a numeric route parameter. Malformed ids are reported as not found.
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s %q: %w", name, chi.URLParam(r, name), errNotFound)
	}
	return id, nil
}

// repoParams reads the orgID and repoID route parameters.
func repoParams(r *http.Request) (int64, int64, error) {
	orgID, err := idParam(r, "orgID")
	if err != nil {
		return 0, 0, err
	}
	repoID, err := idParam(r, "repoID")
	if err != nil {
		return 0, 0, err
	}
	return orgID, repoID, nil
}

func seeOther(w http.ResponseWriter, r *http.Request, format string, args ...any) {
	http.Redirect(w, r, fmt.Sprintf(format, args...), http.StatusSeeOther)
}

// ago describes how long ago t was, e.g. "3 minutes ago".
func ago(t models.Timestamp) string {
	return agoAt(t, time.Now())
}

func agoAt(t models.Timestamp, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	// backend clocks may run slightly ahead
	if t.After(now) {
		t.Time = now
	}
	return humanize.RelTime(t.Time, now, "ago", "from now")
}

func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.PostFormValue(key))
}
