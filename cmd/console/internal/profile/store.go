package profile

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/wolfeidau/gitclub-console/internal/models"
)

const fileName = "profiles.yaml"

// Sentinel errors
var (
	// ErrProfileNotFound is returned when a profile doesn't exist.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrInvalidName is returned for profile names that cannot be stored.
	ErrInvalidName = errors.New("invalid profile name")
)

// Cookie is a backend cookie persisted between CLI invocations.
type Cookie struct {
	Name    string    `yaml:"name"`
	Value   string    `yaml:"value"`
	Path    string    `yaml:"path,omitempty"`
	Domain  string    `yaml:"domain,omitempty"`
	Expires time.Time `yaml:"expires,omitempty"`
}

// Profile is a logged in backend identity.
type Profile struct {
	Name       string    `yaml:"-"`
	BackendURL string    `yaml:"backend_url"`
	UserID     int64     `yaml:"user_id,omitempty"`
	Username   string    `yaml:"username"`
	Cookies    []Cookie  `yaml:"cookies,omitempty"`
	UpdatedAt  time.Time `yaml:"updated_at"`
}

// User returns the backend identity of the profile.
func (p *Profile) User() models.User {
	return models.User{ID: p.UserID, Username: p.Username}
}

// HTTPCookies converts the stored cookies, dropping expired ones.
func (p *Profile) HTTPCookies() []*http.Cookie {
	now := time.Now()
	cookies := make([]*http.Cookie, 0, len(p.Cookies))
	for _, c := range p.Cookies {
		if !c.Expires.IsZero() && c.Expires.Before(now) {
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Path:    c.Path,
			Domain:  c.Domain,
			Expires: c.Expires,
		})
	}
	return cookies
}

// SetCookies replaces the stored cookies.
func (p *Profile) SetCookies(cookies []*http.Cookie) {
	p.Cookies = p.Cookies[:0]
	for _, c := range cookies {
		p.Cookies = append(p.Cookies, Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Path:    c.Path,
			Domain:  c.Domain,
			Expires: c.Expires,
		})
	}
}

type file struct {
	Version  int                 `yaml:"version"`
	Profiles map[string]*Profile `yaml:"profiles"`
}

// Store keeps profiles in a YAML file readable only by the current user.
type Store struct {
	baseDir string
}

// NewStore creates a profile store.
// If baseDir is empty, uses <user config dir>/gitclub
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user config directory: %w", err)
		}
		baseDir = filepath.Join(configDir, "gitclub")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}

	log.Debug().Str("baseDir", baseDir).Msg("profile store initialized")

	return &Store{baseDir: baseDir}, nil
}

// Path returns the profile file location.
func (s *Store) Path() string {
	return filepath.Join(s.baseDir, fileName)
}

// Get loads the named profile.
func (s *Store) Get(name string) (*Profile, error) {
	f, err := s.load()
	if err != nil {
		return nil, err
	}

	p, ok := f.Profiles[name]
	if !ok || p == nil {
		return nil, ErrProfileNotFound
	}
	p.Name = name
	return p, nil
}

// List returns all profiles sorted by name.
func (s *Store) List() ([]*Profile, error) {
	f, err := s.load()
	if err != nil {
		return nil, err
	}

	profiles := make([]*Profile, 0, len(f.Profiles))
	for name, p := range f.Profiles {
		p.Name = name
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })

	return profiles, nil
}

// Save creates or replaces a profile.
func (s *Store) Save(p *Profile) error {
	if p.Name == "" {
		return ErrInvalidName
	}

	f, err := s.load()
	if err != nil {
		return err
	}

	p.UpdatedAt = time.Now().UTC()
	f.Profiles[p.Name] = p

	if err := s.save(f); err != nil {
		return err
	}

	log.Debug().Str("profile", p.Name).Str("username", p.Username).Msg("profile saved")
	return nil
}

// Delete removes a profile.
func (s *Store) Delete(name string) error {
	f, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := f.Profiles[name]; !ok {
		return ErrProfileNotFound
	}
	delete(f.Profiles, name)

	return s.save(f)
}

// load reads the profile file, returning an empty one when it does not exist yet.
func (s *Store) load() (*file, error) {
	f := &file{Version: 1, Profiles: map[string]*Profile{}}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return f, nil
		}
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}

	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}
	if f.Profiles == nil {
		f.Profiles = map[string]*Profile{}
	}

	return f, nil
}

// save writes the profile file atomically.
func (s *Store) save(f *file) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}

	tempPath := s.Path() + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write profiles: %w", err)
	}

	if err := os.Rename(tempPath, s.Path()); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save profiles: %w", err)
	}

	return nil
}
