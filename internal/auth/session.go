// Package auth stores login sessions (cookies and headers) for reuse by
// the backends, in the OS keyring when available and in files otherwise.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the keyring service sessions are stored under.
	KeyringService = "scrapekit"
	// FallbackDir is the directory, relative to the home directory, used
	// when no keyring is reachable.
	FallbackDir = ".scrapekit/sessions"

	manifestKey = "_manifest"
)

// ErrSessionExpired is returned when every cookie of a stored session has expired.
var ErrSessionExpired = errors.New("session expired")

// SessionData is a stored authentication session.
type SessionData struct {
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	Cookies   []Cookie          `json:"cookies"`
	Headers   map[string]string `json:"headers,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at,omitempty"`
}

// Cookie is a browser cookie as captured from DevTools.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// HTTPCookies converts the session cookies for use by the backends.
// Session cookies (Expires <= 0) carry a zero Expires.
func (s *SessionData) HTTPCookies() []*http.Cookie {
	out := make([]*http.Cookie, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HttpOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.Expires > 0 {
			hc.Expires = time.Unix(int64(c.Expires), 0)
		}
		out = append(out, hc)
	}
	return out
}

// HTTPHeaders returns the stored headers.
func (s *SessionData) HTTPHeaders() http.Header {
	h := make(http.Header, len(s.Headers))
	for k, v := range s.Headers {
		h.Set(k, v)
	}
	return h
}

// Store persists sessions.
type Store struct {
	useFile bool
	dir     string
}

// NewStore returns a keyring-backed store, falling back to files under the
// home directory when the keyring is unusable (CI, Codespaces, no D-Bus).
func NewStore() *Store {
	home, _ := os.UserHomeDir()
	s := &Store{dir: filepath.Join(home, FallbackDir)}
	s.useFile = !keyringUsable()
	if s.useFile {
		log.Debug().Str("dir", s.dir).Msg("Keyring unavailable, storing sessions in files")
	}
	return s
}

// NewFileStore returns a store that keeps sessions as JSON files in dir.
func NewFileStore(dir string) *Store {
	return &Store{useFile: true, dir: dir}
}

// NewKeyringStore returns a store that always uses the OS keyring.
func NewKeyringStore() *Store {
	return &Store{}
}

func keyringUsable() bool {
	if os.Getenv("CODESPACES") != "" || os.Getenv("CI") != "" {
		return false
	}
	const probe = "_probe_"
	if err := keyring.Set(KeyringService, probe, "ok"); err != nil {
		return false
	}
	_ = keyring.Delete(KeyringService, probe)
	return true
}

// Save stores session under its name, replacing any previous one.
func (s *Store) Save(session *SessionData) error {
	if err := validName(session.Name); err != nil {
		return err
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	if s.useFile {
		if err := os.MkdirAll(s.dir, 0o700); err != nil {
			return fmt.Errorf("failed to create session directory: %w", err)
		}
		if err := os.WriteFile(s.path(session.Name), data, 0o600); err != nil {
			return fmt.Errorf("failed to save session file: %w", err)
		}
		return nil
	}

	if err := keyring.Set(KeyringService, session.Name, string(data)); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	return s.updateManifest(session.Name, true)
}

// Load returns the named session. Expired sessions yield ErrSessionExpired.
func (s *Store) Load(name string) (*SessionData, error) {
	if err := validName(name); err != nil {
		return nil, err
	}

	var data []byte
	if s.useFile {
		b, err := os.ReadFile(s.path(name))
		if err != nil {
			return nil, fmt.Errorf("failed to load session %q: %w", name, err)
		}
		data = b
	} else {
		v, err := keyring.Get(KeyringService, name)
		if err != nil {
			return nil, fmt.Errorf("failed to load session %q from keyring: %w", name, err)
		}
		data = []byte(v)
	}

	var session SessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to deserialize session: %w", err)
	}
	if !session.ExpiresAt.IsZero() && time.Now().After(session.ExpiresAt) {
		return nil, fmt.Errorf("%q: %w", name, ErrSessionExpired)
	}
	return &session, nil
}

// Delete removes the named session. Deleting a missing session is not an error.
func (s *Store) Delete(name string) error {
	if err := validName(name); err != nil {
		return err
	}

	if s.useFile {
		if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete session file: %w", err)
		}
		return nil
	}

	if err := keyring.Delete(KeyringService, name); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return s.updateManifest(name, false)
}

// List returns the stored session names, sorted.
func (s *Store) List() ([]string, error) {
	if s.useFile {
		entries, err := os.ReadDir(s.dir)
		if err != nil {
			if os.IsNotExist(err) {
				return []string{}, nil
			}
			return nil, err
		}
		names := []string{}
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
				names = append(names, strings.TrimSuffix(e.Name(), ".json"))
			}
		}
		slices.Sort(names)
		return names, nil
	}

	raw, err := keyring.Get(KeyringService, manifestKey)
	if err != nil {
		return []string{}, nil
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("failed to deserialize manifest: %w", err)
	}
	slices.Sort(names)
	return names, nil
}

// The keyring cannot be enumerated, so a manifest entry lists the names.
func (s *Store) updateManifest(name string, add bool) error {
	names, err := s.List()
	if err != nil {
		return err
	}
	names = slices.DeleteFunc(names, func(n string) bool { return n == name })
	if add {
		names = append(names, name)
	}
	data, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return keyring.Set(KeyringService, manifestKey, string(data))
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func validName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("session name cannot be empty")
	case name == manifestKey, strings.ContainsAny(name, `/\`), strings.Contains(name, ".."):
		return fmt.Errorf("invalid session name %q", name)
	}
	return nil
}
