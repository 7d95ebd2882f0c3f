// internal/auth/session.go
package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name under which sessions are stored
	// in the OS keyring.
	KeyringService = "crawlee"
	// FallbackDir is the directory (under the user home) for file-based
	// session storage when the keyring is unavailable.
	FallbackDir = ".crawlee/sessions"
	// SessionDirEnv overrides the file-based session directory and forces
	// file storage when set.
	SessionDirEnv = "CRAWLEE_SESSION_DIR"

	manifestKey = "_manifest"
)

// SessionData is a stored authentication session: the cookies and headers
// captured after logging in to a site, reusable by both the HTTP client and
// the browser pool.
type SessionData struct {
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	Cookies   []Cookie          `json:"cookies"`
	Headers   map[string]string `json:"headers,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at,omitempty"`
}

// Cookie is a browser cookie in the shape produced by DevTools exports.
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

// Expired reports whether the session carries an expiry in the past.
func (s *SessionData) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// HTTPCookies converts the stored cookies for use with an http.CookieJar.
func (s *SessionData) HTTPCookies() []*http.Cookie {
	cookies := make([]*http.Cookie, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		cookie := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HttpOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.Expires > 0 {
			cookie.Expires = time.Unix(int64(c.Expires), 0)
		}
		cookies = append(cookies, cookie)
	}
	return cookies
}

// Keyring access is probed once per process. Codespaces and CI have no
// usable keyring, and SessionDirEnv explicitly opts into file storage.
var (
	storageOnce sync.Once
	fileStorage bool
)

func useFileStorage() bool {
	storageOnce.Do(func() {
		if os.Getenv(SessionDirEnv) != "" || os.Getenv("CODESPACES") != "" || os.Getenv("CI") != "" {
			fileStorage = true
			return
		}
		probe := "_keyring_probe_"
		if err := keyring.Set(KeyringService, probe, "ok"); err != nil {
			fileStorage = true
			return
		}
		keyring.Delete(KeyringService, probe)
	})
	return fileStorage
}

func sessionDir() (string, error) {
	dir := os.Getenv(SessionDirEnv)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dir = filepath.Join(home, FallbackDir)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}
	return dir, nil
}

func sessionPath(name string) (string, error) {
	dir, err := sessionDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+".json"), nil
}

func writeRaw(name string, data []byte) error {
	if useFileStorage() {
		path, err := sessionPath(name)
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0600)
	}
	return keyring.Set(KeyringService, name, string(data))
}

func readRaw(name string) ([]byte, error) {
	if useFileStorage() {
		path, err := sessionPath(name)
		if err != nil {
			return nil, err
		}
		return os.ReadFile(path)
	}
	data, err := keyring.Get(KeyringService, name)
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

func removeRaw(name string) error {
	if useFileStorage() {
		path, err := sessionPath(name)
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	return keyring.Delete(KeyringService, name)
}

// SaveSession stores a session in the OS keyring, or as a 0600 file when no
// keyring is available.
func SaveSession(session *SessionData) error {
	if session.Name == "" {
		return fmt.Errorf("session name cannot be empty")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}
	if err := writeRaw(session.Name, data); err != nil {
		return fmt.Errorf("failed to save session %q: %w", session.Name, err)
	}
	return nil
}

// LoadSession retrieves a stored session by name. Expired sessions are
// rejected.
func LoadSession(name string) (*SessionData, error) {
	if name == "" {
		return nil, fmt.Errorf("session name cannot be empty")
	}
	data, err := readRaw(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %q: %w", name, err)
	}

	var session SessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to deserialize session %q: %w", name, err)
	}
	if session.Expired() {
		return nil, fmt.Errorf("session %q expired at %s", name, session.ExpiresAt.Format(time.RFC3339))
	}
	return &session, nil
}

// DeleteSession removes a stored session. Deleting a session that does not
// exist in file storage is not an error.
func DeleteSession(name string) error {
	if name == "" {
		return fmt.Errorf("session name cannot be empty")
	}
	if err := removeRaw(name); err != nil {
		return fmt.Errorf("failed to delete session %q: %w", name, err)
	}
	return nil
}

// ListSessions returns the names of all stored sessions. File storage lists
// the session directory; keyring storage consults the manifest entry, since
// keyrings cannot be enumerated portably.
func ListSessions() ([]string, error) {
	if useFileStorage() {
		dir, err := sessionDir()
		if err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return []string{}, nil
			}
			return nil, err
		}
		var sessions []string
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
				continue
			}
			sessions = append(sessions, strings.TrimSuffix(entry.Name(), ".json"))
		}
		return sessions, nil
	}

	manifest, err := keyring.Get(KeyringService, manifestKey)
	if err != nil {
		// No manifest yet means no sessions saved.
		return []string{}, nil
	}
	var sessions []string
	if err := json.Unmarshal([]byte(manifest), &sessions); err != nil {
		return nil, fmt.Errorf("failed to deserialize session manifest: %w", err)
	}
	return sessions, nil
}

func updateManifest(name string, add bool) error {
	sessions, _ := ListSessions()

	updated := sessions[:0]
	present := false
	for _, s := range sessions {
		if s == name {
			present = true
			if !add {
				continue
			}
		}
		updated = append(updated, s)
	}
	if add && !present {
		updated = append(updated, name)
	}

	data, err := json.Marshal(updated)
	if err != nil {
		return err
	}
	return keyring.Set(KeyringService, manifestKey, string(data))
}

// SaveSessionWithManifest saves a session and records it in the keyring
// manifest. File storage needs no manifest.
func SaveSessionWithManifest(session *SessionData) error {
	if err := SaveSession(session); err != nil {
		return err
	}
	if useFileStorage() {
		return nil
	}
	return updateManifest(session.Name, true)
}

// DeleteSessionWithManifest deletes a session and removes it from the
// keyring manifest.
func DeleteSessionWithManifest(name string) error {
	if err := DeleteSession(name); err != nil {
		return err
	}
	if useFileStorage() {
		return nil
	}
	return updateManifest(name, false)
}
