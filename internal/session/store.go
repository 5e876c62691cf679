// Package session caches the login session between runs so the app can
// go straight to the timeline. Tokens only; never the password.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/perchapp/perch/internal/feed"
)

const sessionFile = "session.json"

func sessionPath() (string, error) {
	if override := os.Getenv("PERCH_SESSION_DIR"); override != "" {
		return filepath.Join(override, sessionFile), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir = filepath.Join(dir, "perch")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, sessionFile), nil
}

// Save writes the session atomically (tmp + rename).
func Save(sess feed.Session) error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load returns the cached session, or nil when none exists.
func Load() (*feed.Session, error) {
	path, err := sessionPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var sess feed.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	if sess.AccessJwt == "" {
		return nil, nil
	}
	return &sess, nil
}

// Clear removes the cached session. Missing file is not an error.
func Clear() error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
