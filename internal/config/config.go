package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	dirName   = "travelcrm"
	prefsFile = "config.json"
)

// Store holds the agent preferences and the file they were read from.
type Store struct {
	path   string
	Config Data
}

// Data is the on-disk preferences document.
type Data struct {
	Name       string `json:"name"`
	AgentEmail string `json:"agentEmail"`
	Timezone   string `json:"timezone"`
}

// withDefaults fills the fields a fresh or hand-edited file may lack.
func (d Data) withDefaults() Data {
	d.Name = strings.TrimSpace(d.Name)
	d.AgentEmail = strings.TrimSpace(d.AgentEmail)
	d.Timezone = strings.TrimSpace(d.Timezone)
	if d.Name == "" {
		d.Name = loginName()
	}
	if d.Timezone == "" {
		d.Timezone = localZone()
	}
	return d
}

// Load reads the preferences file. The first run writes one with defaults so the
// agent has something to edit.
func Load() (*Store, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	s := &Store{path: filepath.Join(dir, prefsFile)}

	raw, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.Config = Data{}.withDefaults()
		if err := s.Save(); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", s.path, err)
	}

	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("config: parse config %s: %w", s.path, err)
	}
	s.Config = d.withDefaults()
	return s, nil
}

// Save replaces the preferences file. The document is written next to the
// target first so a crash never leaves a truncated file behind.
func (s *Store) Save() error {
	if s == nil {
		return errors.New("config: save on nil store")
	}
	body, err := json.MarshalIndent(s.Config, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+prefsFile+"-*")
	if err != nil {
		return fmt.Errorf("config: save: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(body, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("config: save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: save: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("config: save: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("config: save: %w", err)
	}
	return nil
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Location resolves the configured timezone. Unknown zones fall back to UTC.
func (s *Store) Location() *time.Location {
	if s == nil {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Config.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Dir returns the travelcrm directory under the user config root and makes sure
// it exists. HOME is used when the platform has no config root.
func Dir() (string, error) {
	root, err := os.UserConfigDir()
	if root == "" || err != nil {
		if root = os.Getenv("HOME"); root == "" {
			return "", fmt.Errorf("config: no config directory: %w", err)
		}
	}
	dir := filepath.Join(root, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("config: mkdir %s: %w", dir, err)
	}
	return dir, nil
}

// loginName is the name shown on the home page until the agent sets one.
func loginName() string {
	for _, key := range []string{"USER", "USERNAME", "LOGNAME"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return "Agent"
}

func localZone() string {
	switch name := time.Local.String(); name {
	case "", "Local":
		return "UTC"
	default:
		return name
	}
}
