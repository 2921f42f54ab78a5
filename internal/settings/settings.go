package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v3"

	"github.com/studio1767/hashforge/internal/digest"
)

// Settings are the persisted user preferences.
type Settings struct {
	DefaultAlgorithm digest.Algorithm
	DarkTheme        bool
}

// Defaults are used for anything missing or unreadable.
func Defaults() Settings {
	return Settings{
		DefaultAlgorithm: digest.SHA256,
		DarkTheme:        true,
	}
}

// the on-disk layout
type document struct {
	DefaultAlgorithm string `yaml:"default_algorithm"`
	DarkTheme        *bool  `yaml:"dark_theme"`
}

// DefaultPath is settings.yml under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "hashforge", "settings.yml"), nil
}

// Load reads the settings at path. A missing or corrupt file, or a field
// with an unusable value, falls back to the default for that field; the
// error is only informational.
func Load(path string) (Settings, error) {
	settings := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, err
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return settings, fmt.Errorf("corrupt settings file %s: %w", path, err)
	}

	// an unusable algorithm keeps its default; the other fields still load
	var algErr error
	if doc.DefaultAlgorithm != "" {
		alg, err := digest.Parse(doc.DefaultAlgorithm)
		if err != nil {
			algErr = err
		} else {
			settings.DefaultAlgorithm = alg
		}
	}
	if doc.DarkTheme != nil {
		settings.DarkTheme = *doc.DarkTheme
	}

	return settings, algErr
}

// Save writes the settings, creating the directory if needed.
func Save(path string, settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	dark := settings.DarkTheme
	data, err := yaml.Marshal(&document{
		DefaultAlgorithm: settings.DefaultAlgorithm.String(),
		DarkTheme:        &dark,
	})
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
