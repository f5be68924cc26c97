// Package config loads the optional ngxmon config file. Values from the
// file are defaults; command-line flags always win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const defaultPath = "~/.config/ngxmon/config.toml"

// File mirrors the TOML config. Zero values mean "not set": they never
// override a built-in default or a flag.
type File struct {
	AccessLog   string `toml:"access_log"`
	ErrorLog    string `toml:"error_log"`
	Window      int    `toml:"window"`
	ErrorWindow int    `toml:"error_window"`
	RefreshSec  int    `toml:"refresh_seconds"`
	TopN        int    `toml:"top"`
	StripQuery  bool   `toml:"strip_query"`
	LogOutput   string `toml:"outlog"`
}

// Load reads the config file at path, or the default location when path is
// empty. A missing file at the default location is not an error; a missing
// explicitly-given file is.
func Load(path string) (File, error) {
	explicit := strings.TrimSpace(path) != ""
	resolved, err := resolvePath(path)
	if err != nil {
		return File{}, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return File{}, nil
		}
		return File{}, fmt.Errorf("open config: %w", err)
	}

	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse config: %w", err)
	}
	return f, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultPath
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}
