package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath applies CLI/XDG/home fallback rules for config.jsonc location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "vocode", "config.jsonc"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "vocode", "config.jsonc"), nil
}

// PatternsPath resolves patterns.file relative to the config directory.
// An empty value selects patterns.yaml next to the config file.
func PatternsPath(configPath string, file string) string {
	file = strings.TrimSpace(file)
	dir := filepath.Dir(configPath)
	if file == "" {
		return filepath.Join(dir, "patterns.yaml")
	}
	if strings.HasPrefix(file, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, file[2:])
		}
	}
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}

// WorkspaceRoot returns workspace.root, or the working directory when unset.
func WorkspaceRoot(cfg Config) (string, error) {
	root := strings.TrimSpace(cfg.Workspace.Root)
	if root == "" {
		return os.Getwd()
	}
	if strings.HasPrefix(root, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		root = filepath.Join(home, root[2:])
	}
	return filepath.Abs(root)
}
