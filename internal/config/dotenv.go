package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnv seeds provider credentials from .env files in dirs. Existing environment
// variables always win. Returns the files that were applied.
func LoadEnv(dirs ...string) ([]string, []Warning) {
	var (
		applied  []string
		warnings []Warning
		seen     = make(map[string]struct{}, len(dirs))
	)

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, ".env")
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}

		if _, err := os.Stat(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				warnings = append(warnings, Warning{Message: fmt.Sprintf("stat %s: %v", path, err)})
			}
			continue
		}
		if err := godotenv.Load(path); err != nil {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("load %s: %v", path, err)})
			continue
		}
		applied = append(applied, path)
	}

	return applied, warnings
}
