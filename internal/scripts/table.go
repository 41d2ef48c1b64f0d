// Package scripts reads the project's named tasks and matches spoken names against them.
package scripts

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/patrickmn/go-cache"
)

// Script is one runnable project task.
type Script struct {
	Name    string
	Command string
	Run     string
	Source  string
}

// Table caches the task list of one workspace root.
type Table struct {
	root  string
	cache *cache.Cache
}

const tableKey = "scripts"

// NewTable builds a table whose listing is re-read after ttl.
func NewTable(root string, ttl time.Duration) *Table {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Table{root: root, cache: cache.New(ttl, 2*ttl)}
}

// Scripts returns the cached task list, reading manifests on a miss.
func (t *Table) Scripts() ([]Script, error) {
	if cached, ok := t.cache.Get(tableKey); ok {
		return cached.([]Script), nil
	}
	list, err := Discover(t.root)
	if err != nil {
		return nil, err
	}
	t.cache.SetDefault(tableKey, list)
	return list, nil
}

// Invalidate drops the cached listing.
func (t *Table) Invalidate() {
	t.cache.Delete(tableKey)
}

// Discover reads package.json scripts, Makefile targets and pyproject.toml scripts under root.
func Discover(root string) ([]Script, error) {
	var out []Script

	readers := []func(string) ([]Script, error){readPackageJSON, readMakefile, readPyproject}
	for _, read := range readers {
		list, err := read(root)
		if err != nil {
			return nil, err
		}
		out = append(out, list...)
	}
	return out, nil
}

func readPackageJSON(root string) ([]Script, error) {
	path := filepath.Join(root, "package.json")
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var manifest struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	out := make([]Script, 0, len(manifest.Scripts))
	for name, cmd := range manifest.Scripts {
		out = append(out, Script{Name: name, Command: cmd, Run: "npm run " + name, Source: "package.json"})
	}
	sortByName(out)
	return out, nil
}

var makeTarget = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9_.\-/]*)\s*:([^=]|$)`)

func readMakefile(root string) ([]Script, error) {
	var path string
	for _, name := range []string{"Makefile", "makefile", "GNUmakefile"} {
		candidate := filepath.Join(root, name)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
			break
		}
	}
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer f.Close()

	var (
		out     []Script
		seen    = map[string]bool{}
		current = -1
	)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "\t") {
			if current >= 0 && out[current].Command == "" {
				out[current].Command = strings.TrimSpace(line)
			}
			continue
		}
		current = -1
		m := makeTarget.FindStringSubmatch(line)
		if m == nil || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		out = append(out, Script{Name: m[1], Run: "make " + m[1], Source: filepath.Base(path)})
		current = len(out) - 1
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return out, nil
}

func readPyproject(root string) ([]Script, error) {
	path := filepath.Join(root, "pyproject.toml")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	var manifest struct {
		Project struct {
			Scripts map[string]string `toml:"scripts"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Scripts map[string]string `toml:"scripts"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if _, err := toml.DecodeFile(path, &manifest); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var out []Script
	add := func(scripts map[string]string) {
		for name, entry := range scripts {
			out = append(out, Script{Name: name, Command: entry, Run: name, Source: "pyproject.toml"})
		}
	}
	add(manifest.Project.Scripts)
	add(manifest.Tool.Poetry.Scripts)
	sortByName(out)
	return out, nil
}

func sortByName(list []Script) {
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
}
