package dispatch

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/rbright/vocode/internal/command"
	"github.com/sahilm/fuzzy"
)

// maxPickItems bounds the picker list for ambiguous open-file requests.
const maxPickItems = 10

type fileType struct {
	aliases []string
	match   func(rel string) bool
}

func byExt(exts ...string) func(string) bool {
	return func(rel string) bool {
		ext := strings.ToLower(path.Ext(rel))
		for _, e := range exts {
			if ext == e {
				return true
			}
		}
		return false
	}
}

// fileTypes maps spoken type names, in English and Korean, to file predicates.
var fileTypes = []fileType{
	{aliases: []string{"go", "golang", "고", "고랭"}, match: byExt(".go")},
	{aliases: []string{"python", "py", "파이썬"}, match: byExt(".py")},
	{aliases: []string{"javascript", "js", "자바스크립트"}, match: byExt(".js", ".jsx", ".mjs", ".cjs")},
	{aliases: []string{"typescript", "ts", "타입스크립트"}, match: byExt(".ts", ".tsx")},
	{aliases: []string{"rust", "러스트"}, match: byExt(".rs")},
	{aliases: []string{"java", "자바"}, match: byExt(".java")},
	{aliases: []string{"markdown", "md", "readme", "마크다운", "리드미"}, match: byExt(".md")},
	{aliases: []string{"json", "제이슨"}, match: byExt(".json")},
	{aliases: []string{"yaml", "yml", "야믈", "야멜"}, match: byExt(".yaml", ".yml")},
	{aliases: []string{"css", "style", "stylesheet", "스타일", "스타일시트"}, match: byExt(".css", ".scss")},
	{aliases: []string{"html", "에이치티엠엘"}, match: byExt(".html", ".htm")},
	{aliases: []string{"shell", "bash", "sh", "셸", "쉘"}, match: byExt(".sh", ".bash")},
	{aliases: []string{"makefile", "make", "메이크파일", "메이크"}, match: func(rel string) bool {
		return strings.EqualFold(path.Base(rel), "Makefile")
	}},
	{aliases: []string{"test", "tests", "테스트"}, match: func(rel string) bool {
		base := strings.ToLower(path.Base(rel))
		return strings.Contains(base, "_test.") || strings.Contains(base, ".test.") ||
			strings.Contains(base, ".spec.") || strings.HasPrefix(base, "test_")
	}},
}

// typeFilter resolves a spoken file type. Trailing "file"/"파일" words are ignored.
func typeFilter(spoken string) (func(string) bool, bool) {
	key := strings.ToLower(strings.TrimSpace(spoken))
	for _, suffix := range []string{" files", " file", "파일", " 파일"} {
		key = strings.TrimSpace(strings.TrimSuffix(key, suffix))
	}
	key = strings.TrimPrefix(key, ".")
	if key == "" {
		return nil, false
	}
	for _, ft := range fileTypes {
		for _, alias := range ft.aliases {
			if key == alias {
				return ft.match, true
			}
		}
	}
	return nil, false
}

// spokenFileName turns "main dot go" into "main.go" and drops spaces.
func spokenFileName(spoken string) string {
	name := strings.ToLower(strings.TrimSpace(spoken))
	name = strings.ReplaceAll(name, " dot ", ".")
	name = strings.ReplaceAll(name, " 점 ", ".")
	return strings.Join(strings.Fields(name), "")
}

func stem(rel string) string {
	base := strings.ToLower(path.Base(rel))
	return strings.TrimSuffix(base, path.Ext(base))
}

// FileCandidates ranks files for a spoken name and/or type.
func FileCandidates(files []string, name string, kind string) ([]string, error) {
	pool := files
	if strings.TrimSpace(kind) != "" {
		match, ok := typeFilter(kind)
		if !ok {
			return nil, fmt.Errorf("unknown file type %q", kind)
		}
		pool = nil
		for _, f := range files {
			if match(f) {
				pool = append(pool, f)
			}
		}
	}

	spoken := spokenFileName(name)
	if spoken == "" {
		return pool, nil
	}

	var exact []string
	for _, f := range pool {
		base := strings.ToLower(path.Base(f))
		if base == spoken || stem(f) == spoken {
			exact = append(exact, f)
		}
	}
	if len(exact) > 0 {
		return exact, nil
	}

	matches := fuzzy.Find(spoken, pool)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Str)
	}
	return out, nil
}

func (d *Dispatcher) openFile(ctx context.Context, name string, kind string) command.Result {
	if d.files == nil {
		return command.Missing("No workspace files available")
	}
	files, err := d.files.Files(ctx)
	if err != nil {
		return command.Failed(fmt.Sprintf("List files failed: %v", err))
	}

	candidates, err := FileCandidates(files, name, kind)
	if err != nil {
		return command.Missing(fmt.Sprintf("Unknown file type %q", kind))
	}
	label := strings.TrimSpace(name)
	if label == "" {
		label = strings.TrimSpace(kind)
	}
	if len(candidates) == 0 {
		return command.Missing(fmt.Sprintf("No file matching %q", label))
	}

	chosen := candidates[0]
	if len(candidates) > 1 {
		if len(candidates) > maxPickItems {
			candidates = candidates[:maxPickItems]
		}
		idx, err := d.host.Pick(ctx, fmt.Sprintf("Open which %s?", label), candidates)
		if err != nil {
			return command.Missing(fmt.Sprintf("No file chosen for %q", label))
		}
		chosen = candidates[idx]
	}

	if _, err := d.host.Open(ctx, chosen); err != nil {
		return command.Failed(fmt.Sprintf("Open %s failed: %v", chosen, err))
	}
	return command.Success(fmt.Sprintf("Opened %s", chosen))
}
