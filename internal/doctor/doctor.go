// Package doctor runs runtime readiness diagnostics for config, credentials, the workspace,
// and the external tools feedback and text output shell out to.
package doctor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rbright/vocode/internal/audio"
	"github.com/rbright/vocode/internal/config"
	"github.com/rbright/vocode/internal/llm"
	"github.com/rbright/vocode/internal/patterns"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Render writes the report with colored status tags. Color is dropped automatically when w
// is not a terminal.
func (r Report) Render(w io.Writer) {
	ok := color.New(color.FgGreen, color.Bold).SprintFunc()
	fail := color.New(color.FgRed, color.Bold).SprintFunc()
	name := color.New(color.FgCyan).SprintFunc()
	for _, check := range r.Checks {
		status := ok("OK")
		if !check.Pass {
			status = fail("FAIL")
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", status, name(check.Name), check.Message)
	}
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{checkConfig(cfg)}

	checks = append(checks, checkCredentials(cfg.Config))
	if strings.TrimSpace(cfg.Config.LLM.BaseURL) != "" && cfg.Config.Resolver.EnableLLMMatching {
		checks = append(checks, checkEndpoint(cfg.Config.LLM.BaseURL))
	}
	checks = append(checks, checkWorkspace(cfg.Config))
	checks = append(checks, checkPatterns(config.PatternsPath(cfg.Path, cfg.Config.Patterns.File)))

	feedback := cfg.Config.Feedback
	if feedback.Notifications {
		switch feedback.Backend {
		case "hypr":
			checks = append(checks, checkEnv("HYPRLAND_INSTANCE_SIGNATURE", func(v string) bool {
				return strings.TrimSpace(v) != ""
			}, "Hyprland session detected", "HYPRLAND_INSTANCE_SIGNATURE is empty"))
			checks = append(checks, checkBinary("hyprctl", "notifications use hyprctl"))
		case "desktop":
			checks = append(checks, checkBinary("busctl", "notifications use the session bus"))
		}
	}
	if feedback.Sound {
		checks = append(checks, checkSink())
	}
	if feedback.Speech {
		checks = append(checks, checkCommand(feedback.SpeakCmd.Argv, "speak_cmd"))
	}

	if cfg.Config.Text.Sink == "paste" {
		checks = append(checks, checkCommand(cfg.Config.Clipboard.Argv, "clipboard_cmd"))
		if len(cfg.Config.PasteCmd.Argv) > 0 {
			checks = append(checks, checkCommand(cfg.Config.PasteCmd.Argv, "paste_cmd"))
		} else {
			checks = append(checks, checkBinary("hyprctl", "default paste path requires hyprctl"))
		}
	} else if len(cfg.Config.Clipboard.Argv) > 0 {
		checks = append(checks, checkCommand(cfg.Config.Clipboard.Argv, "clipboard_cmd"))
	}

	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	if !cfg.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", cfg.Path)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", cfg.Path)}
}

// checkCredentials verifies an API key is present for the configured provider.
func checkCredentials(cfg config.Config) Check {
	name := "llm." + cfg.LLM.Provider
	if !cfg.Resolver.EnableLLMMatching {
		return Check{Name: name, Pass: true, Message: "LLM matching disabled; patterns only"}
	}
	if _, ok := llm.LookupCredential(cfg.LLM.Provider); ok {
		return Check{Name: name, Pass: true, Message: "API key found"}
	}
	return Check{
		Name:    name,
		Pass:    false,
		Message: fmt.Sprintf("set %s", strings.Join(llm.CredentialEnv(cfg.LLM.Provider), " or ")),
	}
}

// checkEndpoint probes a custom llm.base_url. Any HTTP answer means the endpoint is up;
// authentication is not exercised.
func checkEndpoint(base string) Check {
	base = strings.TrimSpace(base)
	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(base)
	if err != nil {
		return Check{Name: "llm.base_url", Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 256))

	if resp.StatusCode >= 500 {
		return Check{Name: "llm.base_url", Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, base)}
	}
	return Check{Name: "llm.base_url", Pass: true, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, base)}
}

func checkWorkspace(cfg config.Config) Check {
	root, err := config.WorkspaceRoot(cfg)
	if err != nil {
		return Check{Name: "workspace.root", Pass: false, Message: err.Error()}
	}
	info, err := os.Stat(root)
	if err != nil {
		return Check{Name: "workspace.root", Pass: false, Message: err.Error()}
	}
	if !info.IsDir() {
		return Check{Name: "workspace.root", Pass: false, Message: fmt.Sprintf("%s is not a directory", root)}
	}
	return Check{Name: "workspace.root", Pass: true, Message: root}
}

func checkPatterns(path string) Check {
	if _, err := os.Stat(path); err != nil {
		return Check{Name: "patterns.file", Pass: true, Message: fmt.Sprintf("no user patterns at %s", path)}
	}
	list, err := patterns.LoadFile(path)
	if err != nil {
		return Check{Name: "patterns.file", Pass: false, Message: err.Error()}
	}
	return Check{Name: "patterns.file", Pass: true, Message: fmt.Sprintf("%d rules in %s", len(list), path)}
}

var listSinks = audio.ListSinks

// checkSink verifies earcons have an unmuted output to play through.
func checkSink() Check {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	devices, err := listSinks(ctx)
	if err != nil {
		return Check{Name: "audio.sink", Pass: false, Message: err.Error()}
	}
	pick, err := audio.Playback(devices)
	if err != nil {
		return Check{Name: "audio.sink", Pass: false, Message: err.Error()}
	}
	desc := pick.Description
	if strings.TrimSpace(desc) == "" {
		desc = pick.ID
	}
	return Check{Name: "audio.sink", Pass: true, Message: fmt.Sprintf("cues play on %s (%s)", desc, pick.State)}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}
