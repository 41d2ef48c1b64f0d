// Package output emits literal text outside the editor (system clipboard and paste).
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/rbright/vocode/internal/config"
)

// Clipboard writes text to the system clipboard through a configured command.
type Clipboard struct {
	argv []string
}

// NewClipboard builds a clipboard writer from clipboard_cmd.
func NewClipboard(cmd config.CommandConfig) *Clipboard {
	argv := make([]string, len(cmd.Argv))
	copy(argv, cmd.Argv)
	return &Clipboard{argv: argv}
}

// Copy replaces the clipboard contents with text.
func (c *Clipboard) Copy(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := runCommandWithInput(ctx, c.argv, text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	return nil
}

// Paster is the "paste" text sink: clipboard first, then a paste keystroke.
type Paster struct {
	clipboard *Clipboard
	pasteArgv []string
	shortcut  string
	logger    *slog.Logger
}

// NewPaster constructs the paste sink from runtime config.
func NewPaster(cfg config.Config, logger *slog.Logger) *Paster {
	return &Paster{
		clipboard: NewClipboard(cfg.Clipboard),
		pasteArgv: cfg.PasteCmd.Argv,
		shortcut:  cfg.Paste.Shortcut,
		logger:    logger,
	}
}

// Emit writes text to the clipboard and dispatches paste. Paste failures are logged and the
// clipboard stays set.
func (p *Paster) Emit(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if err := p.clipboard.Copy(ctx, text); err != nil {
		return err
	}

	if len(p.pasteArgv) > 0 {
		pasteCtx, pasteCancel := context.WithTimeout(ctx, 2*time.Second)
		defer pasteCancel()
		if err := runCommandWithInput(pasteCtx, p.pasteArgv, ""); err != nil {
			p.logPasteFailure(err)
		}
		return nil
	}

	pasteCtx, pasteCancel := context.WithTimeout(ctx, 1200*time.Millisecond)
	defer pasteCancel()
	if err := defaultPaste(pasteCtx, p.shortcut); err != nil {
		p.logPasteFailure(err)
	}
	return nil
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}

func (p *Paster) logPasteFailure(err error) {
	if p.logger == nil || err == nil {
		return
	}
	p.logger.Error("paste dispatch failed; clipboard remains set", "error", err.Error())
}
