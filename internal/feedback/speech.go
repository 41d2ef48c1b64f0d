package feedback

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

// speaker runs one speech command at a time; a new utterance cancels the previous one.
type speaker struct {
	argv   []string
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *speaker) say(wg *sync.WaitGroup, text string) {
	text = strings.TrimSpace(text)
	if text == "" || len(s.argv) == 0 {
		return
	}
	s.stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	args := append(append([]string{}, s.argv[1:]...), text)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		defer cancel()

		err := exec.CommandContext(ctx, s.argv[0], args...).Run()
		if err != nil && !errors.Is(ctx.Err(), context.Canceled) {
			s.logger.Debug("speech failed", "error", err.Error())
		}
	}()
}

// stop cancels the current speech and waits for its process to exit.
func (s *speaker) stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
