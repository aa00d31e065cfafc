package quiz

import (
	"context"
	"time"
)

// RunTimer ticks the engine once per second until the current attempt
// completes or ctx is canceled. It returns immediately for untimed quizzes.
func (e *Engine) RunTimer(ctx context.Context) {
	if _, limited := e.TimeRemaining(); !limited {
		return
	}
	done := e.Done()
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-t.C:
			e.Tick()
		}
	}
}
