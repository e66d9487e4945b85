package debug

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStartRuntimeLogger_EmitsExtraFields(t *testing.T) {
	out := &syncBuffer{}
	logger := slog.New(slog.NewTextHandler(out, nil))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartRuntimeLogger(ctx, 5*time.Millisecond, logger, func() []any { return []any{"iterations", 7} })

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := out.String(); strings.Contains(s, "runtime.stats") && strings.Contains(s, "iterations=7") {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no runtime stats line logged: %q", out.String())
}
