package debug

// Runtime stats logger started when config.Debug is true. Emits goroutine
// count, heap and stack usage and the process working set so native growth
// can be told apart from heap growth during long sessions.

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/metrics"
	"time"
)

// StartRuntimeLogger logs runtime statistics every interval until ctx ends.
// extra, when non-nil, contributes additional key-value pairs to each line.
func StartRuntimeLogger(ctx context.Context, interval time.Duration, logger *slog.Logger, extra func() []any) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		samples := []metrics.Sample{{Name: "/sched/goroutines:goroutines"}}
		var rssErrLogged bool
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			metrics.Read(samples)
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			rss, err := residentSetSize()
			if err != nil && !rssErrLogged {
				logger.Warn("runtime stats: resident set unavailable", "error", err)
				rssErrLogged = true
			}
			args := []any{
				slog.Uint64("goroutines", samples[0].Value.Uint64()),
				slog.Uint64("heap_alloc", ms.HeapAlloc),
				slog.Uint64("heap_inuse", ms.HeapInuse),
				slog.Uint64("stack_inuse", ms.StackInuse),
				slog.Uint64("num_gc", uint64(ms.NumGC)),
				slog.Uint64("rss", rss),
			}
			if extra != nil {
				args = append(args, extra()...)
			}
			logger.Info("runtime.stats", args...)
		}
	}()
}
