package eodobs

import (
	"context"
	"time"

	"gmo-trading-bot/internal/eod"
	"gmo-trading-bot/internal/logger"
)

type observableSummarizer struct {
	s eod.Summarizer
}

var _ eod.Summarizer = (*observableSummarizer)(nil)

// Wrap wraps a summarizer with logging middleware
func Wrap(s eod.Summarizer) eod.Summarizer {
	return &observableSummarizer{s: s}
}

func (os *observableSummarizer) SummarizeDay(t time.Time) (string, error) {
	start := time.Now()
	path, err := os.s.SummarizeDay(t)
	ctx := context.Background()

	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "EOD summary failed", err,
			"day", t.Format("2006-01-02"),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}
	logger.InfoSkip(ctx, 1, "EOD summary written",
		"day", t.Format("2006-01-02"),
		"path", path,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return path, nil
}

func (os *observableSummarizer) ShouldRunNow(now time.Time) (bool, time.Time) {
	return os.s.ShouldRunNow(now)
}
