// Package eod turns the daily trade log into an end-of-day CSV summary.
package eod

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gmo-trading-bot/internal/tradelog"
)

// Summarizer generates day-level summaries from settled trades.
type Summarizer interface {
	// SummarizeDay writes the CSV for the given local date and returns its
	// path. A day with no trades still produces a file with zeroed totals,
	// which doubles as the done marker for ShouldRunNow.
	SummarizeDay(t time.Time) (string, error)

	// ShouldRunNow reports whether yesterday's summary is still missing.
	// Crypto has no market close, so the day rolls at local midnight.
	ShouldRunNow(now time.Time) (bool, time.Time)
}

type summarizer struct {
	log *tradelog.Logger
	dir string
	loc *time.Location
}

func New(log *tradelog.Logger, dir string, loc *time.Location) Summarizer {
	if dir == "" {
		dir = filepath.Join("logs", "eod")
	}
	if loc == nil {
		loc = time.FixedZone("JST", 9*3600)
	}
	return &summarizer{log: log, dir: dir, loc: loc}
}

type sideAgg struct {
	trades int
	wins   int
	pnl    int64
}

func (s *summarizer) csvPath(t time.Time) string {
	return filepath.Join(s.dir, t.In(s.loc).Format("2006-01-02")+".csv")
}

func (s *summarizer) SummarizeDay(t time.Time) (string, error) {
	outcomes, err := s.log.ReadDay(t)
	if err != nil {
		return "", err
	}
	long, short := sideAgg{}, sideAgg{}
	for _, o := range outcomes {
		agg := &long
		if o.Position < 0 {
			agg = &short
		}
		agg.trades++
		agg.pnl += o.LossGain
		if o.LossGain > 0 {
			agg.wins++
		}
	}

	outPath := s.csvPath(t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	defer w.Flush()

	if err := w.Write([]string{"side", "trades", "wins", "win_rate", "loss_gain"}); err != nil {
		return "", err
	}
	for _, row := range []struct {
		name string
		agg  sideAgg
	}{{"LONG", long}, {"SHORT", short}} {
		if row.agg.trades == 0 {
			continue
		}
		if err := w.Write(aggRecord(row.name, row.agg)); err != nil {
			return "", err
		}
	}
	total := sideAgg{
		trades: long.trades + short.trades,
		wins:   long.wins + short.wins,
		pnl:    long.pnl + short.pnl,
	}
	if err := w.Write(aggRecord("TOTAL", total)); err != nil {
		return "", err
	}
	if cumulative, err := s.log.TotalLossGain(); err == nil {
		if err := w.Write([]string{"CUMULATIVE", "", "", "", strconv.FormatInt(cumulative, 10)}); err != nil {
			return "", err
		}
	}
	return outPath, nil
}

func aggRecord(name string, a sideAgg) []string {
	winRate := 0.0
	if a.trades > 0 {
		winRate = float64(a.wins) / float64(a.trades)
	}
	return []string{
		name,
		strconv.Itoa(a.trades),
		strconv.Itoa(a.wins),
		fmt.Sprintf("%.2f", winRate),
		strconv.FormatInt(a.pnl, 10),
	}
}

func (s *summarizer) ShouldRunNow(now time.Time) (bool, time.Time) {
	local := now.In(s.loc)
	yesterday := local.AddDate(0, 0, -1)
	if _, err := os.Stat(s.csvPath(yesterday)); errors.Is(err, os.ErrNotExist) {
		return true, yesterday
	}
	return false, yesterday
}
