// Package tradelog persists completed round-trip trades as daily JSONL files
// with gzip retention for old days.
package tradelog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gmo-trading-bot/internal/types"
)

type Logger struct {
	mu  sync.Mutex
	dir string
	loc *time.Location
	now func() time.Time
}

func New(dir string, loc *time.Location) *Logger {
	if dir == "" {
		dir = defaultDir()
	}
	if loc == nil {
		loc = time.FixedZone("JST", 9*3600)
	}
	return &Logger{dir: dir, loc: loc, now: time.Now}
}

func defaultDir() string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

type record struct {
	Time string `json:"time"`
	types.TradeOutcome
}

func (l *Logger) dailyFilepath(t time.Time) string {
	return filepath.Join(l.dir, t.In(l.loc).Format("2006-01-02")+".txt")
}

// Record appends one settled trade to today's file.
func (l *Logger) Record(outcome types.TradeOutcome) error {
	return l.RecordAt(l.now(), outcome)
}

// RecordAt appends a trade under the given local date. Used for backfills.
func (l *Logger) RecordAt(t time.Time, outcome types.TradeOutcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := t.In(l.loc)
	p := l.dailyFilepath(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	b, _ := json.Marshal(record{Time: now.Format("2006-01-02 15:04:05"), TradeOutcome: outcome})
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// ReadDay returns the trades logged on the given local date.
func (l *Logger) ReadDay(day time.Time) ([]types.TradeOutcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.dailyFilepath(day))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var outcomes []types.TradeOutcome
	dec := json.NewDecoder(f)
	for {
		var r record
		if err := dec.Decode(&r); err != nil {
			if err == io.EOF {
				break
			}
			return outcomes, err
		}
		outcomes = append(outcomes, r.TradeOutcome)
	}
	return outcomes, nil
}

// TotalLossGain sums realized P&L across every daily file, gzip archives
// included.
func (l *Logger) TotalLossGain() (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var total int64
	err := filepath.WalkDir(l.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ext := filepath.Ext(p)
		if ext != ".txt" && ext != ".gz" {
			return nil
		}
		sum, err := sumFile(p, ext == ".gz")
		if err != nil {
			return nil
		}
		total += sum
		return nil
	})
	if os.IsNotExist(err) {
		return 0, nil
	}
	return total, err
}

func sumFile(p string, gzipped bool) (int64, error) {
	f, err := os.Open(p)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var r io.Reader = f
	if gzipped {
		gr, err := gzip.NewReader(f)
		if err != nil {
			return 0, err
		}
		defer gr.Close()
		r = gr
	}

	var total int64
	dec := json.NewDecoder(r)
	for {
		var rec record
		if err := dec.Decode(&rec); err != nil {
			if err == io.EOF {
				break
			}
			return total, err
		}
		total += rec.LossGain
	}
	return total, nil
}

// CompressOlder gzips daily files older than the retention window and
// removes the originals.
func (l *Logger) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(l.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, er := os.Stat(p)
		if er != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		return compressFile(p)
	})
}

func compressFile(p string) error {
	gz := p + ".gz"
	if _, err := os.Stat(gz); err == nil {
		return os.Remove(p)
	}

	in, err := os.Open(p)
	if err != nil {
		return nil
	}
	defer in.Close()

	out, err := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		return nil
	}
	_ = gw.Close()
	_ = out.Close()
	return os.Remove(p)
}
