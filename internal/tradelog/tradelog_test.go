package tradelog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gmo-trading-bot/internal/types"
)

func TestRecordAndReadDay(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, time.UTC)
	fixed := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	if err := l.Record(types.TradeOutcome{ExecutionID: 1, Position: 1, LossGain: 500}); err != nil {
		t.Fatal(err)
	}
	if err := l.Record(types.TradeOutcome{ExecutionID: 2, Position: -1, LossGain: -300}); err != nil {
		t.Fatal(err)
	}

	outcomes, err := l.ReadDay(fixed)
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes", len(outcomes))
	}
	if outcomes[0].LossGain != 500 || outcomes[1].LossGain != -300 {
		t.Fatalf("unexpected outcomes %+v", outcomes)
	}
}

func TestReadDayMissingFileIsEmpty(t *testing.T) {
	l := New(t.TempDir(), time.UTC)
	outcomes, err := l.ReadDay(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if outcomes != nil {
		t.Fatalf("expected nil, got %+v", outcomes)
	}
}

func TestCompressOlderGzipsOldFiles(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, time.UTC)

	old := filepath.Join(dir, "2024-01-01.txt")
	if err := os.WriteFile(old, []byte(`{"time":"2024-01-01 10:00:00"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	fresh := filepath.Join(dir, "recent.txt")
	if err := os.WriteFile(fresh, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := l.CompressOlder(7); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("old file should have been removed")
	}
	if _, err := os.Stat(old + ".gz"); err != nil {
		t.Fatal("gzip archive missing")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatal("fresh file must be left alone")
	}
}
