package signal

import "testing"

func record(prediction string) Record {
	return Record{
		PredictionTime: "Mon, 01 Jan 2024 09:00:00 +0900",
		Prediction:     Prediction{Prediction: prediction, Confidence: 80},
	}
}

func TestAppendEvictsFIFO(t *testing.T) {
	l := NewReflectionLog(3)
	for i := 0; i < 5; i++ {
		r := record("bullish")
		r.Prediction.Confidence = float64(i)
		l.Append(r)
	}
	if l.Len() != 3 {
		t.Fatalf("len = %d, want 3", l.Len())
	}
	if got := l.Records()[0].Prediction.Confidence; got != 2 {
		t.Errorf("oldest surviving record = %v, want 2", got)
	}
}

func TestResolveBullishUp(t *testing.T) {
	l := NewReflectionLog(6)
	l.Append(record("bullish"))
	l.RememberPrice(100)

	l.Resolve(105)

	got := l.Records()[0].ActualResult
	if got == nil {
		t.Fatal("outcome not back-filled")
	}
	if got.Direction != "up" || !got.Accurate {
		t.Errorf("outcome = %+v, want accurate up", got)
	}
	if got.PriceChange != 5 {
		t.Errorf("price change = %v, want 5", got.PriceChange)
	}
}

func TestResolveBearishUpIsInaccurate(t *testing.T) {
	l := NewReflectionLog(6)
	l.Append(record("bearish"))
	l.RememberPrice(100)

	l.Resolve(102)

	got := l.Records()[0].ActualResult
	if got == nil || got.Accurate {
		t.Errorf("outcome = %+v, want inaccurate", got)
	}
}

func TestResolveNeutralSmallMove(t *testing.T) {
	l := NewReflectionLog(6)
	l.Append(record("neutral"))
	l.RememberPrice(100)

	l.Resolve(100.5)

	got := l.Records()[0].ActualResult
	if got == nil || !got.Accurate {
		t.Errorf("outcome = %+v, want accurate neutral under 1%%", got)
	}
}

func TestResolveWithoutPriceIsNoop(t *testing.T) {
	l := NewReflectionLog(6)
	l.Append(record("bullish"))

	l.Resolve(105)

	if l.Records()[0].ActualResult != nil {
		t.Error("outcome set without a remembered price")
	}
}

func TestResolveDoesNotRescore(t *testing.T) {
	l := NewReflectionLog(6)
	l.Append(record("bullish"))
	l.RememberPrice(100)
	l.Resolve(105)
	first := *l.Records()[0].ActualResult

	l.Resolve(90)

	if *l.Records()[0].ActualResult != first {
		t.Error("resolved record was rescored")
	}
}

func TestDropUnresolved(t *testing.T) {
	l := NewReflectionLog(6)
	l.Append(record("bullish"))
	l.DropUnresolved()
	if l.Len() != 0 {
		t.Errorf("len = %d, want 0 after drop", l.Len())
	}

	// Resolved records survive.
	l.Append(record("bearish"))
	l.RememberPrice(100)
	l.Resolve(95)
	l.DropUnresolved()
	if l.Len() != 1 {
		t.Errorf("len = %d, want resolved record kept", l.Len())
	}
}
