package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"derivsim/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "candles.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testCandles(n int) []models.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, n)
	for i := range candles {
		price := 100 + float64(i)
		candles[i] = models.Candle{
			Timestamp: start.AddDate(0, 0, i),
			Open:      price,
			High:      price * 1.01,
			Low:       price * 0.99,
			Close:     price,
			Volume:    int64(1000 + i),
		}
	}
	return candles
}

func TestSaveAndGetCandles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	candles := testCandles(10)

	if err := s.SaveCandles(ctx, "NIFTY", "1day", candles); err != nil {
		t.Fatalf("SaveCandles: %v", err)
	}

	got, err := s.GetCandles(ctx, "NIFTY", "1day",
		candles[0].Timestamp, candles[len(candles)-1].Timestamp)
	if err != nil {
		t.Fatalf("GetCandles: %v", err)
	}
	if len(got) != len(candles) {
		t.Fatalf("got %d candles, want %d", len(got), len(candles))
	}
	for i := range got {
		if !got[i].Timestamp.Equal(candles[i].Timestamp) {
			t.Errorf("candle %d timestamp = %v, want %v", i, got[i].Timestamp, candles[i].Timestamp)
		}
		if got[i].Close != candles[i].Close {
			t.Errorf("candle %d close = %v, want %v", i, got[i].Close, candles[i].Close)
		}
	}
}

func TestSaveCandlesReplacesDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	candles := testCandles(5)

	if err := s.SaveCandles(ctx, "NIFTY", "1day", candles); err != nil {
		t.Fatalf("first save: %v", err)
	}
	candles[2].Close = 999
	if err := s.SaveCandles(ctx, "NIFTY", "1day", candles); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := s.GetCandles(ctx, "NIFTY", "1day",
		candles[0].Timestamp, candles[len(candles)-1].Timestamp)
	if err != nil {
		t.Fatalf("GetCandles: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d candles after re-save, want 5", len(got))
	}
	if got[2].Close != 999 {
		t.Errorf("candle 2 close = %v, want replaced value 999", got[2].Close)
	}
}

func TestGetCandlesScopedBySymbolAndRange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	candles := testCandles(10)

	if err := s.SaveCandles(ctx, "NIFTY", "1day", candles); err != nil {
		t.Fatalf("SaveCandles: %v", err)
	}
	if err := s.SaveCandles(ctx, "BANKNIFTY", "1day", testCandles(10)); err != nil {
		t.Fatalf("SaveCandles: %v", err)
	}

	got, err := s.GetCandles(ctx, "NIFTY", "1day",
		candles[3].Timestamp, candles[6].Timestamp)
	if err != nil {
		t.Fatalf("GetCandles: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("got %d candles in range, want 4", len(got))
	}

	none, err := s.GetCandles(ctx, "RELIANCE", "1day",
		candles[0].Timestamp, candles[9].Timestamp)
	if err != nil {
		t.Fatalf("GetCandles: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %d candles for unstored symbol, want 0", len(none))
	}
}

func TestGetCandlesFreshness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ts, err := s.GetCandlesFreshness(ctx, "NIFTY", "1day")
	if err != nil {
		t.Fatalf("GetCandlesFreshness: %v", err)
	}
	if !ts.IsZero() {
		t.Errorf("empty store freshness = %v, want zero time", ts)
	}

	candles := testCandles(3)
	if err := s.SaveCandles(ctx, "NIFTY", "1day", candles); err != nil {
		t.Fatalf("SaveCandles: %v", err)
	}
	ts, err = s.GetCandlesFreshness(ctx, "NIFTY", "1day")
	if err != nil {
		t.Fatalf("GetCandlesFreshness: %v", err)
	}
	if !ts.Equal(candles[2].Timestamp) {
		t.Errorf("freshness = %v, want %v", ts, candles[2].Timestamp)
	}
}
