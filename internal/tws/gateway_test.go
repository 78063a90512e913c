package tws

import (
	"testing"
	"time"
)

func TestParseBars(t *testing.T) {
	fields := [][]byte{
		[]byte("17"),       // msg id
		[]byte("1"),        // req id
		[]byte("20260105"), // start
		[]byte("20260106"), // end
		[]byte("2"),        // count
		[]byte("20260105"), []byte("100.5"), []byte("101.0"), []byte("99.5"), []byte("100.8"), []byte("12000"), []byte("100.6"), []byte("340"),
		[]byte("20260106"), []byte("100.8"), []byte("102.0"), []byte("100.1"), []byte("101.9"), []byte("15000"), []byte("101.2"), []byte("410"),
	}

	bars, err := parseBars(fields)
	if err != nil {
		t.Fatalf("parseBars failed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(bars))
	}

	want := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	if !bars[0].Time.Equal(want) {
		t.Fatalf("bar time = %v, want %v", bars[0].Time, want)
	}
	if bars[0].High != 101.0 || bars[0].Low != 99.5 {
		t.Fatalf("bar OHLC wrong: %+v", bars[0])
	}
	if bars[1].Volume != 15000 || bars[1].Count != 410 {
		t.Fatalf("bar volume/count wrong: %+v", bars[1])
	}
}

func TestParseBarsTruncated(t *testing.T) {
	fields := [][]byte{
		[]byte("17"), []byte("1"), []byte("20260105"), []byte("20260106"),
		[]byte("2"), // claims 2 bars, carries none
	}
	if _, err := parseBars(fields); err == nil {
		t.Fatal("truncated frame should fail")
	}
}

func TestParseBarTime(t *testing.T) {
	ts, err := parseBarTime("20260312")
	if err != nil {
		t.Fatalf("daily stamp failed: %v", err)
	}
	if ts.Day() != 12 || ts.Month() != 3 {
		t.Fatalf("daily stamp = %v", ts)
	}

	ts, err = parseBarTime("20260312 14:30:00")
	if err != nil {
		t.Fatalf("intraday stamp failed: %v", err)
	}
	if ts.Hour() != 14 || ts.Minute() != 30 {
		t.Fatalf("intraday stamp = %v", ts)
	}

	if _, err := parseBarTime("not-a-date"); err == nil {
		t.Fatal("garbage stamp should fail")
	}
}
