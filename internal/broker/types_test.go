package broker

import (
	"errors"
	"testing"
	"time"

	"github.com/vostrik/tradedesk/internal/apperr"
)

func TestTemplateValidationLong(t *testing.T) {
	tpl := NewTemplate("Test Long", "AAPL", SideLong, 100, 150.0, 145.0, TIFDay, ModelBreakout)
	if err := tpl.Validate(); err != nil {
		t.Fatalf("valid long template rejected: %v", err)
	}

	tpl.StopPrice = 155.0
	if err := tpl.Validate(); err == nil {
		t.Fatal("long template with stop above limit should be invalid")
	}
}

func TestTemplateValidationShort(t *testing.T) {
	tpl := NewTemplate("Test Short", "AAPL", SideShort, 100, 150.0, 155.0, TIFGTC, ModelBounce)
	if err := tpl.Validate(); err != nil {
		t.Fatalf("valid short template rejected: %v", err)
	}

	tpl.StopPrice = 145.0
	if err := tpl.Validate(); err == nil {
		t.Fatal("short template with stop below limit should be invalid")
	}
}

func TestTemplateValidationPositivity(t *testing.T) {
	base := NewTemplate("T", "AAPL", SideLong, 100, 150.0, 145.0, TIFDay, ModelBreakout)

	tpl := base
	tpl.Quantity = 0
	if err := tpl.Validate(); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("zero quantity: got %v, want validation error", err)
	}

	tpl = base
	tpl.LimitPrice = -1
	if err := tpl.Validate(); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("negative limit: got %v, want validation error", err)
	}

	tpl = base
	tpl.StopPrice = 0
	if err := tpl.Validate(); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("zero stop: got %v, want validation error", err)
	}
}

func TestTemplateLifecyclePredicates(t *testing.T) {
	tpl := NewTemplate("T", "AAPL", SideLong, 100, 150.0, 145.0, TIFDay, ModelBreakout)
	if !tpl.CanActivate() {
		t.Fatal("fresh template should be activatable")
	}
	if tpl.CanDeactivate() {
		t.Fatal("fresh template should not be deactivatable")
	}

	tpl.Status = StatusFailed
	if !tpl.CanActivate() {
		t.Fatal("failed template should be activatable again")
	}

	tpl.Status = StatusActive
	if tpl.CanActivate() {
		t.Fatal("active template should not be activatable")
	}
	if !tpl.CanDeactivate() {
		t.Fatal("active template should be deactivatable")
	}
}

func TestStopLossTechnicalOverride(t *testing.T) {
	tpl := NewTemplate("T", "AAPL", SideLong, 100, 150.0, 145.0, TIFDay, ModelBreakout)
	if tpl.StopLoss() != 145.0 {
		t.Fatalf("StopLoss = %f, want 145.00", tpl.StopLoss())
	}

	tech := 146.5
	tpl.TechnicalStopPrice = &tech
	if tpl.StopLoss() != 146.5 {
		t.Fatalf("StopLoss = %f, want technical 146.50", tpl.StopLoss())
	}
}

func TestSideActions(t *testing.T) {
	if SideLong.Action() != "BUY" || SideLong.StopAction() != "SELL" {
		t.Fatal("long actions wrong")
	}
	if SideShort.Action() != "SELL" || SideShort.StopAction() != "BUY" {
		t.Fatal("short actions wrong")
	}
}

func TestHistoricalDataSortByTime(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	data := &HistoricalData{
		Symbol: "AAPL",
		Bars: []HistoricalBar{
			{Timestamp: base.AddDate(0, 0, 2)},
			{Timestamp: base},
			{Timestamp: base.AddDate(0, 0, 1)},
		},
	}
	data.SortByTime()
	for i := 0; i < len(data.Bars)-1; i++ {
		if data.Bars[i].Timestamp.After(data.Bars[i+1].Timestamp) {
			t.Fatalf("bars not ascending at index %d", i)
		}
	}
}
