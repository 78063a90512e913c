package broker

import "testing"

func TestPositionSizeLong(t *testing.T) {
	size, err := PositionSize(100.0, 50.0, 48.0, SideLong)
	if err != nil {
		t.Fatalf("PositionSize failed: %v", err)
	}
	if size != 50 {
		t.Fatalf("size = %d, want 50 ($100 risk / $2 stop)", size)
	}
}

func TestPositionSizeShort(t *testing.T) {
	size, err := PositionSize(100.0, 50.0, 52.0, SideShort)
	if err != nil {
		t.Fatalf("PositionSize failed: %v", err)
	}
	if size != 50 {
		t.Fatalf("size = %d, want 50", size)
	}
}

func TestPositionSizeInvalidStopLong(t *testing.T) {
	if _, err := PositionSize(100.0, 50.0, 51.0, SideLong); err == nil {
		t.Fatal("stop above entry for long should fail")
	}
}

func TestPositionSizeTooSmall(t *testing.T) {
	// $1 risk with a $2 stop distance floors to 0 shares.
	if _, err := PositionSize(1.0, 50.0, 48.0, SideLong); err == nil {
		t.Fatal("sub-share position should fail")
	}
}

func TestValidateStopLoss(t *testing.T) {
	entry, atr := 100.0, 2.0

	if err := ValidateStopLoss(entry, 99.8, SideLong, atr); err != nil {
		t.Fatalf("stop 0.2 below entry within 15%% ATR should pass: %v", err)
	}
	if err := ValidateStopLoss(entry, 99.995, SideLong, atr); err == nil {
		t.Fatal("stop closer than $0.01 should fail")
	}
	if err := ValidateStopLoss(entry, 99.0, SideLong, atr); err == nil {
		t.Fatal("stop beyond 15% of ATR should fail")
	}
}

func TestValidateStopLossShort(t *testing.T) {
	entry, atr := 100.0, 2.0

	if err := ValidateStopLoss(entry, 100.2, SideShort, atr); err != nil {
		t.Fatalf("short stop 0.2 above entry should pass: %v", err)
	}
	if err := ValidateStopLoss(entry, 99.8, SideShort, atr); err == nil {
		t.Fatal("short stop below entry should fail")
	}
}

func TestDefaultStopLoss(t *testing.T) {
	entry, atr := 100.0, 2.0

	if got := DefaultStopLoss(entry, SideLong, atr); got != 99.8 {
		t.Fatalf("long default stop = %f, want 99.80", got)
	}
	if got := DefaultStopLoss(entry, SideShort, atr); got != 100.2 {
		t.Fatalf("short default stop = %f, want 100.20", got)
	}
}

func TestOrderCalculations(t *testing.T) {
	tpl := NewTemplate("T", "AAPL", SideLong, 100, 150.0, 145.0, TIFDay, ModelBreakout)

	if got := Risk(&tpl); got != 500.0 {
		t.Fatalf("Risk = %f, want 500.00", got)
	}
	if got := PositionValue(&tpl); got != 15000.0 {
		t.Fatalf("PositionValue = %f, want 15000.00", got)
	}
	if got := RewardRiskRatio(&tpl, 160.0); got != 2.0 {
		t.Fatalf("RewardRiskRatio = %f, want 2.00", got)
	}
}
