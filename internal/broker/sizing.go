package broker

import (
	"math"

	"github.com/vostrik/tradedesk/internal/apperr"
)

const (
	minStopDistance   = 0.01 // dollars
	maxStopATRRatio   = 0.15 // stop may sit at most 15% of ATR away
	defaultStopRatio  = 0.10 // default stop sits at 10% of ATR
)

// PositionSize returns the whole-share count for a risk budget and stop
// distance: shares = floor(risk / |entry - stop|). The stop must sit on the
// protective side of the entry.
func PositionSize(riskPerTrade, entryPrice, stopPrice float64, side OrderSide) (int64, error) {
	distance, err := stopDistance(entryPrice, stopPrice, side)
	if err != nil {
		return 0, err
	}
	shares := int64(math.Floor(riskPerTrade / distance))
	if shares < 1 {
		return 0, apperr.Validation("calculated position size is too small (less than 1 share)")
	}
	return shares, nil
}

// ValidateStopLoss checks that the stop distance is at least $0.01 and at
// most 15% of the ATR.
func ValidateStopLoss(entryPrice, stopPrice float64, side OrderSide, atr float64) error {
	distance, err := stopDistance(entryPrice, stopPrice, side)
	if err != nil {
		return err
	}
	if distance < minStopDistance {
		return apperr.Validation("stop loss too close to entry, minimum distance is $%.2f", minStopDistance)
	}
	maxDistance := atr * maxStopATRRatio
	if distance > maxDistance {
		return apperr.Validation("stop loss too far from entry, maximum distance is $%.2f (15%% of ATR $%.2f)", maxDistance, atr)
	}
	return nil
}

// DefaultStopLoss places the stop at 10% of the ATR from the entry, below for
// longs and above for shorts.
func DefaultStopLoss(entryPrice float64, side OrderSide, atr float64) float64 {
	distance := atr * defaultStopRatio
	if side == SideShort {
		return entryPrice + distance
	}
	return entryPrice - distance
}

func stopDistance(entryPrice, stopPrice float64, side OrderSide) (float64, error) {
	switch side {
	case SideLong:
		if stopPrice >= entryPrice {
			return 0, apperr.Validation("for long orders, stop price must be below entry price")
		}
		return entryPrice - stopPrice, nil
	case SideShort:
		if stopPrice <= entryPrice {
			return 0, apperr.Validation("for short orders, stop price must be above entry price")
		}
		return stopPrice - entryPrice, nil
	}
	return 0, apperr.Validation("unknown order side %q", side)
}
