package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/vostrik/tradedesk/internal/apperr"
)

// GetHistoricalData fetches durationDays of bars for symbol from the active
// connection and returns them sorted ascending by timestamp. Supported bar
// sizes are "1 day" and "1 hour".
func (c *Client) GetHistoricalData(ctx context.Context, symbol string, durationDays int, barSize string) (*HistoricalData, error) {
	switch barSize {
	case BarSizeDay, BarSizeHour:
	default:
		return nil, apperr.Validation("unsupported bar size %q, only %q and %q are supported", barSize, BarSizeDay, BarSizeHour)
	}

	gw, err := c.activeGateway()
	if err != nil {
		return nil, err
	}

	c.log.Info().Str("symbol", symbol).Int("duration_days", durationDays).
		Str("bar_size", barSize).Msg("fetching historical data")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Blocking gateway call; end = zero time means "now".
	bars, err := gw.HistoricalData(Stock(symbol), time.Time{}, durationDays, barSize)
	if err != nil {
		c.log.Error().Err(err).Str("symbol", symbol).Msg("historical data request failed")
		return nil, apperr.Wrap(apperr.ErrIBConnection, err, "historical data request failed")
	}

	data := &HistoricalData{
		Symbol:   symbol,
		BarSize:  barSize,
		Duration: fmt.Sprintf("%d days", durationDays),
		Bars:     make([]HistoricalBar, 0, len(bars)),
	}
	for _, b := range bars {
		data.Bars = append(data.Bars, HistoricalBar{
			Timestamp: b.Time.UTC(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
			WAP:       b.WAP,
			Count:     b.Count,
		})
	}
	data.SortByTime()

	c.log.Info().Int("bars", len(data.Bars)).Str("symbol", symbol).Msg("received historical bars")
	return data, nil
}
