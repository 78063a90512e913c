package broker

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/vostrik/tradedesk/internal/apperr"
)

// OutlierMethod labels a bar's range as anomalous. Closed set: IQR band,
// z-score band, or percentile band.
type OutlierMethod interface {
	isOutlierMethod()
	String() string
}

// IQRMethod excludes ranges outside [q1 - k*iqr, q3 + k*iqr].
type IQRMethod struct {
	Multiplier float64
}

// ZScoreMethod excludes ranges outside [mean - t*sd, mean + t*sd].
type ZScoreMethod struct {
	Threshold float64
}

// PercentileMethod excludes ranges outside the [low, high] percentile band.
// Percentiles are in [0, 100].
type PercentileMethod struct {
	Low  float64
	High float64
}

func (IQRMethod) isOutlierMethod()        {}
func (ZScoreMethod) isOutlierMethod()     {}
func (PercentileMethod) isOutlierMethod() {}

func (m IQRMethod) String() string     { return fmt.Sprintf("IQR(%.1f)", m.Multiplier) }
func (m ZScoreMethod) String() string  { return fmt.Sprintf("ZScore(%.1f)", m.Threshold) }
func (m PercentileMethod) String() string {
	return fmt.Sprintf("Percentile(%.0f-%.0f)", m.Low, m.High)
}

// DefaultOutlierMethod is IQR with the conventional 1.5 multiplier.
func DefaultOutlierMethod() OutlierMethod { return IQRMethod{Multiplier: 1.5} }

// ExcludedBar records one bar dropped by the outlier filter, for auditing.
type ExcludedBar struct {
	Date   time.Time
	Range  float64
	Reason string
	High   float64
	Low    float64
}

// ATRResult is the snapshot of one filtered-ATR computation.
type ATRResult struct {
	Symbol          string
	PeriodDays      int
	CalculationDate time.Time

	FilteredATR          float64
	RegularATR           float64
	ATRDifference        float64
	ATRDifferencePercent float64

	TotalBars     int
	UsedBars      int
	ExcludedBars  int
	ExclusionRate float64

	MeanRange   float64
	MedianRange float64
	StdDevRange float64
	Q1Range     float64
	Q3Range     float64
	IQR         float64
	LowerBound  float64
	UpperBound  float64

	Method            OutlierMethod
	ExcludedBarsDetail []ExcludedBar
	UsedBarsDetail     []HistoricalBar

	ConfidenceScore float64 // 0-100
	IsValid         bool
}

// calculateConfidence scores the result 0-100 from sample size, exclusion
// rate, and range consistency. A moderate exclusion rate scores highest:
// some outliers should exist.
func (r *ATRResult) calculateConfidence() {
	sampleScore := math.Min(float64(r.UsedBars), 14) / 14.0 * 40.0

	var exclusionScore float64
	switch {
	case r.ExclusionRate < 0.1:
		exclusionScore = 30.0
	case r.ExclusionRate < 0.3:
		exclusionScore = 40.0
	case r.ExclusionRate < 0.5:
		exclusionScore = 20.0
	default:
		exclusionScore = 10.0
	}

	var consistencyScore float64
	if r.MeanRange > 0 {
		cv := r.StdDevRange / r.MeanRange
		consistencyScore = math.Max(0, (1-math.Min(cv, 1))*20.0)
	}

	r.ConfidenceScore = sampleScore + exclusionScore + consistencyScore
}

// CalculateFilteredATR fetches daily bars for symbol, classifies range
// outliers by method, and returns the filtered vs regular ATR comparison.
// The ATR here is the arithmetic mean of high-low, not Wilder's smoothing.
func (c *Client) CalculateFilteredATR(ctx context.Context, symbol string, periodDays int, method OutlierMethod) (*ATRResult, error) {
	// Fetch extra days so enough bars survive filtering.
	fetchDays := periodDays * 3
	if fetchDays < 30 {
		fetchDays = 30
	}
	if fetchDays > 60 {
		fetchDays = 60
	}

	c.log.Info().Str("symbol", symbol).Int("period_days", periodDays).
		Str("method", method.String()).Msg("calculating filtered ATR")

	data, err := c.GetHistoricalData(ctx, symbol, fetchDays, BarSizeDay)
	if err != nil {
		return nil, err
	}
	if len(data.Bars) == 0 {
		return nil, apperr.Validation("no historical data available")
	}

	result := &ATRResult{
		Symbol:          symbol,
		PeriodDays:      periodDays,
		CalculationDate: time.Now().UTC(),
		Method:          method,
		TotalBars:       len(data.Bars),
	}

	ranges := make([]float64, len(data.Bars))
	for i, bar := range data.Bars {
		ranges[i] = bar.Range()
	}

	sorted := make([]float64, len(ranges))
	copy(sorted, ranges)
	sort.Float64s(sorted)

	n := len(sorted)
	var sum float64
	for _, r := range sorted {
		sum += r
	}
	result.MeanRange = sum / float64(n)
	if n%2 == 0 {
		result.MedianRange = (sorted[n/2-1] + sorted[n/2]) / 2
	} else {
		result.MedianRange = sorted[n/2]
	}

	var variance float64
	for _, r := range sorted {
		d := r - result.MeanRange
		variance += d * d
	}
	variance /= float64(n)
	result.StdDevRange = math.Sqrt(variance)

	result.Q1Range = sorted[n/4]
	result.Q3Range = sorted[3*n/4]
	result.IQR = result.Q3Range - result.Q1Range

	lower, upper, err := outlierBounds(method, result, sorted)
	if err != nil {
		return nil, err
	}
	result.LowerBound = lower
	result.UpperBound = upper

	// Walk bars newest first, collecting period_days in-band bars and every
	// out-of-band bar seen along the way.
	var filtered []HistoricalBar
	var excluded []ExcludedBar
	for i := len(data.Bars) - 1; i >= 0; i-- {
		bar := data.Bars[i]
		r := ranges[i]
		if r < lower || r > upper {
			reason := fmt.Sprintf("Range %.2f above upper bound %.2f", r, upper)
			if r < lower {
				reason = fmt.Sprintf("Range %.2f below lower bound %.2f", r, lower)
			}
			excluded = append(excluded, ExcludedBar{
				Date:   bar.Timestamp,
				Range:  r,
				Reason: reason,
				High:   bar.High,
				Low:    bar.Low,
			})
			continue
		}
		filtered = append(filtered, bar)
		if len(filtered) >= periodDays {
			break
		}
	}

	result.UsedBars = len(filtered)
	result.ExcludedBars = len(excluded)
	if result.TotalBars > 0 {
		result.ExclusionRate = float64(len(excluded)) / float64(result.TotalBars)
	}
	result.ExcludedBarsDetail = excluded
	result.UsedBarsDetail = filtered
	result.IsValid = result.UsedBars >= periodDays

	if !result.IsValid {
		c.log.Warn().Int("used", result.UsedBars).Int("need", periodDays).
			Msg("not enough valid bars for ATR calculation")
	}

	if len(filtered) > 0 {
		count := len(filtered)
		if count > periodDays {
			count = periodDays
		}
		var fsum float64
		for _, bar := range filtered[:count] {
			fsum += bar.Range()
		}
		result.FilteredATR = fsum / float64(count)
	}

	// Regular ATR over the last period_days bars of the unfiltered series.
	// Note this window is not guaranteed to cover the same calendar range as
	// the filtered one: it answers "what would ATR say" vs "what should ATR
	// say".
	regCount := periodDays
	if regCount > len(data.Bars) {
		regCount = len(data.Bars)
	}
	if regCount > 0 {
		var rsum float64
		for _, bar := range data.Bars[len(data.Bars)-regCount:] {
			rsum += bar.Range()
		}
		result.RegularATR = rsum / float64(regCount)
	}

	if result.RegularATR > 0 {
		result.ATRDifference = result.FilteredATR - result.RegularATR
		result.ATRDifferencePercent = result.ATRDifference / result.RegularATR * 100.0
	}

	result.calculateConfidence()

	c.log.Info().Float64("filtered_atr", result.FilteredATR).
		Float64("regular_atr", result.RegularATR).
		Int("excluded", result.ExcludedBars).
		Msg("ATR calculation complete")

	return result, nil
}

// outlierBounds derives the [lower, upper] acceptance band for the method.
// Lower bounds clamp to 0 so a negative band never admits malformed bars.
func outlierBounds(method OutlierMethod, stats *ATRResult, sorted []float64) (float64, float64, error) {
	n := len(sorted)
	switch m := method.(type) {
	case IQRMethod:
		lower := math.Max(0, stats.Q1Range-m.Multiplier*stats.IQR)
		upper := stats.Q3Range + m.Multiplier*stats.IQR
		return lower, upper, nil
	case ZScoreMethod:
		lower := math.Max(0, stats.MeanRange-m.Threshold*stats.StdDevRange)
		upper := stats.MeanRange + m.Threshold*stats.StdDevRange
		return lower, upper, nil
	case PercentileMethod:
		lowIdx := int(m.Low / 100.0 * float64(n))
		highIdx := int(m.High / 100.0 * float64(n))
		if highIdx > n-1 {
			highIdx = n - 1
		}
		return sorted[lowIdx], sorted[highIdx], nil
	default:
		return 0, 0, apperr.Validation("unknown outlier method %T", method)
	}
}
