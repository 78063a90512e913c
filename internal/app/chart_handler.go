package app

import (
	"context"
	"fmt"

	"github.com/vostrik/tradedesk/internal/broker"
	"github.com/vostrik/tradedesk/internal/chart"
)

// chartFetchBars is how much history one chart pull covers.
const chartFetchBars = 100

// handleChartMessage folds one chart-subsystem message: fetch/store series,
// mutate the viewport, re-render, and push the image to the UI bus.
func (r *Runtime) handleChartMessage(ctx context.Context, msg ChartMessage, st *State, out chan<- OutMessage) *State {
	switch m := msg.(type) {
	case UpdateChart:
		r.log.Info().Str("symbol", m.Symbol).Msg("updating chart")

		if st.Broker == nil {
			st.NotifyUI(ErrorMessage{Message: "Broker client not connected"})
			reply(out, ErrorReply{Message: "broker client not connected"})
			return st
		}

		data, err := st.Broker.GetHistoricalData(ctx, m.Symbol, chartFetchBars, broker.BarSizeDay)
		if err != nil {
			st.NotifyUI(ErrorMessage{Message: fmt.Sprintf("Failed to fetch chart data: %v", err)})
			reply(out, ErrorReply{Message: err.Error()})
			return st
		}

		st.ChartSymbol = m.Symbol
		st.ChartBars = data.Bars
		if st.ViewportCtl == nil || st.ViewportCtl.DataLength() != len(data.Bars) {
			st.ViewportCtl = chart.NewController(len(data.Bars))
		}
		if m.Theme != nil {
			st.ChartTheme = m.Theme
		}

		r.renderAndPublish(st)
		reply(out, Ok{})

	case PanChart:
		if st.ViewportCtl != nil {
			st.ViewportCtl.Pan(m.DX, m.DY)
			r.renderAndPublish(st)
		}
		reply(out, Ok{})

	case ZoomChart:
		if st.ViewportCtl != nil {
			st.ViewportCtl.Zoom(m.Factor, m.CenterX, m.CenterY)
			r.renderAndPublish(st)
		}
		reply(out, Ok{})

	case ResetChartZoom:
		if st.ViewportCtl != nil {
			st.ViewportCtl.ResetZoom()
			r.renderAndPublish(st)
		}
		reply(out, Ok{})

	case SetChartViewport:
		if st.ViewportCtl != nil {
			st.ViewportCtl.SetViewport(m.Viewport)
			r.renderAndPublish(st)
		}
		reply(out, Ok{})

	default:
		reply(out, Unhandled{Msg: Chart{Msg: msg}})
	}

	return st
}

// renderAndPublish rasterizes the current series under the current viewport
// and theme, pushing the image to the UI bus. Render errors are logged and
// surfaced as UI error messages; the fold continues.
func (r *Runtime) renderAndPublish(st *State) {
	if len(st.ChartBars) == 0 || st.ViewportCtl == nil || r.render == nil {
		return
	}

	theme := chart.DarkTheme()
	if st.ChartTheme != nil {
		theme = *st.ChartTheme
	}

	buf, width, height, err := r.render(st.ChartBars, st.ViewportCtl.Viewport(), theme)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to generate chart")
		st.NotifyUI(ErrorMessage{Message: fmt.Sprintf("Failed to generate chart: %v", err)})
		return
	}

	st.NotifyUI(ChartImageUpdate{
		Image:  buf,
		Width:  width,
		Height: height,
		Symbol: st.ChartSymbol,
	})
}
