package ui

import (
	"encoding/json"
	"fmt"

	"github.com/vostrik/tradedesk/internal/app"
)

// envelope is the wire shape of one outbound UI event.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// EncodeUIMessage maps a bus message to its JSON wire form. The image buffer
// in chart updates rides as base64 per encoding/json's []byte handling.
func EncodeUIMessage(msg app.UIMessage) ([]byte, error) {
	var env envelope

	switch m := msg.(type) {
	case app.UpdateCounter:
		env = envelope{Type: "counter", Data: map[string]any{"value": m.Value}}
	case app.StatusMessage:
		env = envelope{Type: "status", Data: map[string]any{"message": m.Message}}
	case app.ErrorMessage:
		env = envelope{Type: "error", Data: map[string]any{"message": m.Message}}
	case app.RuntimeStarted:
		env = envelope{Type: "runtime_started"}
	case app.RuntimeStopped:
		env = envelope{Type: "runtime_stopped"}
	case app.IBConnectionStatus:
		env = envelope{Type: "connection_status", Data: map[string]any{
			"paper_connected": m.PaperConnected,
			"live_connected":  m.LiveConnected,
			"active_account":  string(m.ActiveAccount),
		}}
	case app.IBOrderTemplateUpdate:
		env = envelope{Type: "templates", Data: map[string]any{"templates": m.Templates}}
	case app.IBMarketData:
		env = envelope{Type: "market_data", Data: map[string]any{
			"symbol": m.Symbol,
			"bid":    m.Bid,
			"ask":    m.Ask,
			"last":   m.Last,
			"volume": m.Volume,
		}}
	case app.ChartImageUpdate:
		env = envelope{Type: "chart_image", Data: map[string]any{
			"symbol": m.Symbol,
			"width":  m.Width,
			"height": m.Height,
			"rgb":    m.Image,
		}}
	default:
		return nil, fmt.Errorf("unknown UI message %T", msg)
	}

	return json.Marshal(env)
}
