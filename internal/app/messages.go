// Package app wires the actor runtime together: the application state, the
// closed message families, and the per-subsystem handlers folded by the
// mailbox worker.
package app

import (
	"fmt"
	"time"

	"github.com/vostrik/tradedesk/internal/broker"
	"github.com/vostrik/tradedesk/internal/chart"
)

// InMessage is the closed set of runtime inputs.
type InMessage interface{ isInMessage() }

type (
	// Start flips the runtime to running.
	Start struct{}
	// Stop flips the runtime to stopped.
	Stop struct{}
	// GetState requests a state snapshot.
	GetState struct{}
	// NewState replaces the runtime state wholesale.
	NewState struct{ State *State }
	// IncrementCounter bumps the demo counter.
	IncrementCounter struct{}
	// DecrementCounter drops the demo counter.
	DecrementCounter struct{}
	// ResetCounter zeroes the demo counter.
	ResetCounter struct{}
	// ReportError logs an error and mirrors it to the UI.
	ReportError struct{ Message string }
	// IB routes a broker-subsystem message.
	IB struct{ Msg IBMessage }
	// Chart routes a chart-subsystem message.
	Chart struct{ Msg ChartMessage }
)

func (Start) isInMessage()            {}
func (Stop) isInMessage()             {}
func (GetState) isInMessage()         {}
func (NewState) isInMessage()         {}
func (IncrementCounter) isInMessage() {}
func (DecrementCounter) isInMessage() {}
func (ResetCounter) isInMessage()     {}
func (ReportError) isInMessage()      {}
func (IB) isInMessage()               {}
func (Chart) isInMessage()            {}

// IBMessage is the closed set of broker-subsystem operations.
type IBMessage interface{ isIBMessage() }

type (
	ConnectPaper        struct{}
	ConnectLive         struct{}
	DisconnectIB        struct{}
	SwitchToPaper       struct{}
	SwitchToLive        struct{}
	GetConnectionStatus struct{}

	CreateTemplate struct {
		Name       string
		Symbol     string
		Side       broker.OrderSide
		Quantity   float64
		LimitPrice float64
		StopPrice  float64
		TIF        broker.TimeInForce
		Model      broker.TradingModel
	}
	UpdateTemplate  struct{ Template broker.OrderTemplate }
	DeleteTemplate  struct{ TemplateID string }
	GetTemplate     struct{ TemplateID string }
	GetAllTemplates struct{}

	ActivateTemplate   struct{ TemplateID string }
	DeactivateTemplate struct{ TemplateID string }

	SubscribeMarketData   struct{ Symbol string }
	UnsubscribeMarketData struct{ Symbol string }
	GetMarketData         struct{ Symbol string }

	GetHistoricalData struct {
		Symbol       string
		DurationDays int
		BarSize      string
	}
	CalculateFilteredATR struct {
		Symbol     string
		PeriodDays int
		Method     broker.OutlierMethod
	}
)

func (ConnectPaper) isIBMessage()          {}
func (ConnectLive) isIBMessage()           {}
func (DisconnectIB) isIBMessage()          {}
func (SwitchToPaper) isIBMessage()         {}
func (SwitchToLive) isIBMessage()          {}
func (GetConnectionStatus) isIBMessage()   {}
func (CreateTemplate) isIBMessage()        {}
func (UpdateTemplate) isIBMessage()        {}
func (DeleteTemplate) isIBMessage()        {}
func (GetTemplate) isIBMessage()           {}
func (GetAllTemplates) isIBMessage()       {}
func (ActivateTemplate) isIBMessage()      {}
func (DeactivateTemplate) isIBMessage()    {}
func (SubscribeMarketData) isIBMessage()   {}
func (UnsubscribeMarketData) isIBMessage() {}
func (GetMarketData) isIBMessage()         {}
func (GetHistoricalData) isIBMessage()     {}
func (CalculateFilteredATR) isIBMessage()  {}

// ChartMessage is the closed set of chart-subsystem operations.
type ChartMessage interface{ isChartMessage() }

type (
	UpdateChart struct {
		Symbol string
		Theme  *chart.Theme // nil keeps the current theme
	}
	PanChart struct{ DX, DY float64 }
	ZoomChart struct {
		Factor  float64
		CenterX float64
		CenterY float64
	}
	ResetChartZoom   struct{}
	SetChartViewport struct{ Viewport chart.Viewport }
)

func (UpdateChart) isChartMessage()      {}
func (PanChart) isChartMessage()         {}
func (ZoomChart) isChartMessage()        {}
func (ResetChartZoom) isChartMessage()   {}
func (SetChartViewport) isChartMessage() {}

// OutMessage is the closed set of runtime replies.
type OutMessage interface{ isOutMessage() }

type (
	// Started reports the runtime start time.
	Started struct{ Time time.Time }
	// StateReply carries a snapshot and the time it was taken.
	StateReply struct {
		State Snapshot
		Now   time.Time
	}
	// Ok acknowledges a successful operation.
	Ok struct{}
	// OkMsg acknowledges with a human-readable note.
	OkMsg struct{ Message string }
	// ErrorReply reports a failed operation.
	ErrorReply struct{ Message string }
	// Unhandled echoes a message the runtime did not recognize.
	Unhandled struct{ Msg InMessage }

	// Data-bearing replies for broker queries.
	TemplateIDReply  struct{ TemplateID string }
	TemplateReply    struct{ Template *broker.OrderTemplate }
	TemplatesReply   struct{ Templates []broker.OrderTemplate }
	StatusReply      struct{ Status broker.ConnectionStatus }
	HistoricalReply  struct{ Data *broker.HistoricalData }
	ATRReply         struct{ Result *broker.ATRResult }
	MarketDataReply  struct{ Data *broker.MarketData }
)

func (Started) isOutMessage()         {}
func (StateReply) isOutMessage()      {}
func (Ok) isOutMessage()              {}
func (OkMsg) isOutMessage()           {}
func (ErrorReply) isOutMessage()      {}
func (Unhandled) isOutMessage()       {}
func (TemplateIDReply) isOutMessage() {}
func (TemplateReply) isOutMessage()   {}
func (TemplatesReply) isOutMessage()  {}
func (StatusReply) isOutMessage()     {}
func (HistoricalReply) isOutMessage() {}
func (ATRReply) isOutMessage()        {}
func (MarketDataReply) isOutMessage() {}

// UIMessage is the closed set of values published on the UI event bus.
type UIMessage interface {
	isUIMessage()
	fmt.Stringer
}

type (
	UpdateCounter  struct{ Value int }
	StatusMessage  struct{ Message string }
	ErrorMessage   struct{ Message string }
	RuntimeStarted struct{}
	RuntimeStopped struct{}

	IBConnectionStatus struct {
		PaperConnected bool
		LiveConnected  bool
		ActiveAccount  broker.AccountType
	}
	IBOrderTemplateUpdate struct{ Templates []broker.OrderTemplate }
	IBMarketData          struct {
		Symbol string
		Bid    float64
		Ask    float64
		Last   float64
		Volume int64
	}
	ChartImageUpdate struct {
		Image  []byte // row-major RGB, 3 bytes per pixel
		Width  int
		Height int
		Symbol string
	}
)

func (UpdateCounter) isUIMessage()         {}
func (StatusMessage) isUIMessage()         {}
func (ErrorMessage) isUIMessage()          {}
func (RuntimeStarted) isUIMessage()        {}
func (RuntimeStopped) isUIMessage()        {}
func (IBConnectionStatus) isUIMessage()    {}
func (IBOrderTemplateUpdate) isUIMessage() {}
func (IBMarketData) isUIMessage()          {}
func (ChartImageUpdate) isUIMessage()      {}

func (m UpdateCounter) String() string  { return fmt.Sprintf("Update counter: %d", m.Value) }
func (m StatusMessage) String() string  { return "Status: " + m.Message }
func (m ErrorMessage) String() string   { return "Error: " + m.Message }
func (RuntimeStarted) String() string   { return "Runtime started" }
func (RuntimeStopped) String() string   { return "Runtime stopped" }
func (m IBConnectionStatus) String() string {
	return fmt.Sprintf("Connection status: paper=%t live=%t active=%s", m.PaperConnected, m.LiveConnected, m.ActiveAccount)
}
func (m IBOrderTemplateUpdate) String() string {
	return fmt.Sprintf("Templates updated: %d", len(m.Templates))
}
func (m IBMarketData) String() string {
	return fmt.Sprintf("%s bid=%.2f ask=%.2f last=%.2f", m.Symbol, m.Bid, m.Ask, m.Last)
}
func (m ChartImageUpdate) String() string {
	return fmt.Sprintf("Chart image for %s (%dx%d)", m.Symbol, m.Width, m.Height)
}
