// Package broker manages the connection to the trading gateway: template
// registry, bracket-order lifecycle, historical data, and the filtered-ATR
// engine.
package broker

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vostrik/tradedesk/internal/apperr"
)

// OrderSide is the direction of the entry order.
type OrderSide string

const (
	SideLong  OrderSide = "Long"
	SideShort OrderSide = "Short"
)

// Action returns the broker action for the entry order.
func (s OrderSide) Action() string {
	if s == SideShort {
		return "SELL"
	}
	return "BUY"
}

// StopAction returns the broker action for the attached stop, always the
// opposite of the entry.
func (s OrderSide) StopAction() string {
	if s == SideShort {
		return "BUY"
	}
	return "SELL"
}

// TimeInForce for the parent order. The stop child is always GTC.
type TimeInForce string

const (
	TIFDay TimeInForce = "DAY"
	TIFGTC TimeInForce = "GTC"
)

// TemplateStatus is the lifecycle state of an order template.
type TemplateStatus string

const (
	StatusInactive     TemplateStatus = "Inactive"     // not sent to the broker
	StatusActivating   TemplateStatus = "Activating"   // being sent
	StatusActive       TemplateStatus = "Active"       // live at the broker
	StatusDeactivating TemplateStatus = "Deactivating" // being cancelled
	StatusFailed       TemplateStatus = "Failed"       // activation or deactivation failed
)

// TradingModel classifies the setup a template trades.
type TradingModel string

const (
	ModelBreakout      TradingModel = "Breakout"
	ModelFalseBreakout TradingModel = "FalseBreakout"
	ModelBounce        TradingModel = "Bounce"
	ModelContinuation  TradingModel = "Continuation"
)

// AccountType selects which connection subsequent orders are routed through.
type AccountType string

const (
	AccountPaper AccountType = "Paper"
	AccountLive  AccountType = "Live"
)

// OrderTemplate is the durable user intent for one bracket order: a limit
// entry with an attached stop. Templates persist independently of whether the
// pair is currently live at the broker.
type OrderTemplate struct {
	ID                 string         `bson:"_id" json:"id"`
	Name               string         `bson:"name" json:"name"`
	Symbol             string         `bson:"symbol" json:"symbol"`
	Side               OrderSide      `bson:"side" json:"side"`
	Quantity           float64        `bson:"quantity" json:"quantity"`
	LimitPrice         float64        `bson:"limit_price" json:"limit_price"`
	StopPrice          float64        `bson:"stop_price" json:"stop_price"`
	TechnicalStopPrice *float64       `bson:"technical_stop_price,omitempty" json:"technical_stop_price,omitempty"`
	TimeInForce        TimeInForce    `bson:"time_in_force" json:"time_in_force"`
	Status             TemplateStatus `bson:"status" json:"status"`
	ParentOrderID      *int           `bson:"parent_order_id,omitempty" json:"parent_order_id,omitempty"`
	StopOrderID        *int           `bson:"stop_order_id,omitempty" json:"stop_order_id,omitempty"`
	CreatedAt          time.Time      `bson:"created_at" json:"created_at"`
	ActivatedAt        *time.Time     `bson:"activated_at,omitempty" json:"activated_at,omitempty"`
	Notes              string         `bson:"notes,omitempty" json:"notes,omitempty"`
	Model              TradingModel   `bson:"model" json:"model"`
	IsReadOnly         bool           `bson:"is_read_only" json:"is_read_only"`
	RiskPerTrade       float64        `bson:"risk_per_trade" json:"risk_per_trade"`
}

// NewTemplate builds an Inactive template with a fresh id and the default
// risk budget.
func NewTemplate(name, symbol string, side OrderSide, quantity, limitPrice, stopPrice float64, tif TimeInForce, model TradingModel) OrderTemplate {
	return OrderTemplate{
		ID:           uuid.NewString(),
		Name:         name,
		Symbol:       symbol,
		Side:         side,
		Quantity:     quantity,
		LimitPrice:   limitPrice,
		StopPrice:    stopPrice,
		TimeInForce:  tif,
		Status:       StatusInactive,
		CreatedAt:    time.Now().UTC(),
		Model:        model,
		RiskPerTrade: 100.0,
	}
}

// IsActive reports whether the bracket is live at the broker.
func (t *OrderTemplate) IsActive() bool { return t.Status == StatusActive }

// CanActivate reports whether the template may be sent to the broker.
func (t *OrderTemplate) CanActivate() bool {
	return t.Status == StatusInactive || t.Status == StatusFailed
}

// CanDeactivate reports whether the template's orders may be cancelled.
func (t *OrderTemplate) CanDeactivate() bool { return t.Status == StatusActive }

// StopLoss returns the technical stop when set, otherwise the calculated stop.
func (t *OrderTemplate) StopLoss() float64 {
	if t.TechnicalStopPrice != nil {
		return *t.TechnicalStopPrice
	}
	return t.StopPrice
}

// Validate checks the domain invariants: positive quantity and prices, and
// side-appropriate stop placement.
func (t *OrderTemplate) Validate() error {
	if t.Quantity <= 0 {
		return apperr.Validation("quantity must be positive")
	}
	if t.LimitPrice <= 0 {
		return apperr.Validation("limit price must be positive")
	}
	if t.StopPrice <= 0 {
		return apperr.Validation("stop price must be positive")
	}
	switch t.Side {
	case SideLong:
		if t.StopPrice >= t.LimitPrice {
			return apperr.Validation("for long orders, stop price must be below limit price")
		}
	case SideShort:
		if t.StopPrice <= t.LimitPrice {
			return apperr.Validation("for short orders, stop price must be above limit price")
		}
	default:
		return apperr.Validation("unknown order side %q", t.Side)
	}
	return nil
}

// HistoricalBar is one OHLCV sample with weighted average price and trade
// count, timestamped in UTC.
type HistoricalBar struct {
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	Open      float64   `bson:"open" json:"open"`
	High      float64   `bson:"high" json:"high"`
	Low       float64   `bson:"low" json:"low"`
	Close     float64   `bson:"close" json:"close"`
	Volume    int64     `bson:"volume" json:"volume"`
	WAP       float64   `bson:"wap" json:"wap"`
	Count     int64     `bson:"count" json:"count"`
}

// Range is the bar's high-low spread.
func (b HistoricalBar) Range() float64 { return b.High - b.Low }

// HistoricalData is a fetched bar series, sorted ascending by timestamp.
type HistoricalData struct {
	Symbol   string
	BarSize  string
	Duration string
	Bars     []HistoricalBar
}

// SortByTime orders the bars ascending by timestamp.
func (h *HistoricalData) SortByTime() {
	sort.Slice(h.Bars, func(i, j int) bool {
		return h.Bars[i].Timestamp.Before(h.Bars[j].Timestamp)
	})
}

// ConnectionStatus is a point-in-time view of the two gateway connections.
type ConnectionStatus struct {
	PaperConnected bool
	LiveConnected  bool
	ActiveAccount  AccountType // empty when no account is active
}

// MarketData is the last known quote for a symbol.
type MarketData struct {
	Symbol    string
	Bid       float64
	Ask       float64
	Last      float64
	Volume    int64
	Timestamp time.Time
}
