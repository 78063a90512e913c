package broker

import "time"

// Gateway endpoints. Paper and live TWS listen on different ports and each
// connection carries its own client id.
const (
	GatewayHost   = "127.0.0.1"
	PaperPort     = 7497
	PaperClientID = 101
	LivePort      = 7496
	LiveClientID  = 102
)

// Supported bar sizes for historical requests.
const (
	BarSizeDay  = "1 day"
	BarSizeHour = "1 hour"
)

// Contract identifies the instrument an order or data request targets.
type Contract struct {
	Symbol   string
	SecType  string
	Exchange string
	Currency string
}

// Stock builds a US stock contract routed through SMART.
func Stock(symbol string) Contract {
	return Contract{Symbol: symbol, SecType: "STK", Exchange: "SMART", Currency: "USD"}
}

// Order is the wire-level order sent to the gateway. ParentID attaches a
// child to a bracket; Transmit=false holds the parent until the child
// arrives and transmits the pair atomically.
type Order struct {
	Action     string // BUY or SELL
	OrderType  string // LMT or STP
	Quantity   float64
	LimitPrice float64 // LMT only
	AuxPrice   float64 // STP trigger
	ParentID   int
	TIF        string
	Transmit   bool
}

// Bar is one historical sample as returned by the gateway.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
	WAP    float64
	Count  int64
}

// Gateway is the blocking broker API. Every method may block on network I/O;
// callers must not hold locks across these calls. The concrete implementation
// lives in internal/tws; tests substitute a scripted fake.
type Gateway interface {
	// PlaceOrder submits the order under the given broker order id.
	PlaceOrder(orderID int, contract Contract, order Order) error
	// CancelOrder cancels a previously placed order.
	CancelOrder(orderID int) error
	// HistoricalData fetches bars ending at end (zero time = now) covering
	// durationDays of the given bar size, trades only, regular hours.
	HistoricalData(contract Contract, end time.Time, durationDays int, barSize string) ([]Bar, error)
	// Close tears the connection down.
	Close() error
}

// Dialer opens a blocking gateway connection.
type Dialer func(host string, port, clientID int) (Gateway, error)
