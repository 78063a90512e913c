package broker

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vostrik/tradedesk/internal/apperr"
)

// Client maintains up to two gateway connections (paper, live), the template
// registry, the active-order map, and the order-id allocator. Each internal
// map has its own lock; no lock is ever held across a blocking gateway call.
type Client struct {
	log  zerolog.Logger
	dial Dialer

	connMu sync.RWMutex
	paper  Gateway
	live   Gateway

	accountMu     sync.RWMutex
	activeAccount AccountType // empty = none selected

	tplMu     sync.RWMutex
	templates map[string]OrderTemplate

	ordersMu     sync.Mutex
	activeOrders map[int]string // broker order id -> template id

	idMu        sync.Mutex
	nextOrderID int

	mdMu       sync.RWMutex
	marketData map[string]MarketData
}

// NewClient builds a disconnected client using the given dialer.
func NewClient(dial Dialer, log zerolog.Logger) *Client {
	return &Client{
		log:          log.With().Str("component", "broker").Logger(),
		dial:         dial,
		templates:    make(map[string]OrderTemplate),
		activeOrders: make(map[int]string),
		nextOrderID:  1000,
		marketData:   make(map[string]MarketData),
	}
}

// ConnectPaper opens the paper connection and makes it the active account.
// Failure leaves the client unchanged.
func (c *Client) ConnectPaper() error {
	gw, err := c.dial(GatewayHost, PaperPort, PaperClientID)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to connect to paper account")
		return apperr.Wrap(apperr.ErrIBConnection, err, "paper connection failed")
	}

	c.connMu.Lock()
	c.paper = gw
	c.connMu.Unlock()

	c.setActiveAccount(AccountPaper)
	c.log.Info().Msg("connected to paper trading account and set as active")
	return nil
}

// ConnectLive opens the live connection and makes it the active account.
// Failure leaves the client unchanged.
func (c *Client) ConnectLive() error {
	gw, err := c.dial(GatewayHost, LivePort, LiveClientID)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to connect to live account")
		return apperr.Wrap(apperr.ErrIBConnection, err, "live connection failed")
	}

	c.connMu.Lock()
	c.live = gw
	c.connMu.Unlock()

	c.setActiveAccount(AccountLive)
	c.log.Warn().Msg("connected to LIVE trading account and set as active")
	return nil
}

// Disconnect drops both connections and clears the active account.
func (c *Client) Disconnect() {
	c.connMu.Lock()
	paper, live := c.paper, c.live
	c.paper, c.live = nil, nil
	c.connMu.Unlock()

	if paper != nil {
		paper.Close()
	}
	if live != nil {
		live.Close()
	}

	c.accountMu.Lock()
	c.activeAccount = ""
	c.accountMu.Unlock()

	c.log.Info().Msg("disconnected from broker gateway")
}

// SwitchToPaper routes subsequent orders through the paper connection.
func (c *Client) SwitchToPaper() error {
	c.connMu.RLock()
	connected := c.paper != nil
	c.connMu.RUnlock()
	if !connected {
		return apperr.Connection("paper account not connected")
	}
	c.setActiveAccount(AccountPaper)
	c.log.Info().Msg("switched to paper trading account")
	return nil
}

// SwitchToLive routes subsequent orders through the live connection.
func (c *Client) SwitchToLive() error {
	c.connMu.RLock()
	connected := c.live != nil
	c.connMu.RUnlock()
	if !connected {
		return apperr.Connection("live account not connected")
	}
	c.setActiveAccount(AccountLive)
	c.log.Warn().Msg("switched to LIVE trading account")
	return nil
}

// ConnectionStatus is a pure read of both connections and the selector.
func (c *Client) ConnectionStatus() ConnectionStatus {
	c.connMu.RLock()
	paper, live := c.paper != nil, c.live != nil
	c.connMu.RUnlock()

	c.accountMu.RLock()
	active := c.activeAccount
	c.accountMu.RUnlock()

	return ConnectionStatus{
		PaperConnected: paper,
		LiveConnected:  live,
		ActiveAccount:  active,
	}
}

func (c *Client) setActiveAccount(a AccountType) {
	c.accountMu.Lock()
	c.activeAccount = a
	c.accountMu.Unlock()
}

// activeGateway resolves the selected connection or fails with a
// connection error.
func (c *Client) activeGateway() (Gateway, error) {
	c.accountMu.RLock()
	active := c.activeAccount
	c.accountMu.RUnlock()

	c.connMu.RLock()
	defer c.connMu.RUnlock()

	switch active {
	case AccountPaper:
		if c.paper == nil {
			return nil, apperr.Connection("paper client not connected")
		}
		return c.paper, nil
	case AccountLive:
		if c.live == nil {
			return nil, apperr.Connection("live client not connected")
		}
		return c.live, nil
	}
	return nil, apperr.Connection("no active account selected")
}

// allocateOrderIDs hands out the parent id and the immediately following
// stop id, so the gateway can attach the stop as a bracket child.
func (c *Client) allocateOrderIDs() (parentID, stopID int) {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	parentID = c.nextOrderID
	c.nextOrderID++
	stopID = c.nextOrderID
	c.nextOrderID++
	return parentID, stopID
}

// SubscribeMarketData accepts and logs interest in a symbol's quotes. The
// gateway does not stream ticks and the client keeps no subscription list;
// quotes stored through RecordQuote land in the map whether or not the
// symbol was subscribed.
func (c *Client) SubscribeMarketData(symbol string) error {
	c.log.Info().Str("symbol", symbol).Msg("market data subscription requested")
	return nil
}

// UnsubscribeMarketData drops the last known quote for a symbol.
func (c *Client) UnsubscribeMarketData(symbol string) {
	c.mdMu.Lock()
	delete(c.marketData, symbol)
	c.mdMu.Unlock()
	c.log.Info().Str("symbol", symbol).Msg("unsubscribed from market data")
}

// MarketData returns the last known quote for a symbol, if any.
func (c *Client) MarketData(symbol string) (MarketData, bool) {
	c.mdMu.RLock()
	defer c.mdMu.RUnlock()
	md, ok := c.marketData[symbol]
	return md, ok
}

// RecordQuote stores a quote delivered by the gateway.
func (c *Client) RecordQuote(md MarketData) {
	if md.Timestamp.IsZero() {
		md.Timestamp = time.Now().UTC()
	}
	c.mdMu.Lock()
	c.marketData[md.Symbol] = md
	c.mdMu.Unlock()
}
