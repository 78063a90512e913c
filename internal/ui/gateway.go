package ui

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/vostrik/tradedesk/internal/app"
	"github.com/vostrik/tradedesk/internal/broker"
	"github.com/vostrik/tradedesk/internal/chart"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Gateway fans runtime UI events out to connected front-ends and routes
// their commands back through the runtime mailbox.
type Gateway struct {
	log        zerolog.Logger
	rt         *app.Runtime
	bufferSize int

	mu      sync.RWMutex
	clients map[uint64]*Client
}

// NewGateway builds the gateway and subscribes it to the runtime's UI bus.
func NewGateway(rt *app.Runtime, bufferSize int, log zerolog.Logger) *Gateway {
	g := &Gateway{
		log:        log.With().Str("component", "ui").Logger(),
		rt:         rt,
		bufferSize: bufferSize,
		clients:    make(map[uint64]*Client),
	}
	rt.UIEvents().Subscribe(g.broadcast)
	return g
}

// broadcast encodes one bus message and enqueues it to every client. Runs on
// the notifier's goroutine, so it only enqueues; slow clients drop.
func (g *Gateway) broadcast(msg app.UIMessage) {
	data, err := EncodeUIMessage(msg)
	if err != nil {
		g.log.Error().Err(err).Msg("failed to encode UI message")
		return
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.clients {
		c.Send(data)
	}
}

// register adds a new client.
func (g *Gateway) register(conn *websocket.Conn) *Client {
	c := NewClient(conn, g.bufferSize)
	g.mu.Lock()
	g.clients[c.ID] = c
	g.mu.Unlock()
	g.log.Info().Uint64("client", c.ID).Str("addr", conn.RemoteAddr().String()).Msg("UI client connected")
	return c
}

// unregister removes a client.
func (g *Gateway) unregister(c *Client) {
	g.mu.Lock()
	delete(g.clients, c.ID)
	g.mu.Unlock()
	c.Close()
	g.log.Info().Uint64("client", c.ID).Msg("UI client disconnected")
}

// ClientCount returns the number of connected front-ends.
func (g *Gateway) ClientCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.clients)
}

// Register mounts the gateway's HTTP surface on mux.
func (g *Gateway) Register(mux *http.ServeMux) {
	mux.HandleFunc("/ui", g.handleWS)
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/templates", g.handleTemplates)
}

func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Error().Err(err).Msg("websocket upgrade error")
		return
	}

	client := g.register(conn)
	go g.writePump(client)
	go g.readPump(client)
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","clients":%d}`, g.ClientCount())
}

// handleTemplates serves a read-only JSON view of the template registry.
func (g *Gateway) handleTemplates(w http.ResponseWriter, r *http.Request) {
	out := g.rt.Ask(r.Context(), app.IB{Msg: app.GetAllTemplates{}})
	reply, ok := out.(app.TemplatesReply)
	if !ok {
		http.Error(w, "templates unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"templates": reply.Templates})
}

// commandMessage is one front-end → runtime command.
type commandMessage struct {
	Action string `json:"action"`

	// Template fields
	TemplateID string  `json:"template_id,omitempty"`
	Name       string  `json:"name,omitempty"`
	Symbol     string  `json:"symbol,omitempty"`
	Side       string  `json:"side,omitempty"`
	Quantity   float64 `json:"quantity,omitempty"`
	LimitPrice float64 `json:"limit_price,omitempty"`
	StopPrice  float64 `json:"stop_price,omitempty"`
	TIF        string  `json:"tif,omitempty"`
	Model      string  `json:"model,omitempty"`

	// Chart fields
	DX      float64 `json:"dx,omitempty"`
	DY      float64 `json:"dy,omitempty"`
	Factor  float64 `json:"factor,omitempty"`
	CenterX float64 `json:"cx,omitempty"`
	CenterY float64 `json:"cy,omitempty"`

	// ATR fields
	PeriodDays int `json:"period_days,omitempty"`

	// Explicit viewport for set_viewport
	Viewport *chart.Viewport `json:"viewport,omitempty"`
}

func (g *Gateway) readPump(c *Client) {
	defer g.unregister(c)

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.log.Error().Uint64("client", c.ID).Err(err).Msg("read error")
			}
			return
		}

		var cmd commandMessage
		if err := json.Unmarshal(message, &cmd); err != nil {
			g.log.Warn().Uint64("client", c.ID).Err(err).Msg("invalid command")
			continue
		}

		g.handleCommand(c, &cmd)
	}
}

// handleCommand maps a front-end command to a runtime message. Results flow
// back through the UI bus rather than per-command replies.
func (g *Gateway) handleCommand(c *Client, cmd *commandMessage) {
	msg, ok := g.commandToMessage(cmd)
	if !ok {
		g.log.Warn().Uint64("client", c.ID).Str("action", cmd.Action).Msg("unknown command")
		return
	}
	g.rt.Tell(msg)
}

func (g *Gateway) commandToMessage(cmd *commandMessage) (app.InMessage, bool) {
	switch cmd.Action {
	case "start":
		return app.Start{}, true
	case "stop":
		return app.Stop{}, true
	case "increment":
		return app.IncrementCounter{}, true
	case "decrement":
		return app.DecrementCounter{}, true
	case "reset":
		return app.ResetCounter{}, true

	case "connect_paper":
		return app.IB{Msg: app.ConnectPaper{}}, true
	case "connect_live":
		return app.IB{Msg: app.ConnectLive{}}, true
	case "disconnect":
		return app.IB{Msg: app.DisconnectIB{}}, true
	case "switch_paper":
		return app.IB{Msg: app.SwitchToPaper{}}, true
	case "switch_live":
		return app.IB{Msg: app.SwitchToLive{}}, true

	case "create_template":
		return app.IB{Msg: app.CreateTemplate{
			Name:       cmd.Name,
			Symbol:     cmd.Symbol,
			Side:       parseSide(cmd.Side),
			Quantity:   cmd.Quantity,
			LimitPrice: cmd.LimitPrice,
			StopPrice:  cmd.StopPrice,
			TIF:        parseTIF(cmd.TIF),
			Model:      parseModel(cmd.Model),
		}}, true
	case "delete_template":
		return app.IB{Msg: app.DeleteTemplate{TemplateID: cmd.TemplateID}}, true
	case "activate":
		return app.IB{Msg: app.ActivateTemplate{TemplateID: cmd.TemplateID}}, true
	case "deactivate":
		return app.IB{Msg: app.DeactivateTemplate{TemplateID: cmd.TemplateID}}, true

	case "calculate_atr":
		period := cmd.PeriodDays
		if period <= 0 {
			period = 14
		}
		return app.IB{Msg: app.CalculateFilteredATR{
			Symbol:     cmd.Symbol,
			PeriodDays: period,
			Method:     broker.DefaultOutlierMethod(),
		}}, true

	case "update_chart":
		return app.Chart{Msg: app.UpdateChart{Symbol: cmd.Symbol}}, true
	case "pan":
		return app.Chart{Msg: app.PanChart{DX: cmd.DX, DY: cmd.DY}}, true
	case "zoom":
		return app.Chart{Msg: app.ZoomChart{Factor: cmd.Factor, CenterX: cmd.CenterX, CenterY: cmd.CenterY}}, true
	case "reset_zoom":
		return app.Chart{Msg: app.ResetChartZoom{}}, true
	case "set_viewport":
		if cmd.Viewport == nil {
			return nil, false
		}
		return app.Chart{Msg: app.SetChartViewport{Viewport: *cmd.Viewport}}, true
	}
	return nil, false
}

func parseSide(s string) broker.OrderSide {
	if s == "Short" {
		return broker.SideShort
	}
	return broker.SideLong
}

func parseTIF(s string) broker.TimeInForce {
	if s == "GTC" {
		return broker.TIFGTC
	}
	return broker.TIFDay
}

func parseModel(s string) broker.TradingModel {
	switch s {
	case "FalseBreakout":
		return broker.ModelFalseBreakout
	case "Bounce":
		return broker.ModelBounce
	case "Continuation":
		return broker.ModelContinuation
	}
	return broker.ModelBreakout
}

// writePump drains the client's send queue to the socket.
func (g *Gateway) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case data, ok := <-c.SendCh():
			if !ok {
				return
			}
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.Done():
			return
		}
	}
}
