package app

import (
	"time"

	"github.com/vostrik/tradedesk/internal/broker"
	"github.com/vostrik/tradedesk/internal/chart"
)

// State is the singly-owned runtime value. It is created at startup and
// mutated exclusively by the mailbox worker; everything else sees snapshots.
type State struct {
	// Version increases on Start, Stop and every counter message.
	Version uint64
	// Counter is the demo counter.
	Counter int
	// StartTime is when the runtime last started.
	StartTime time.Time
	// IsRunning flips on Start/Stop.
	IsRunning bool

	// Broker is the shared broker client handle, created on first use.
	Broker *broker.Client

	// Last fetched chart series.
	ChartSymbol string
	ChartBars   []broker.HistoricalBar

	// ViewportCtl tracks the chart window; recreated when the series
	// length changes.
	ViewportCtl *chart.Controller

	// ChartTheme is the last theme selected for rendering.
	ChartTheme *chart.Theme

	// notify publishes to the UI event bus. Injected by the runtime so the
	// state does not hold a back-edge to it.
	notify func(UIMessage)
}

// NewDefaultState returns a stopped state with a zero counter.
func NewDefaultState() *State {
	return &State{StartTime: time.Now()}
}

// NotifyUI publishes a message to the UI event bus, if one is attached.
func (s *State) NotifyUI(msg UIMessage) {
	if s.notify != nil {
		s.notify(msg)
	}
}

// Snapshot is the copyable view of State handed out on GetState.
type Snapshot struct {
	Version     uint64
	Counter     int
	StartTime   time.Time
	IsRunning   bool
	ChartSymbol string
	ChartBars   int
	Viewport    *chart.Viewport
	Connected   bool
}

// Snapshot captures the current state for a reader.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Version:     s.Version,
		Counter:     s.Counter,
		StartTime:   s.StartTime,
		IsRunning:   s.IsRunning,
		ChartSymbol: s.ChartSymbol,
		ChartBars:   len(s.ChartBars),
		Connected:   s.Broker != nil,
	}
	if s.ViewportCtl != nil {
		vp := s.ViewportCtl.Viewport()
		snap.Viewport = &vp
	}
	return snap
}
