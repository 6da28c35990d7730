package stats

import (
	"expvar"
	"net/http"
	"time"
)

// Provider records the chat server's runtime counters.
type Provider interface {
	ConnOpened()
	ConnClosed()
	MessageSent()
	ReadReceipt()
	BroadcastDropped()
}

type StatsUpdater struct {
	vars *expvar.Map

	activeConns      *expvar.Int
	messagesSent     *expvar.Int
	readReceipts     *expvar.Int
	broadcastDropped *expvar.Int
}

const statsMapName = "omega-chat-stats"

// statsMap reuses the published map when one exists; expvar panics on
// duplicate names, which would trip repeated construction in tests.
func statsMap() *expvar.Map {
	if m, ok := expvar.Get(statsMapName).(*expvar.Map); ok {
		return m
	}
	return expvar.NewMap(statsMapName)
}

// NewStatsUpdater creates a stats updater publishing counters under
// the "omega-chat-stats" expvar map.
func NewStatsUpdater() *StatsUpdater {
	su := &StatsUpdater{
		vars:             statsMap(),
		activeConns:      new(expvar.Int),
		messagesSent:     new(expvar.Int),
		readReceipts:     new(expvar.Int),
		broadcastDropped: new(expvar.Int),
	}

	startTime := time.Now()
	su.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(startTime).Milliseconds()
	}))
	su.vars.Set("ActiveConnections", su.activeConns)
	su.vars.Set("MessagesSent", su.messagesSent)
	su.vars.Set("ReadReceipts", su.readReceipts)
	su.vars.Set("BroadcastsDropped", su.broadcastDropped)

	return su
}

// Mount exposes the expvar endpoint on mux.
func (su *StatsUpdater) Mount(mux *http.ServeMux) {
	mux.Handle("GET /debug/vars", expvar.Handler())
}

func (su *StatsUpdater) ConnOpened() {
	su.activeConns.Add(1)
}

func (su *StatsUpdater) ConnClosed() {
	su.activeConns.Add(-1)
}

func (su *StatsUpdater) MessageSent() {
	su.messagesSent.Add(1)
}

func (su *StatsUpdater) ReadReceipt() {
	su.readReceipts.Add(1)
}

func (su *StatsUpdater) BroadcastDropped() {
	su.broadcastDropped.Add(1)
}
