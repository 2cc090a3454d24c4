package rest

import "sync/atomic"

// Gate holds the readiness bit. It starts closed and is opened once the
// database bootstrap succeeds.
type Gate struct {
	open atomic.Bool
}

func (g *Gate) Open()       { g.open.Store(true) }
func (g *Gate) Ready() bool { return g.open.Load() }
