package graph

import (
	"github.com/cuemby/nexus/pkg/events"
	"github.com/cuemby/nexus/pkg/metrics"
	"github.com/cuemby/nexus/pkg/procedure"
	"github.com/cuemby/nexus/pkg/types"
)

// Call runs a registered procedure to completion under its own read-only
// transaction and returns every result row.
func (g *Graph) Call(name string, args map[string]types.Value) ([]types.ProcedureResult, error) {
	timer := metrics.NewTimer()
	tx := g.coord.Begin(true)
	defer tx.Abort()

	rows, err := g.procs.Call(tx, name, args)
	g.recordProcedureInvocation(name, timer, err)
	return rows, err
}

// CallStream runs a registered procedure and delivers each row to rowFn as
// it's produced, stopping early if rowFn returns false.
func (g *Graph) CallStream(name string, args map[string]types.Value, rowFn func(types.ProcedureResult) bool) error {
	timer := metrics.NewTimer()
	tx := g.coord.Begin(true)
	defer tx.Abort()

	err := g.procs.CallStreaming(tx, name, args, func(row types.ProcedureResult) error {
		if !rowFn(row) {
			return errStreamStopped
		}
		return nil
	})
	if err == errStreamStopped {
		err = nil
	}
	g.recordProcedureInvocation(name, timer, err)
	return err
}

// Register adds a custom (non-built-in) procedure.
func (g *Graph) Register(name string, sig types.ProcedureSignature, fn procedure.Func) error {
	return g.procs.Register(name, sig, fn)
}

// Unregister removes a custom procedure. Built-ins cannot be unregistered.
func (g *Graph) Unregister(name string) error {
	return g.procs.Unregister(name)
}

// Procedures lists every registered procedure name, built-in and custom.
func (g *Graph) Procedures() []string {
	return g.procs.List()
}

func (g *Graph) recordProcedureInvocation(name string, timer *metrics.Timer, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ProcedureInvocationsTotal.WithLabelValues(name, outcome).Inc()
	timer.ObserveDurationVec(metrics.ProcedureDuration, name)
	g.broker.Publish(&events.Event{
		Type:     events.EventProcedureInvoked,
		Message:  name,
		Metadata: map[string]string{"outcome": outcome},
	})
}

var errStreamStopped = &streamStopped{}

type streamStopped struct{}

func (*streamStopped) Error() string { return "stream stopped by caller" }
