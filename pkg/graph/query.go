package graph

import (
	"time"

	"github.com/cuemby/nexus/pkg/cypher"
	"github.com/cuemby/nexus/pkg/events"
	"github.com/cuemby/nexus/pkg/executor"
	"github.com/cuemby/nexus/pkg/log"
	"github.com/cuemby/nexus/pkg/metrics"
	"github.com/cuemby/nexus/pkg/types"
)

// Mode selects whether Execute runs query_text under a read-only or an
// auto-commit write transaction.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

// QueryStats accompanies a query result with timing and shape info an
// embedder can surface to a caller or a metrics dashboard.
type QueryStats struct {
	RowsReturned int
	Duration     time.Duration
}

// QueryResult is Execute's return shape: columns, rows, and stats. It has
// no error field; a failure is reported through Execute's error return.
type QueryResult struct {
	Columns []string
	Rows    [][]types.Value
	Stats   QueryStats
}

// Execute parses queryText, runs it against a transaction whose kind
// matches mode, and returns the result table. write mode commits on
// success and aborts on failure; read mode always aborts (a read
// transaction has nothing to commit).
func (g *Graph) Execute(queryText string, params map[string]any, mode Mode) (*QueryResult, error) {
	start := time.Now()
	query, err := cypher.Parse(queryText, params)
	if err != nil {
		g.broker.Publish(&events.Event{Type: events.EventQueryParseFailed, Message: err.Error()})
		metrics.QueryDuration.WithLabelValues("parse_error").Observe(time.Since(start).Seconds())
		return nil, err
	}

	tx := g.coord.Begin(mode == ModeRead)
	result, err := executor.Execute(tx, query)
	if err != nil {
		_ = tx.Abort()
		metrics.QueryDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, err
	}

	if mode == ModeWrite {
		if err := tx.Commit(); err != nil {
			metrics.QueryDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
			return nil, err
		}
	} else {
		_ = tx.Abort()
	}

	metrics.QueryDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	metrics.QueryRowsReturned.Observe(float64(len(result.Rows)))
	log.WithQueryID(queryID(queryText)).Debug().Int("rows", len(result.Rows)).Msg("query executed")

	return &QueryResult{
		Columns: result.Columns,
		Rows:    result.Rows,
		Stats:   QueryStats{RowsReturned: len(result.Rows), Duration: time.Since(start)},
	}, nil
}

// ExecuteStream behaves like Execute but delivers each row to rowFn as
// soon as the result set is complete, stopping early if rowFn returns
// false. The executor has no incremental-emission path of its own, so
// this runs Execute to completion and replays its rows — the same
// collect-then-replay shape pkg/procedure falls back to for a procedure
// that doesn't implement true streaming.
func (g *Graph) ExecuteStream(queryText string, params map[string]any, mode Mode, rowFn func(columns []string, row []types.Value) bool) error {
	result, err := g.Execute(queryText, params, mode)
	if err != nil {
		return err
	}
	for _, row := range result.Rows {
		if !rowFn(result.Columns, row) {
			break
		}
	}
	return nil
}

// queryID derives a short, stable identifier for a query's log lines
// without hashing the full (possibly large) source text into every line.
func queryID(queryText string) string {
	if len(queryText) <= 24 {
		return queryText
	}
	return queryText[:24]
}
