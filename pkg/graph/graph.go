package graph

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/nexus/pkg/catalog"
	"github.com/cuemby/nexus/pkg/events"
	"github.com/cuemby/nexus/pkg/index"
	"github.com/cuemby/nexus/pkg/log"
	"github.com/cuemby/nexus/pkg/metrics"
	"github.com/cuemby/nexus/pkg/nexuserr"
	"github.com/cuemby/nexus/pkg/procedure"
	"github.com/cuemby/nexus/pkg/propstore"
	"github.com/cuemby/nexus/pkg/recordstore"
	"github.com/cuemby/nexus/pkg/txn"
	"github.com/cuemby/nexus/pkg/types"
)

// Config controls where a Graph's data directory lives.
type Config struct {
	DataDir string
}

// Graph is the opened, running database: every subsystem wired together
// behind the query, CRUD, catalog, and procedure surfaces.
type Graph struct {
	dataDir string

	records *recordstore.Store
	props   *propstore.Store
	cat     *catalog.Catalog
	idx     *index.Set
	broker  *events.Broker
	coord   *txn.Coordinator
	procs   *procedure.Registry

	reconciler *reconciler
	collector  *metrics.Collector
}

// Open creates cfg.DataDir if needed, opens every durable store beneath
// it, rebuilds the in-memory index set from a live scan (the index carries
// no durable state of its own), and starts the background statistics
// reconciler and metrics collector.
func Open(cfg Config) (*Graph, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nexuserr.Wrap(nexuserr.KindStorageError, err, "create data directory %s", cfg.DataDir)
	}

	records, err := recordstore.Open(filepath.Join(cfg.DataDir, "nodes.db"), filepath.Join(cfg.DataDir, "rels.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}
	props, err := propstore.Open(filepath.Join(cfg.DataDir, "props.db"))
	if err != nil {
		records.Close()
		return nil, fmt.Errorf("failed to open property store: %w", err)
	}
	cat, err := catalog.Open(filepath.Join(cfg.DataDir, "catalog.db"))
	if err != nil {
		props.Close()
		records.Close()
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	idx := index.New()
	broker := events.NewBroker()
	broker.Start()
	coord := txn.New(records, props, cat, idx, broker)

	g := &Graph{
		dataDir: cfg.DataDir,
		records: records,
		props:   props,
		cat:     cat,
		idx:     idx,
		broker:  broker,
		coord:   coord,
		procs:   procedure.New(cat),
	}

	if err := g.rebuildIndex(); err != nil {
		g.Close()
		return nil, fmt.Errorf("failed to rebuild index: %w", err)
	}

	g.reconciler = newReconciler(g)
	g.reconciler.Start()

	g.collector = metrics.NewCollector(&statsSource{cat: cat, records: records, props: props})
	g.collector.Start()

	log.WithComponent("graph").Info().Str("data_dir", cfg.DataDir).Msg("opened")
	return g, nil
}

// rebuildIndex scans every live node and relationship and repopulates the
// index set, the one piece of engine state that is never made durable.
func (g *Graph) rebuildIndex() error {
	tx := g.coord.Begin(true)
	defer tx.Abort()

	nodeIDs, err := tx.AllNodeIDs()
	if err != nil {
		return err
	}
	for _, id := range nodeIDs {
		rec, err := tx.GetNode(id)
		if err != nil {
			return err
		}
		for lid := uint32(0); lid < types.MaxLabels; lid++ {
			if rec.LabelBits&(1<<lid) != 0 {
				g.idx.AddNodeLabel(id, types.LabelID(lid))
			}
		}
		if rec.PropPtr == types.NoProps {
			continue
		}
		bag, err := tx.NodeProperties(rec.PropPtr)
		if err != nil {
			return err
		}
		for key, val := range bag {
			kid, err := g.cat.GetOrCreateKey(key)
			if err != nil {
				return err
			}
			g.idx.SetNodeProperty(id, kid, valueFromProperty(val))
		}
	}

	relIDs, err := tx.AllRelIDs()
	if err != nil {
		return err
	}
	for _, id := range relIDs {
		rec, err := tx.GetRelationship(id)
		if err != nil {
			return err
		}
		g.idx.AddRelType(id, rec.TypeID)
	}

	log.WithComponent("graph").Debug().Int("nodes", len(nodeIDs)).Int("rels", len(relIDs)).Msg("rebuilt index")
	return nil
}

// valueFromProperty converts a decoded property value into the tagged
// form the index stores, mirroring the conversion the transaction
// coordinator applies on every incremental write.
func valueFromProperty(v any) types.Value {
	switch val := v.(type) {
	case nil:
		return types.Value{Kind: types.ValueNull}
	case bool:
		return types.Value{Kind: types.ValueBool, Bool: val}
	case float64:
		return types.Value{Kind: types.ValueNumber, IsFloat: true, Num: val}
	case int64:
		return types.Value{Kind: types.ValueNumber, Int: val}
	case string:
		return types.Value{Kind: types.ValueString, Str: val}
	default:
		return types.Value{Kind: types.ValueNull}
	}
}

// Close stops the background loops and closes every durable store.
func (g *Graph) Close() error {
	if g.collector != nil {
		g.collector.Stop()
	}
	if g.reconciler != nil {
		g.reconciler.Stop()
	}
	g.broker.Stop()

	if err := g.cat.Close(); err != nil {
		return err
	}
	if err := g.props.Close(); err != nil {
		return err
	}
	return g.records.Close()
}

// statsSource adapts a Graph's stores to metrics.StatsSource.
type statsSource struct {
	cat     *catalog.Catalog
	records *recordstore.Store
	props   *propstore.Store
}

func (s *statsSource) Stats() types.CatalogStats { return s.cat.Stats() }

func (s *statsSource) LabelName(id types.LabelID) (string, bool) { return s.cat.LabelName(id) }

func (s *statsSource) RecordStoreSize() int64 {
	nodeBytes, relBytes := s.records.Size()
	return nodeBytes + relBytes
}

func (s *statsSource) PropertyStoreSize() int64 { return s.props.Size() }

// HealthCheck runs a cheap liveness probe against every durable store and
// returns one entry per subsystem; a nil map value means that subsystem is
// healthy. It does not open an HTTP endpoint — an embedder's own health
// surface calls this and renders the result however it likes.
func (g *Graph) HealthCheck() map[string]error {
	checks := map[string]error{
		"property_store": g.props.HealthCheck(),
	}

	tx := g.coord.Begin(true)
	defer tx.Abort()
	if _, err := tx.AllNodeIDs(); err != nil {
		checks["record_store"] = err
	} else {
		checks["record_store"] = nil
	}
	checks["catalog"] = nil
	if _, err := g.cat.ListLabels(); err != nil {
		checks["catalog"] = err
	}
	return checks
}
