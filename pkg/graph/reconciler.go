package graph

import (
	"time"

	"github.com/cuemby/nexus/pkg/log"
	"github.com/cuemby/nexus/pkg/metrics"
	"github.com/cuemby/nexus/pkg/types"
)

// reconcileInterval mirrors the teacher's scheduler ticker: frequent
// enough that drift between a crash-interrupted commit and the cached
// counters self-heals within a few seconds, cheap enough to run
// indefinitely in the background.
const reconcileInterval = 5 * time.Second

// reconciler periodically recomputes catalog statistics from a live scan,
// correcting drift a crash may have left between a commit and its
// in-memory counter update. pkg/catalog can't do this itself: its
// ReconcileStats takes the scan as a parameter specifically to avoid a
// dependency on the record store.
type reconciler struct {
	g      *Graph
	stopCh chan struct{}
}

func newReconciler(g *Graph) *reconciler {
	return &reconciler{g: g, stopCh: make(chan struct{})}
}

func (r *reconciler) Start() {
	go func() {
		ticker := time.NewTicker(reconcileInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.runOnce()
			case <-r.stopCh:
				return
			}
		}
	}()
}

func (r *reconciler) Stop() {
	close(r.stopCh)
}

func (r *reconciler) runOnce() {
	timer := metrics.NewTimer()
	if err := r.g.cat.ReconcileStats(r.g.scanStats); err != nil {
		log.WithComponent("graph.reconciler").Error().Err(err).Msg("statistics reconciliation failed")
		return
	}
	timer.ObserveDuration(metrics.ReconciliationDuration)
	metrics.ReconciliationCyclesTotal.Inc()
}

// scanStats walks every live node and relationship under a read
// transaction and recomputes the counts ReconcileStats persists.
func (g *Graph) scanStats() (types.CatalogStats, error) {
	tx := g.coord.Begin(true)
	defer tx.Abort()

	stats := types.CatalogStats{
		LabelCounts: map[types.LabelID]uint64{},
		TypeCounts:  map[types.TypeID]uint64{},
	}

	nodeIDs, err := tx.AllNodeIDs()
	if err != nil {
		return stats, err
	}
	stats.NodeCount = uint64(len(nodeIDs))
	for _, id := range nodeIDs {
		rec, err := tx.GetNode(id)
		if err != nil {
			return stats, err
		}
		for lid := uint32(0); lid < types.MaxLabels; lid++ {
			if rec.LabelBits&(1<<lid) != 0 {
				stats.LabelCounts[types.LabelID(lid)]++
			}
		}
	}

	relIDs, err := tx.AllRelIDs()
	if err != nil {
		return stats, err
	}
	stats.RelCount = uint64(len(relIDs))
	for _, id := range relIDs {
		rec, err := tx.GetRelationship(id)
		if err != nil {
			return stats, err
		}
		stats.TypeCounts[rec.TypeID]++
	}

	return stats, nil
}
