package procedure

import (
	"strings"
	"sync"

	"github.com/cuemby/nexus/pkg/catalog"
	"github.com/cuemby/nexus/pkg/log"
	"github.com/cuemby/nexus/pkg/nexuserr"
	"github.com/cuemby/nexus/pkg/types"
)

// builtinPrefix marks a procedure name as built-in; such names are
// registered at construction and protected from Unregister.
const builtinPrefix = "gds."

// Tx is the read surface a procedure needs to inspect the graph. *txn.Tx
// satisfies it structurally.
type Tx interface {
	GetNode(id types.NodeID) (types.NodeRecord, error)
	GetRelationship(id types.RelID) (types.RelRecord, error)
	NodeProperties(ptr uint64) (types.PropertyBag, error)
	RelationshipsOf(id types.NodeID) ([]types.RelRecord, error)
	AllNodeIDs() ([]types.NodeID, error)
	Catalog() *catalog.Catalog
}

// Procedure is a named, signature-checked graph algorithm.
type Procedure interface {
	Name() string
	Signature() types.ProcedureSignature
	Execute(tx Tx, args map[string]types.Value) ([]types.ProcedureResult, error)
}

// StreamingProcedure is a Procedure that can emit rows as they're
// produced instead of collecting them all up front.
type StreamingProcedure interface {
	Procedure
	ExecuteStreaming(tx Tx, args map[string]types.Value, emit func(types.ProcedureResult) error) error
}

// Func adapts a plain function into a custom Procedure.
type Func func(tx Tx, args map[string]types.Value) ([]types.ProcedureResult, error)

type funcProcedure struct {
	sig types.ProcedureSignature
	fn  Func
}

func (p *funcProcedure) Name() string                      { return p.sig.Name }
func (p *funcProcedure) Signature() types.ProcedureSignature { return p.sig }
func (p *funcProcedure) Execute(tx Tx, args map[string]types.Value) ([]types.ProcedureResult, error) {
	return p.fn(tx, args)
}

// Registry holds every registered procedure and persists custom
// (non-built-in) signatures to the catalog so a restart can at least
// surface which user-defined names were known.
type Registry struct {
	mu    sync.RWMutex
	procs map[string]Procedure
	cat   *catalog.Catalog
}

// New builds a registry with every built-in procedure registered, backed
// by cat for custom-procedure signature persistence.
func New(cat *catalog.Catalog) *Registry {
	r := &Registry{procs: make(map[string]Procedure), cat: cat}
	for _, p := range builtins() {
		r.procs[p.Name()] = p
	}
	return r
}

// Register adds a custom procedure. Duplicate names, including a name
// colliding with a built-in, are rejected.
func (r *Registry) Register(name string, sig types.ProcedureSignature, fn Func) error {
	if strings.HasPrefix(name, builtinPrefix) {
		return nexuserr.New(nexuserr.KindConstraintViolation, "procedure name %q uses the reserved built-in prefix", name)
	}
	sig.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.procs[name]; exists {
		return nexuserr.New(nexuserr.KindConstraintViolation, "procedure %q already registered", name)
	}
	if r.cat != nil {
		if err := r.cat.PutProcedureRecord(catalog.ProcedureRecord{Name: name, Yields: sig.Yields}); err != nil {
			return err
		}
	}
	r.procs[name] = &funcProcedure{sig: sig, fn: fn}
	return nil
}

// Unregister removes a custom procedure. Built-in names cannot be
// unregistered.
func (r *Registry) Unregister(name string) error {
	if strings.HasPrefix(name, builtinPrefix) {
		return nexuserr.New(nexuserr.KindConstraintViolation, "cannot unregister built-in procedure %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.procs[name]; !ok {
		return nexuserr.New(nexuserr.KindNotFound, "procedure %q not found", name)
	}
	delete(r.procs, name)
	if r.cat != nil {
		return r.cat.DeleteProcedureRecord(name)
	}
	return nil
}

// Get returns a registered procedure by name.
func (r *Registry) Get(name string) (Procedure, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.procs[name]
	return p, ok
}

// List returns every registered procedure name.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.procs))
	for name := range r.procs {
		out = append(out, name)
	}
	return out
}

// Call looks up name, fills in parameter defaults, validates required
// arguments, and runs it to completion.
func (r *Registry) Call(tx Tx, name string, args map[string]types.Value) ([]types.ProcedureResult, error) {
	p, ok := r.Get(name)
	if !ok {
		return nil, nexuserr.New(nexuserr.KindNotFound, "procedure %q not found", name)
	}
	resolved, err := resolveArgs(p.Signature(), args)
	if err != nil {
		return nil, err
	}
	rows, err := p.Execute(tx, resolved)
	if err != nil {
		log.WithProcedure(name).Debug().Err(err).Msg("call failed")
		return nil, err
	}
	log.WithProcedure(name).Debug().Int("rows", len(rows)).Msg("called")
	return rows, nil
}

// CallStreaming looks up name and delivers each result row to emit as
// it's produced. A procedure with no true streaming support falls back
// to running Execute and replaying its rows.
func (r *Registry) CallStreaming(tx Tx, name string, args map[string]types.Value, emit func(types.ProcedureResult) error) error {
	p, ok := r.Get(name)
	if !ok {
		return nexuserr.New(nexuserr.KindNotFound, "procedure %q not found", name)
	}
	resolved, err := resolveArgs(p.Signature(), args)
	if err != nil {
		return err
	}
	if sp, ok := p.(StreamingProcedure); ok {
		err := sp.ExecuteStreaming(tx, resolved, emit)
		if err != nil {
			log.WithProcedure(name).Debug().Err(err).Msg("streaming call failed")
		}
		return err
	}
	rows, err := p.Execute(tx, resolved)
	if err != nil {
		log.WithProcedure(name).Debug().Err(err).Msg("call failed")
		return err
	}
	for _, row := range rows {
		if err := emit(row); err != nil {
			return err
		}
	}
	return nil
}

func resolveArgs(sig types.ProcedureSignature, args map[string]types.Value) (map[string]types.Value, error) {
	out := make(map[string]types.Value, len(sig.Params))
	for _, p := range sig.Params {
		v, given := args[p.Name]
		switch {
		case given:
			out[p.Name] = v
		case !p.Optional:
			return nil, nexuserr.New(nexuserr.KindInvalidInput, "procedure %q requires parameter %q", sig.Name, p.Name)
		default:
			out[p.Name] = p.Default
		}
	}
	return out, nil
}

func builtins() []Procedure {
	return []Procedure{
		&dijkstraProcedure{},
		&astarProcedure{},
		&bellmanFordProcedure{},
		&pagerankProcedure{},
		&betweennessProcedure{},
		&closenessProcedure{},
		&degreeProcedure{},
		&louvainProcedure{},
		&labelPropagationProcedure{},
		&sccProcedure{},
		&wccProcedure{},
		&jaccardProcedure{},
		&cosineProcedure{},
		&withinBBoxProcedure{},
		&withinDistanceProcedure{},
	}
}
