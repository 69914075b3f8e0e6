//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

// Package engine implements the linkage engine facade: the
// Created -> Built -> SetupDone -> (execute) -> Created state machine
// that wraps circuitbuilder and a share.Backend into the operations a
// caller actually drives (build once, run many times, reset on error
// or timeout).
package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/torbrenner/SecureEpilinker/circuitbuilder"
	"github.com/torbrenner/SecureEpilinker/env"
	"github.com/torbrenner/SecureEpilinker/linkconfig"
	"github.com/torbrenner/SecureEpilinker/linkinput"
	"github.com/torbrenner/SecureEpilinker/share"
)

// Role names the two-party roles a backend can be built for. It is an
// alias of share.Role, so a Config's role and a backend's role are the
// same type.
type Role = share.Role

// Config carries everything an Engine needs to build and run a linkage
// circuit against a concrete backend: the backend's own role and
// networking parameters, plus the ambient environment (randomness,
// logging).
type Config struct {
	Role Role
	// BooleanSharing records the requested boolean sharing scheme (0 or
	// 1). Neither the engine nor the backends in this module read it.
	BooleanSharing int
	PeerHost       string
	PeerPort       int
	WorkerThreads  int
	// CircuitDataDir is the directory build_circuit checks for the
	// integer-division sub-circuit file the backend contract's
	// file-driven divider gadget will load.
	CircuitDataDir string

	Env env.Config
}

// Stats reports circuit-shape counters computed once at build_circuit
// time, surfaced for the CLI's reporting table.
type Stats struct {
	NumFields         int
	NumExchangeGroups int
	NVals             int
}

// State is one of the engine's three lifecycle states.
type State int

// Engine lifecycle states.
const (
	Created State = iota
	Built
	SetupDone
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Built:
		return "Built"
	case SetupDone:
		return "SetupDone"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Engine drives one Backend through repeated build/run cycles. It is not
// re-entrant: a single Engine value must not be shared between
// goroutines without external synchronization, mirroring the backend's
// own exclusive-ownership contract.
type Engine struct {
	backend share.Backend
	cfg     *linkconfig.LinkConfig
	econf   Config

	state   State
	nvals   int
	stats   Stats
	builder *circuitbuilder.Builder
}

const (
	opNew          = "engine.New"
	opBuildCircuit = "engine.BuildCircuit"
	opRunSetup     = "engine.RunSetup"
	opRunAsClient  = "engine.RunAsClient"
	opRunAsServer  = "engine.RunAsServer"
)

// New validates backend and cfg's compatibility with econf and returns
// an Engine in the Created state.
func New(backend share.Backend, cfg *linkconfig.LinkConfig, econf Config) (*Engine, error) {
	if backend == nil {
		return nil, linkconfig.NewError(linkconfig.InvalidConfig, opNew,
			fmt.Errorf("backend must not be nil"))
	}
	if cfg == nil {
		return nil, linkconfig.NewError(linkconfig.InvalidConfig, opNew,
			fmt.Errorf("link config must not be nil"))
	}
	return &Engine{backend: backend, cfg: cfg, econf: econf, state: Created}, nil
}

// State reports the engine's current lifecycle state.
func (e *Engine) State() State { return e.state }

// Stats reports the circuit-shape counters computed at the last
// build_circuit call. It is the zero Stats before the first build.
func (e *Engine) Stats() Stats { return e.stats }

// BuildCircuit transitions Created -> Built, marking nvals and
// validating that the backend's divider sub-circuit file exists under
// CircuitDataDir. It does not open or parse the file: that remains the
// backend's job the first time DivFile actually runs.
func (e *Engine) BuildCircuit(nvals int) error {
	if e.state != Created {
		return linkconfig.NewError(linkconfig.IllegalState, opBuildCircuit,
			fmt.Errorf("build_circuit called in state %s, want Created", e.state))
	}
	if nvals == 0 {
		return linkconfig.NewError(linkconfig.EmptyDatabase, opBuildCircuit, nil)
	}

	path := e.dividerPath()
	if _, err := os.Stat(path); err != nil {
		return linkconfig.NewError(linkconfig.BackendError, opBuildCircuit,
			fmt.Errorf("divider sub-circuit %q: %w", path, err))
	}

	e.builder = circuitbuilder.New(e.backend, e.cfg, path)
	e.nvals = nvals
	e.stats = Stats{
		NumFields:         e.cfg.N(),
		NumExchangeGroups: len(e.cfg.ExchangeGroups()),
		NVals:             nvals,
	}
	e.state = Built
	return nil
}

// dividerWidth returns the bit width of the file-driven integer-division
// sub-circuit this engine's configured precision requires, derived the
// same way gadgets.SetSimilarityCoeff sizes its divider input.
func (e *Engine) dividerWidth() int {
	return int(e.cfg.HWBits() + e.cfg.SetSimPrec() + 1)
}

// dividerPath names the sub-circuit file build_circuit checks for under
// CircuitDataDir, keyed by the required bit width so a mismatched
// precision mode and divider file are caught by a missing-file error
// rather than a silently wrong division.
func (e *Engine) dividerPath() string {
	dir := e.econf.CircuitDataDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, fmt.Sprintf("int_div_%d.bristol", e.dividerWidth()))
}

// RunSetup transitions Built -> SetupDone. For backends that evaluate
// eagerly (share/clearbackend) this is nearly a no-op beyond the state
// transition; backends with a genuine offline phase (OT extension,
// garbling) would do that work here.
func (e *Engine) RunSetup() error {
	if e.state != Built {
		return linkconfig.NewError(linkconfig.IllegalState, opRunSetup,
			fmt.Errorf("run_setup called in state %s, want Built", e.state))
	}
	if err := e.backend.Execute(); err != nil {
		return linkconfig.NewError(linkconfig.BackendError, opRunSetup, err)
	}
	e.state = SetupDone
	return nil
}

// autoRunSetup implements the documented deprecated convenience: an
// execute call from Built emits a warning and implicitly runs setup.
func (e *Engine) autoRunSetup(op string) error {
	if e.state == Built {
		e.econf.Env.GetLogger().Printf(
			"%s: engine is in Built state; auto-running setup (call RunSetup explicitly to silence this warning)", op)
		return e.RunSetup()
	}
	return nil
}

// RunAsClient runs the built circuit as the client party against in.
// The remote server's input is materialised as correctly-shaped dummy
// (all-missing) entries the backend contract promises to reveal nothing
// about; the actual server-side values reach the circuit through
// whatever the concrete backend's InputBool/InputArith do for the
// non-contributing role (a real socket exchange for netbackend, nothing
// at all for the plaintext oracle backend, which is why cross-checking
// against clearlink is done through RunAsBoth instead). Returns the
// revealed {index, match, tent} result and returns the engine to
// Created; from Built it auto-runs setup first, with a logged warning.
func (e *Engine) RunAsClient(client linkinput.ClientInput) (circuitbuilder.Result, error) {
	return e.run(opRunAsClient, func() (circuitbuilder.Result, error) {
		return e.builder.Build(client, dummyServer(e.cfg, e.nvals))
	})
}

// RunAsServer runs the built circuit as the server party against in,
// symmetric to RunAsClient: the client's input is a dummy single-record
// placeholder.
func (e *Engine) RunAsServer(server linkinput.ServerInput) (circuitbuilder.Result, error) {
	return e.run(opRunAsServer, func() (circuitbuilder.Result, error) {
		return e.builder.Build(dummyClient(e.cfg, e.nvals), server)
	})
}

// RunAsBoth runs the built circuit with both parties' real inputs
// supplied by the same caller. It exists only for local testing and
// debugging against a single-process backend such as share/clearbackend
// — a real two-party deployment always uses RunAsClient/RunAsServer from
// two separate processes. It is deliberately not part of the state
// table spec.md documents for the production API.
func (e *Engine) RunAsBoth(client linkinput.ClientInput, server linkinput.ServerInput) (circuitbuilder.Result, error) {
	return e.run("engine.RunAsBoth", func() (circuitbuilder.Result, error) {
		return e.builder.Build(client, server)
	})
}

func (e *Engine) run(op string, build func() (circuitbuilder.Result, error)) (circuitbuilder.Result, error) {
	if e.state != Built && e.state != SetupDone {
		return circuitbuilder.Result{}, linkconfig.NewError(linkconfig.IllegalState, op,
			fmt.Errorf("%s called in state %s, want Built or SetupDone", op, e.state))
	}
	if err := e.autoRunSetup(op); err != nil {
		return circuitbuilder.Result{}, err
	}

	res, err := build()
	e.state = Created
	if err != nil {
		return circuitbuilder.Result{}, err
	}
	return res, nil
}

// dummyClient returns a correctly-shaped all-missing ClientInput for the
// role that did not contribute real data to this Engine call.
func dummyClient(cfg *linkconfig.LinkConfig, nvals int) linkinput.ClientInput {
	rec := make(map[string]linkinput.Entry, cfg.N())
	for _, name := range cfg.FieldNames() {
		rec[name] = linkinput.Missing()
	}
	return linkinput.ClientInput{Record: rec, NVals: nvals}
}

// dummyServer returns a correctly-shaped all-missing ServerInput of
// nvals rows, symmetric to dummyClient.
func dummyServer(cfg *linkconfig.LinkConfig, nvals int) linkinput.ServerInput {
	db := make(map[string][]linkinput.Entry, cfg.N())
	for _, name := range cfg.FieldNames() {
		col := make([]linkinput.Entry, nvals)
		for i := range col {
			col[i] = linkinput.Missing()
		}
		db[name] = col
	}
	return linkinput.ServerInput{Database: db, NVals: nvals}
}

// Reset discards the built circuit and any backend state, returning the
// engine to Created from any state. It is the caller's cancellation
// hook: on a timeout, call Reset instead of leaving the engine half-run.
func (e *Engine) Reset() error {
	e.builder = nil
	e.nvals = 0
	e.stats = Stats{}
	e.state = Created
	return e.backend.Reset()
}
