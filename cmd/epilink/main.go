//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

// Command epilink is the reference CLI harness for the linkage engine:
// it drives one build/setup/run cycle against either the plaintext
// oracle backend (--local-only, --run-both) or a real two-party
// netbackend socket exchange (--server / client dialing --remote-host),
// and reports the outcome as a table, modeled on the teacher's
// Timing.Print report.
//
// build_circuit looks for the integer-division sub-circuit file under
// the current directory (int_div_N.bristol, N derived from the
// configured precision); a deployment supplies this file, it is not
// generated by this command.
package main

import (
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/markkurossi/tabulate"

	"github.com/torbrenner/SecureEpilinker/clearlink"
	"github.com/torbrenner/SecureEpilinker/engine"
	"github.com/torbrenner/SecureEpilinker/env"
	"github.com/torbrenner/SecureEpilinker/linkconfig"
	"github.com/torbrenner/SecureEpilinker/netbackend"
	"github.com/torbrenner/SecureEpilinker/share"
	"github.com/torbrenner/SecureEpilinker/share/clearbackend"
	"github.com/torbrenner/SecureEpilinker/transport"
)

// verboseFlag counts repeated -v occurrences, mirroring the teacher's
// convention of accumulating flag.Value into a counter.
type verboseFlag int

func (v *verboseFlag) String() string { return fmt.Sprintf("%d", int(*v)) }
func (v *verboseFlag) IsBoolFlag() bool { return true }
func (v *verboseFlag) Set(string) error {
	*v++
	return nil
}

func main() {
	var (
		isServer    = flag.Bool("server", false, "run as the server (database-holding) party")
		remoteHost  = flag.String("remote-host", "localhost:9797", "listen address (--server) or dial address (client)")
		sharing     = flag.Int("sharing", 0, "boolean sharing scheme selector (0 or 1); accepted for interface parity; no backend reads it")
		dbsize      = flag.Int("dbsize", 8, "number of synthetic database rows to generate")
		runBoth     = flag.Bool("run-both", false, "debug: run both parties' real inputs through a single process")
		localOnly   = flag.Bool("local-only", false, "run entirely against the plaintext oracle backend, no network")
		matchCount  = flag.Int("match-count", -1, "if >= 0, exit non-zero unless exactly this many rows matched")
		seed        = flag.Uint64("seed", 0, "chacha20 PRNG seed for demo data and share masking (0 = crypto/rand, non-reproducible)")
		verbose     verboseFlag
	)
	flag.Var(&verbose, "verbose", "increase report verbosity (repeatable)")
	flag.Parse()

	if *sharing != 0 && *sharing != 1 {
		fmt.Fprintf(os.Stderr, "epilink: --sharing must be 0 or 1, got %d\n", *sharing)
		os.Exit(2)
	}

	if err := run(runConfig{
		isServer:   *isServer,
		remoteHost: *remoteHost,
		sharing:    *sharing,
		dbsize:     *dbsize,
		runBoth:    *runBoth,
		localOnly:  *localOnly,
		matchCount: *matchCount,
		seed:       *seed,
		verbosity:  int(verbose),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "epilink: %v\n", err)
		os.Exit(1)
	}
}

type runConfig struct {
	isServer   bool
	remoteHost string
	sharing    int
	dbsize     int
	runBoth    bool
	localOnly  bool
	matchCount int
	seed       uint64
	verbosity  int
}

// buildEnv returns the environment configuration threaded through the
// engine and its backends. A zero seed leaves Rand unset, so
// env.Config.GetRandom falls back to crypto/rand.Reader; a non-zero
// seed makes a run's demo data and share masks bit-reproducible via
// env.SeededRandom's chacha20 keystream.
func buildEnv(seed uint64) (env.Config, error) {
	if seed == 0 {
		return env.Config{}, nil
	}
	var seedBytes [32]byte
	binary.BigEndian.PutUint64(seedBytes[:8], seed)
	rnd, err := env.SeededRandom(seedBytes)
	if err != nil {
		return env.Config{}, fmt.Errorf("seeding PRNG: %w", err)
	}
	return env.Config{Rand: rnd}, nil
}

type outcome struct {
	winningIndex int
	isMatch      bool
	isTentative  bool
	elapsed      time.Duration
	stats        transport.IOStats
	clearCheck   *clearlink.Result
}

func run(cfg runConfig) error {
	linkCfg, err := demoConfig()
	if err != nil {
		return fmt.Errorf("building link configuration: %w", err)
	}
	envCfg, err := buildEnv(cfg.seed)
	if err != nil {
		return err
	}

	switch {
	case cfg.runBoth || cfg.localOnly:
		out, err := runLocal(linkCfg, envCfg, cfg)
		if err != nil {
			return err
		}
		return report(cfg, out)
	default:
		out, err := runNetworked(linkCfg, envCfg, cfg)
		if err != nil {
			return err
		}
		return report(cfg, out)
	}
}

// runLocal drives clearbackend directly with both parties' real inputs
// through RunAsBoth, for --local-only and --run-both alike; --run-both
// additionally cross-checks the result against clearlink. Neither flag
// runs one side's input alone.
func runLocal(cfg *linkconfig.LinkConfig, envCfg env.Config, rc runConfig) (outcome, error) {
	backend := clearbackend.New(share.Client)
	eng, err := engine.New(backend, cfg, engine.Config{
		BooleanSharing: rc.sharing,
		Env:            envCfg,
	})
	if err != nil {
		return outcome{}, err
	}

	client, server, err := demoDatabase(envCfg.GetRandom(), rc.dbsize)
	if err != nil {
		return outcome{}, err
	}

	start := time.Now()
	if err := eng.BuildCircuit(rc.dbsize); err != nil {
		return outcome{}, fmt.Errorf("build_circuit: %w", err)
	}
	if err := eng.RunSetup(); err != nil {
		return outcome{}, fmt.Errorf("run_setup: %w", err)
	}

	res, err := eng.RunAsBoth(client, server)
	if err != nil {
		return outcome{}, fmt.Errorf("run: %w", err)
	}
	elapsed := time.Since(start)

	out := outcome{
		winningIndex: int(res.Index.Handle.([]uint64)[0]),
		isMatch:      res.Match.Handle.([]uint64)[0] != 0,
		isTentative:  res.Tent.Handle.([]uint64)[0] != 0,
		elapsed:      elapsed,
	}

	if rc.runBoth {
		clear, err := clearlink.EvaluateFixed64(cfg, client, server)
		if err != nil {
			return outcome{}, fmt.Errorf("clearlink cross-check: %w", err)
		}
		out.clearCheck = &clear
	}
	return out, nil
}

// runNetworked drives netbackend over a real TCP connection, dialing or
// listening on --remote-host depending on --server.
func runNetworked(cfg *linkconfig.LinkConfig, envCfg env.Config, rc runConfig) (outcome, error) {
	conn, role, err := dialOrListen(rc)
	if err != nil {
		return outcome{}, err
	}
	tconn := transport.NewConn(conn)
	defer tconn.Close()

	backend := netbackend.New(role, tconn, envCfg.GetRandom(), envCfg.GetLogger())
	eng, err := engine.New(backend, cfg, engine.Config{
		Role:           role,
		BooleanSharing: rc.sharing,
		PeerHost:       rc.remoteHost,
		Env:            envCfg,
	})
	if err != nil {
		return outcome{}, err
	}

	client, server, err := demoDatabase(envCfg.GetRandom(), rc.dbsize)
	if err != nil {
		return outcome{}, err
	}

	start := time.Now()
	if err := eng.BuildCircuit(rc.dbsize); err != nil {
		return outcome{}, fmt.Errorf("build_circuit: %w", err)
	}
	if err := eng.RunSetup(); err != nil {
		return outcome{}, fmt.Errorf("run_setup: %w", err)
	}

	var res struct {
		Index, Match, Tent []uint64
	}
	if role == share.Server {
		r, err := eng.RunAsServer(server)
		if err != nil {
			return outcome{}, fmt.Errorf("run_as_server: %w", err)
		}
		res.Index = r.Index.Handle.([]uint64)
		res.Match = r.Match.Handle.([]uint64)
		res.Tent = r.Tent.Handle.([]uint64)
	} else {
		r, err := eng.RunAsClient(client)
		if err != nil {
			return outcome{}, fmt.Errorf("run_as_client: %w", err)
		}
		res.Index = r.Index.Handle.([]uint64)
		res.Match = r.Match.Handle.([]uint64)
		res.Tent = r.Tent.Handle.([]uint64)
	}

	return outcome{
		winningIndex: int(res.Index[0]),
		isMatch:      res.Match[0] != 0,
		isTentative:  res.Tent[0] != 0,
		elapsed:      time.Since(start),
		stats:        tconn.Stats,
	}, nil
}

func dialOrListen(rc runConfig) (net.Conn, share.Role, error) {
	if rc.isServer {
		l, err := net.Listen("tcp", rc.remoteHost)
		if err != nil {
			return nil, 0, fmt.Errorf("listening on %s: %w", rc.remoteHost, err)
		}
		defer l.Close()
		c, err := l.Accept()
		if err != nil {
			return nil, 0, fmt.Errorf("accepting peer: %w", err)
		}
		return c, share.Server, nil
	}
	c, err := net.Dial("tcp", rc.remoteHost)
	if err != nil {
		return nil, 0, fmt.Errorf("dialing %s: %w", rc.remoteHost, err)
	}
	return c, share.Client, nil
}

func report(cfg runConfig, out outcome) error {
	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Field").SetAlign(tabulate.ML)
	tab.Header("Value").SetAlign(tabulate.MR)

	row := tab.Row()
	row.Column("Winning index")
	row.Column(fmt.Sprintf("%d", out.winningIndex))

	row = tab.Row()
	row.Column("Match")
	row.Column(fmt.Sprintf("%v", out.isMatch))

	row = tab.Row()
	row.Column("Tentative")
	row.Column(fmt.Sprintf("%v", out.isTentative))

	row = tab.Row()
	row.Column("Elapsed").SetFormat(tabulate.FmtItalic)
	row.Column(out.elapsed.String()).SetFormat(tabulate.FmtItalic)

	if out.clearCheck != nil {
		mismatch := out.clearCheck.WinningIndex != out.winningIndex ||
			out.clearCheck.IsMatch != out.isMatch ||
			out.clearCheck.IsTentative != out.isTentative

		row = tab.Row()
		row.Column("clearlink cross-check")
		if mismatch {
			row.Column("MISMATCH").SetFormat(tabulate.FmtBold)
		} else {
			row.Column("agree")
		}
		if mismatch {
			tab.Print(os.Stdout)
			return errors.New("secure result disagrees with clearlink oracle")
		}
	}

	tab.Print(os.Stdout)

	if cfg.verbosity > 0 && out.stats.Sent != nil {
		printIOStats(out.stats)
	}

	if cfg.matchCount >= 0 {
		got := 0
		if out.isMatch {
			got = 1
		}
		if got != cfg.matchCount {
			return fmt.Errorf("expected %d matching row(s), got %d", cfg.matchCount, got)
		}
	}
	return nil
}

// printIOStats renders the transport byte counters, modeled directly on
// the teacher's Timing.Print footer.
func printIOStats(stats transport.IOStats) {
	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("I/O").SetAlign(tabulate.ML)
	tab.Header("Bytes").SetAlign(tabulate.MR)

	row := tab.Row()
	row.Column("Sent").SetFormat(tabulate.FmtItalic)
	row.Column(fmt.Sprintf("%d", stats.Sent.Load())).SetFormat(tabulate.FmtItalic)

	row = tab.Row()
	row.Column("Received").SetFormat(tabulate.FmtItalic)
	row.Column(fmt.Sprintf("%d", stats.Recvd.Load())).SetFormat(tabulate.FmtItalic)

	row = tab.Row()
	row.Column("Flushed").SetFormat(tabulate.FmtItalic)
	row.Column(fmt.Sprintf("%d", stats.Flushed.Load())).SetFormat(tabulate.FmtItalic)

	tab.Print(os.Stdout)
}
