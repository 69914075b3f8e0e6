//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

// Package netbackend implements a two-party share.Backend that actually
// exchanges data over a transport.Conn, grounded on the teacher's gmw
// package: private boolean inputs are XOR-shared between the two peers
// exactly as gmw.Peer.shareInput does (a random mask sent to the peer,
// the local share kept as value XOR mask; arithmetic inputs keep value
// minus mask instead), and linear gates (Xor, Add,
// ShiftLeft, Inv) combine each party's own share locally with no
// traffic at all, mirroring the teacher's leader loop which only ever
// evaluates circuit.XOR gates locally.
//
// The teacher's gmw.Network stops there: its gate-evaluation switch
// explicitly rejects every non-XOR circuit.Op, because a genuine
// non-linear gate needs an oblivious-transfer-based multiplication
// protocol the teacher never wires into gmw itself. Implementing that
// protocol is out of scope here too, so every non-linear operation
// (And, Or, EqBool, LtBool, EqArith, LtArith, Mul, BoolToArith,
// ArithToBool, DivFile) falls back to an explicit reveal-compute-reshare
// exchange: both shares are sent to the peer, the result is computed
// in the clear on both sides, and it is re-split into fresh shares. The
// wire protocol and the linear-gate handling are real; the non-linear
// path is NOT secure two-party computation and must never be used
// outside the demonstration CLI.
package netbackend

import (
	"crypto/rand"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/torbrenner/SecureEpilinker/share"
	"github.com/torbrenner/SecureEpilinker/share/clearbackend"
	"github.com/torbrenner/SecureEpilinker/transport"
)

// Backend is the network-exchanging share.Backend. Boolean shares are
// XOR-shared, arithmetic shares are additively shared modulo 2^width;
// see the package doc comment for which gates stay local and which
// exchange traffic.
type Backend struct {
	role   share.Role
	conn   *transport.Conn
	rand   io.Reader
	logger *log.Logger

	mu       sync.Mutex
	numWires int

	// oracle evaluates the Bristol divider files for DivFile's plaintext
	// step, reusing clearbackend's parser and divider cache; the other
	// non-linear gates compute their plaintext results inline.
	oracle *clearbackend.Backend
}

// New returns a Backend acting as role, exchanging shares with its peer
// over conn. rnd sources the randomness used to split values into
// shares; a nil rnd defaults to crypto/rand.Reader. logger receives
// warnings about a broken connection; a nil logger defaults to stderr.
func New(role share.Role, conn *transport.Conn, rnd io.Reader, logger *log.Logger) *Backend {
	if rnd == nil {
		rnd = rand.Reader
	}
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Backend{
		role:   role,
		conn:   conn,
		rand:   rnd,
		logger: logger,
		oracle: clearbackend.New(role),
	}
}

// Role implements share.Backend.
func (b *Backend) Role() share.Role { return b.role }

// NumWires implements share.Backend.
func (b *Backend) NumWires() int { return b.numWires }

func mask(width int) uint64 {
	if width <= 0 {
		return 0
	}
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(width)) - 1
}

func repeat(v uint64, nvals int) []uint64 {
	out := make([]uint64, nvals)
	for i := range out {
		out[i] = v
	}
	return out
}

func lanes(s share.BoolShare) []uint64   { return s.Handle.([]uint64) }
func alanes(s share.ArithShare) []uint64 { return s.Handle.([]uint64) }

// ConstBool implements share.Backend. Public constants need no traffic:
// the client holds v as its share and the server holds zero, so the two
// shares reconstruct to v.
func (b *Backend) ConstBool(v bool, nvals int) share.BoolShare {
	var bit uint64
	if v && b.role == share.Client {
		bit = 1
	}
	return share.BoolShare{Width: 1, NVals: nvals, Handle: repeat(bit, nvals)}
}

// ConstArith implements share.Backend, splitting v the same way as
// ConstBool: the client holds v and the server holds zero.
func (b *Backend) ConstArith(v uint64, width, nvals int) share.ArithShare {
	if b.role != share.Client {
		v = 0
	}
	return share.ArithShare{Width: width, NVals: nvals, Handle: repeat(v&mask(width), nvals)}
}

func byteWidth(bits int) int { return (bits + 7) / 8 }

func (b *Backend) randLanes(width, nvals int) ([]uint64, error) {
	m := mask(width)
	bw := byteWidth(width)
	buf := make([]byte, bw)
	out := make([]uint64, nvals)
	for i := range out {
		if _, err := io.ReadFull(b.rand, buf); err != nil {
			return nil, fmt.Errorf("netbackend: reading randomness: %w", err)
		}
		var v uint64
		for j := 0; j < bw; j++ {
			v |= uint64(buf[j]) << uint(8*j)
		}
		out[i] = v & m
	}
	return out, nil
}

func packLanes(lanes []uint64, width int) []byte {
	bw := byteWidth(width)
	out := make([]byte, bw*len(lanes))
	for i, v := range lanes {
		for j := 0; j < bw; j++ {
			out[i*bw+j] = byte(v >> uint(8*j))
		}
	}
	return out
}

func unpackLanes(data []byte, width, nvals int) []uint64 {
	bw := byteWidth(width)
	m := mask(width)
	out := make([]uint64, nvals)
	for i := 0; i < nvals; i++ {
		var v uint64
		for j := 0; j < bw; j++ {
			v |= uint64(data[i*bw+j]) << uint(8*j)
		}
		out[i] = v & m
	}
	return out
}

// shareValue XOR-shares a value only the contributing party knows,
// following gmw.Peer.shareInput: the contributor draws a random mask,
// sends it to the peer as the peer's share, and keeps value XOR mask as
// its own. The non-contributing party simply receives its share.
func (b *Backend) shareValue(role share.Role, own []uint64, width, nvals int, combine func(v, mask uint64) uint64) ([]uint64, error) {
	if role == b.role {
		maskLanes, err := b.randLanes(width, nvals)
		if err != nil {
			return nil, err
		}
		if err := b.conn.SendData(packLanes(maskLanes, width)); err != nil {
			return nil, fmt.Errorf("netbackend: sending input share: %w", err)
		}
		if err := b.conn.Flush(); err != nil {
			return nil, err
		}
		mine := make([]uint64, nvals)
		for i := range mine {
			mine[i] = combine(own[i], maskLanes[i]) & mask(width)
		}
		return mine, nil
	}
	data, err := b.conn.ReceiveData()
	if err != nil {
		return nil, fmt.Errorf("netbackend: receiving input share: %w", err)
	}
	return unpackLanes(data, width, nvals), nil
}

// InputBool implements share.Backend, XOR-sharing value's bits between
// the two peers.
func (b *Backend) InputBool(role share.Role, value []byte, width, nvals int) share.BoolShare {
	bw := byteWidth(width)
	own := make([]uint64, nvals)
	if role == b.role {
		for i := 0; i < nvals; i++ {
			var v uint64
			for j := 0; j < bw && i*bw+j < len(value); j++ {
				v |= uint64(value[i*bw+j]) << uint(8*j)
			}
			own[i] = v & mask(width)
		}
	}
	out, err := b.shareValue(role, own, width, nvals, func(v, m uint64) uint64 { return v ^ m })
	if err != nil {
		b.logger.Printf("netbackend.InputBool: %v", err)
		out = make([]uint64, nvals)
	}
	b.numWires += nvals
	return share.BoolShare{Width: width, NVals: nvals, Handle: out}
}

// InputArith implements share.Backend, additively sharing value modulo
// 2^width.
func (b *Backend) InputArith(role share.Role, value []uint64, width, nvals int) share.ArithShare {
	own := make([]uint64, nvals)
	if role == b.role {
		copy(own, value)
	}
	out, err := b.shareValue(role, own, width, nvals, func(v, m uint64) uint64 { return v - m })
	if err != nil {
		b.logger.Printf("netbackend.InputArith: %v", err)
		out = make([]uint64, nvals)
	}
	b.numWires += nvals
	return share.ArithShare{Width: width, NVals: nvals, Handle: out}
}

// DummyBool implements share.Backend.
func (b *Backend) DummyBool(width, nvals int) share.BoolShare {
	return share.BoolShare{Width: width, NVals: nvals, Handle: make([]uint64, nvals)}
}

// DummyArith implements share.Backend.
func (b *Backend) DummyArith(width, nvals int) share.ArithShare {
	return share.ArithShare{Width: width, NVals: nvals, Handle: make([]uint64, nvals)}
}

// Xor implements share.Backend. XOR-shared operands combine locally:
// (a1^a2) xor (b1^b2) == (a1 xor b1) xor (a2 xor b2), so each party
// simply XORs its own shares with no traffic, exactly as the teacher's
// leader loop evaluates circuit.XOR gates.
func (b *Backend) Xor(a, bs share.BoolShare) share.BoolShare {
	av, bv := lanes(a), lanes(bs)
	w := mask(a.Width)
	out := make([]uint64, len(av))
	for i := range av {
		out[i] = (av[i] ^ bv[i]) & w
	}
	b.numWires += len(av)
	return share.BoolShare{Width: a.Width, NVals: a.NVals, Handle: out}
}

// Inv implements share.Backend. NOT(a1 xor a2) == (NOT a1) xor a2, so
// only one party (by convention, the client) flips its own share.
func (b *Backend) Inv(a share.BoolShare) share.BoolShare {
	av := lanes(a)
	w := mask(a.Width)
	out := make([]uint64, len(av))
	copy(out, av)
	if b.role == share.Client {
		for i := range out {
			out[i] = (^out[i]) & w
		}
	}
	b.numWires += len(av)
	return share.BoolShare{Width: a.Width, NVals: a.NVals, Handle: out}
}

// ShiftLeft implements share.Backend. Shifting is linear over XOR
// sharing (each bit only ever moves position or becomes a fixed zero),
// so each party shifts its own share locally.
func (b *Backend) ShiftLeft(a share.BoolShare, n int) share.BoolShare {
	av := lanes(a)
	newWidth := a.Width + n
	w := mask(newWidth)
	out := make([]uint64, len(av))
	for i := range av {
		out[i] = (av[i] << uint(n)) & w
	}
	b.numWires += len(av)
	return share.BoolShare{Width: newWidth, NVals: a.NVals, Handle: out}
}

// Add implements share.Backend. Additive shares combine locally modulo
// the wider operand's width, same reasoning as Xor.
func (b *Backend) Add(a, bs share.ArithShare) share.ArithShare {
	av, bv := alanes(a), alanes(bs)
	width := a.Width
	if bs.Width > width {
		width = bs.Width
	}
	w := mask(width)
	out := make([]uint64, len(av))
	for i := range av {
		out[i] = (av[i] + bv[i]) & w
	}
	b.numWires += len(av)
	return share.ArithShare{Width: width, NVals: a.NVals, Handle: out}
}

// reshareBool reveals both parties' shares of a's lanes to each other,
// applies f in the clear, and re-splits the result the same way
// InputBool splits a Client-contributed value: the client role
// generates the fresh mask so both sides converge on one split without
// a second round trip.
func (b *Backend) reshareBool(width int, f func() ([]uint64, error)) (share.BoolShare, error) {
	own, err := f()
	if err != nil {
		return share.BoolShare{}, err
	}
	nvals := len(own)
	out, err := b.shareValue(share.Client, own, width, nvals, func(v, m uint64) uint64 { return v ^ m })
	if err != nil {
		return share.BoolShare{}, err
	}
	return share.BoolShare{Width: width, NVals: nvals, Handle: out}, nil
}

// revealBoolLanes exchanges and reconstructs the plaintext lanes of a
// boolean share, used by the non-linear gate fallback path. Every call
// leaks a intermediate wire value to both parties: this is the
// documented, non-secure part of the backend.
func (b *Backend) revealBoolLanes(a share.BoolShare) ([]uint64, error) {
	mine := lanes(a)
	if err := b.conn.SendData(packLanes(mine, a.Width)); err != nil {
		return nil, fmt.Errorf("netbackend: revealing share: %w", err)
	}
	if err := b.conn.Flush(); err != nil {
		return nil, err
	}
	data, err := b.conn.ReceiveData()
	if err != nil {
		return nil, fmt.Errorf("netbackend: receiving peer share: %w", err)
	}
	theirs := unpackLanes(data, a.Width, a.NVals)
	w := mask(a.Width)
	out := make([]uint64, a.NVals)
	for i := range out {
		out[i] = (mine[i] ^ theirs[i]) & w
	}
	return out, nil
}

func (b *Backend) revealArithLanes(a share.ArithShare) ([]uint64, error) {
	mine := alanes(a)
	if err := b.conn.SendData(packLanes(mine, a.Width)); err != nil {
		return nil, fmt.Errorf("netbackend: revealing share: %w", err)
	}
	if err := b.conn.Flush(); err != nil {
		return nil, err
	}
	data, err := b.conn.ReceiveData()
	if err != nil {
		return nil, fmt.Errorf("netbackend: receiving peer share: %w", err)
	}
	theirs := unpackLanes(data, a.Width, a.NVals)
	w := mask(a.Width)
	out := make([]uint64, a.NVals)
	for i := range out {
		out[i] = (mine[i] + theirs[i]) & w
	}
	return out, nil
}

func (b *Backend) boolNonlinear(a, bs share.BoolShare, width int, op func(x, y uint64) uint64) share.BoolShare {
	out, err := b.reshareBool(width, func() ([]uint64, error) {
		av, err := b.revealBoolLanes(a)
		if err != nil {
			return nil, err
		}
		bv, err := b.revealBoolLanes(bs)
		if err != nil {
			return nil, err
		}
		w := mask(width)
		res := make([]uint64, len(av))
		for i := range av {
			res[i] = op(av[i], bv[i]) & w
		}
		return res, nil
	})
	if err != nil {
		b.logger.Printf("netbackend: %v", err)
		return share.BoolShare{Width: width, NVals: a.NVals, Handle: make([]uint64, a.NVals)}
	}
	b.numWires += a.NVals
	return out
}

// And implements share.Backend via reveal-compute-reshare; see the
// package doc comment.
func (b *Backend) And(a, bs share.BoolShare) share.BoolShare {
	return b.boolNonlinear(a, bs, a.Width, func(x, y uint64) uint64 { return x & y })
}

// Or implements share.Backend via reveal-compute-reshare.
func (b *Backend) Or(a, bs share.BoolShare) share.BoolShare {
	return b.boolNonlinear(a, bs, a.Width, func(x, y uint64) uint64 { return x | y })
}

// EqBool implements share.Backend via reveal-compute-reshare.
func (b *Backend) EqBool(a, bs share.BoolShare) share.BoolShare {
	return b.boolNonlinear(a, bs, 1, func(x, y uint64) uint64 {
		if x == y {
			return 1
		}
		return 0
	})
}

// LtBool implements share.Backend via reveal-compute-reshare.
func (b *Backend) LtBool(a, bs share.BoolShare) share.BoolShare {
	return b.boolNonlinear(a, bs, 1, func(x, y uint64) uint64 {
		if x < y {
			return 1
		}
		return 0
	})
}

func (b *Backend) arithCompare(a, bs share.ArithShare, cmp func(x, y uint64) bool) share.BoolShare {
	out, err := b.reshareBool(1, func() ([]uint64, error) {
		av, err := b.revealArithLanes(a)
		if err != nil {
			return nil, err
		}
		bv, err := b.revealArithLanes(bs)
		if err != nil {
			return nil, err
		}
		res := make([]uint64, len(av))
		for i := range av {
			if cmp(av[i], bv[i]) {
				res[i] = 1
			}
		}
		return res, nil
	})
	if err != nil {
		b.logger.Printf("netbackend: %v", err)
		return share.BoolShare{Width: 1, NVals: a.NVals, Handle: make([]uint64, a.NVals)}
	}
	b.numWires += a.NVals
	return out
}

// EqArith implements share.Backend via reveal-compute-reshare.
func (b *Backend) EqArith(a, bs share.ArithShare) share.BoolShare {
	return b.arithCompare(a, bs, func(x, y uint64) bool { return x == y })
}

// LtArith implements share.Backend via reveal-compute-reshare.
func (b *Backend) LtArith(a, bs share.ArithShare) share.BoolShare {
	return b.arithCompare(a, bs, func(x, y uint64) bool { return x < y })
}

// Mul implements share.Backend via reveal-compute-reshare, additively
// re-splitting the plaintext product.
func (b *Backend) Mul(a, bs share.ArithShare) share.ArithShare {
	width := a.Width
	if bs.Width > width {
		width = bs.Width
	}
	own, err := func() ([]uint64, error) {
		av, err := b.revealArithLanes(a)
		if err != nil {
			return nil, err
		}
		bv, err := b.revealArithLanes(bs)
		if err != nil {
			return nil, err
		}
		w := mask(width)
		res := make([]uint64, len(av))
		for i := range av {
			res[i] = (av[i] * bv[i]) & w
		}
		return res, nil
	}()
	if err != nil {
		b.logger.Printf("netbackend: %v", err)
		return share.ArithShare{Width: width, NVals: a.NVals, Handle: make([]uint64, a.NVals)}
	}
	out, err := b.shareValue(share.Client, own, width, len(own), func(v, m uint64) uint64 { return v - m })
	if err != nil {
		b.logger.Printf("netbackend.Mul: %v", err)
		out = make([]uint64, len(own))
	}
	b.numWires += a.NVals
	return share.ArithShare{Width: width, NVals: a.NVals, Handle: out}
}

// DivFile implements share.Backend via reveal-compute-reshare: both
// operands are opened, the plaintext oracle backend's cached Bristol
// evaluator computes the quotient, and the result is re-split as a
// fresh boolean share.
func (b *Backend) DivFile(path string, dividend, divisor share.BoolShare, width int) (share.BoolShare, error) {
	dv, err := b.revealBoolLanes(dividend)
	if err != nil {
		return share.BoolShare{}, err
	}
	ds, err := b.revealBoolLanes(divisor)
	if err != nil {
		return share.BoolShare{}, err
	}
	plainDividend := share.BoolShare{Width: dividend.Width, NVals: dividend.NVals, Handle: dv}
	plainDivisor := share.BoolShare{Width: divisor.Width, NVals: divisor.NVals, Handle: ds}
	quotient, err := b.oracle.DivFile(path, plainDividend, plainDivisor, width)
	if err != nil {
		return share.BoolShare{}, err
	}
	out, err := b.reshareBool(width, func() ([]uint64, error) { return lanes(quotient), nil })
	if err != nil {
		return share.BoolShare{}, err
	}
	b.numWires += dividend.NVals
	return out, nil
}

// BoolToArith implements share.Backend via reveal-compute-reshare:
// converting between an XOR share and an additive share of the same
// plaintext is itself a non-linear operation.
func (b *Backend) BoolToArith(a share.BoolShare) share.ArithShare {
	av, err := b.revealBoolLanes(a)
	if err != nil {
		b.logger.Printf("netbackend.BoolToArith: %v", err)
		return share.ArithShare{Width: a.Width, NVals: a.NVals, Handle: make([]uint64, a.NVals)}
	}
	out, err := b.shareValue(share.Client, av, a.Width, a.NVals, func(v, m uint64) uint64 { return v - m })
	if err != nil {
		b.logger.Printf("netbackend.BoolToArith: %v", err)
		out = make([]uint64, a.NVals)
	}
	return share.ArithShare{Width: a.Width, NVals: a.NVals, Handle: out}
}

// ArithToBool implements share.Backend via reveal-compute-reshare.
func (b *Backend) ArithToBool(a share.ArithShare) share.BoolShare {
	av, err := b.revealArithLanes(a)
	if err != nil {
		b.logger.Printf("netbackend.ArithToBool: %v", err)
		return share.BoolShare{Width: a.Width, NVals: a.NVals, Handle: make([]uint64, a.NVals)}
	}
	out, err := b.shareValue(share.Client, av, a.Width, a.NVals, func(v, m uint64) uint64 { return v ^ m })
	if err != nil {
		b.logger.Printf("netbackend.ArithToBool: %v", err)
		out = make([]uint64, a.NVals)
	}
	return share.BoolShare{Width: a.Width, NVals: a.NVals, Handle: out}
}

// RevealBool implements share.Backend, sending this party's share to to
// and receiving to's own share back so both sides can reconstruct.
func (b *Backend) RevealBool(a share.BoolShare, to share.Role) share.BoolShare {
	out, err := b.revealBoolLanes(a)
	if err != nil {
		b.logger.Printf("netbackend.RevealBool: %v", err)
		return share.BoolShare{Width: a.Width, NVals: a.NVals, Handle: make([]uint64, a.NVals)}
	}
	return share.BoolShare{Width: a.Width, NVals: a.NVals, Handle: out}
}

// RevealArith implements share.Backend.
func (b *Backend) RevealArith(a share.ArithShare, to share.Role) share.ArithShare {
	out, err := b.revealArithLanes(a)
	if err != nil {
		b.logger.Printf("netbackend.RevealArith: %v", err)
		return share.ArithShare{Width: a.Width, NVals: a.NVals, Handle: make([]uint64, a.NVals)}
	}
	return share.ArithShare{Width: a.Width, NVals: a.NVals, Handle: out}
}

// Execute implements share.Backend by flushing any buffered writes: the
// backend evaluates every gate as it is called, so there is no deferred
// gate program to run.
func (b *Backend) Execute() error {
	return b.conn.Flush()
}

// Reset implements share.Backend, resetting the plaintext oracle's
// divider cache and diagnostic wire counter. It does not close conn: a
// caller wanting a new connection constructs a new Backend.
func (b *Backend) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.numWires = 0
	return b.oracle.Reset()
}

var _ share.Backend = (*Backend)(nil)
