//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

// Package transport implements the length-prefixed connection framing
// netbackend exchanges secret shares over. The teacher's own p2p
// protocol pipelines writes through a double-buffered writer goroutine
// so a garbler can keep streaming gate tables without ever blocking on
// the network. That pipelining buys nothing here: every exchange in the
// reveal-compute-reshare protocol sends its share, flushes immediately,
// and then blocks waiting for the peer's share before it can do
// anything else — there is no work to overlap with the write. Conn is
// instead a synchronous wrapper over bufio.Reader/bufio.Writer sized
// for that request/response pattern, with IOStats counters layered
// underneath the buffers for the CLI's verbose report.
package transport

import (
	"bufio"
	"encoding/binary"
	"io"
	"sync/atomic"
)

const (
	writeBufSize = 64 * 1024
	readBufSize  = 1024 * 1024
)

// Conn wraps an io.ReadWriter with buffered, length-prefixed framing.
// Writes are only visible to the peer once Flush is called.
type Conn struct {
	conn io.ReadWriter
	r    *bufio.Reader
	w    *bufio.Writer

	Stats IOStats
}

// IOStats tracks bytes sent, received and flush counts, reported by the
// CLI's verbose footer.
type IOStats struct {
	Sent    *atomic.Uint64
	Recvd   *atomic.Uint64
	Flushed *atomic.Uint64
}

// NewIOStats returns a zeroed IOStats.
func NewIOStats() IOStats {
	return IOStats{Sent: new(atomic.Uint64), Recvd: new(atomic.Uint64), Flushed: new(atomic.Uint64)}
}

// Add returns the elementwise sum of stats and o.
func (stats IOStats) Add(o IOStats) IOStats {
	sum := NewIOStats()
	sum.Sent.Store(stats.Sent.Load() + o.Sent.Load())
	sum.Recvd.Store(stats.Recvd.Load() + o.Recvd.Load())
	sum.Flushed.Store(stats.Flushed.Load() + o.Flushed.Load())
	return sum
}

// Sum returns the total bytes sent and received.
func (stats IOStats) Sum() uint64 {
	return stats.Sent.Load() + stats.Recvd.Load()
}

// countingWriter tallies bytes written to w into n. It sits beneath the
// bufio.Writer, so Stats.Sent counts bytes (length prefixes included)
// as they are flushed to the connection.
type countingWriter struct {
	w io.Writer
	n *atomic.Uint64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n.Add(uint64(n))
	return n, err
}

// countingReader is countingWriter's read-side counterpart.
type countingReader struct {
	r io.Reader
	n *atomic.Uint64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n.Add(uint64(n))
	return n, err
}

// NewConn wraps conn in buffered, length-prefixed framing.
func NewConn(conn io.ReadWriter) *Conn {
	stats := NewIOStats()
	return &Conn{
		conn:  conn,
		r:     bufio.NewReaderSize(&countingReader{r: conn, n: stats.Recvd}, readBufSize),
		w:     bufio.NewWriterSize(&countingWriter{w: conn, n: stats.Sent}, writeBufSize),
		Stats: stats,
	}
}

// Flush pushes any buffered writes out to the underlying connection.
func (c *Conn) Flush() error {
	if err := c.w.Flush(); err != nil {
		return err
	}
	c.Stats.Flushed.Add(1)
	return nil
}

// Close flushes any pending data and closes the underlying connection
// if it supports it.
func (c *Conn) Close() error {
	if err := c.Flush(); err != nil {
		return err
	}
	if closer, ok := c.conn.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SendUint32 sends an unsigned 32-bit value, big-endian.
func (c *Conn) SendUint32(val uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], val)
	_, err := c.w.Write(buf[:])
	return err
}

// ReceiveUint32 receives an unsigned 32-bit value, big-endian.
func (c *Conn) ReceiveUint32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(c.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// SendData sends a length-prefixed byte slice.
func (c *Conn) SendData(val []byte) error {
	if err := c.SendUint32(uint32(len(val))); err != nil {
		return err
	}
	_, err := c.w.Write(val)
	return err
}

// ReceiveData receives a length-prefixed byte slice.
func (c *Conn) ReceiveData() ([]byte, error) {
	n, err := c.ReceiveUint32()
	if err != nil {
		return nil, err
	}
	result := make([]byte, n)
	if _, err := io.ReadFull(c.r, result); err != nil {
		return nil, err
	}
	return result, nil
}
