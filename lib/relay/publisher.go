// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/vigil-systems/vigil/lib/codec"
	"github.com/vigil-systems/vigil/lib/telemetry"
)

// Publisher fans snapshots out to unix-socket subscribers. Each
// subscriber gets its own zstd stream and a bounded frame buffer; one
// that stops draining is dropped so it can never stall sampling.
type Publisher struct {
	logger   *slog.Logger
	listener net.Listener

	// bufferSize is the per-subscriber frame backlog.
	bufferSize int

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

type subscriber struct {
	conn   net.Conn
	frames chan []byte
	done   chan struct{}
}

// Listen binds the publisher socket, replacing any stale socket file
// from a previous run.
func Listen(socketPath string, bufferSize int, logger *slog.Logger) (*Publisher, error) {
	if bufferSize < 1 {
		bufferSize = 4
	}
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating socket directory: %w", err)
	}
	if err := os.Remove(socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("removing stale socket: %w", err)
	}
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("binding %s: %w", socketPath, err)
	}

	p := &Publisher{
		logger:     logger.With("component", "relay"),
		listener:   listener,
		bufferSize: bufferSize,
		subs:       map[*subscriber]struct{}{},
	}
	go p.acceptLoop()
	p.logger.Info("relay listening", "socket", socketPath)
	return p, nil
}

func (p *Publisher) acceptLoop() {
	for {
		conn, err := p.listener.Accept()
		if err != nil {
			// Listener closed; shutdown path.
			return
		}
		sub := &subscriber{
			conn:   conn,
			frames: make(chan []byte, p.bufferSize),
			done:   make(chan struct{}),
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			conn.Close()
			return
		}
		p.subs[sub] = struct{}{}
		count := len(p.subs)
		p.mu.Unlock()

		p.logger.Info("subscriber connected", "subscribers", count)
		go p.writeLoop(sub)
	}
}

// writeLoop owns the subscriber's connection. Frames are length
// prefixed inside a single zstd stream, flushed per frame so viewers
// render each snapshot as it arrives.
func (p *Publisher) writeLoop(sub *subscriber) {
	defer sub.conn.Close()

	zw, err := zstd.NewWriter(sub.conn)
	if err != nil {
		p.remove(sub, err)
		return
	}
	defer zw.Close()

	var header [4]byte
	for {
		select {
		case <-sub.done:
			return
		case frame := <-sub.frames:
			binary.BigEndian.PutUint32(header[:], uint32(len(frame)))
			if _, err := zw.Write(header[:]); err != nil {
				p.remove(sub, err)
				return
			}
			if _, err := zw.Write(frame); err != nil {
				p.remove(sub, err)
				return
			}
			if err := zw.Flush(); err != nil {
				p.remove(sub, err)
				return
			}
		}
	}
}

// Publish encodes one snapshot and queues it to every subscriber.
// Never blocks: a subscriber with a full backlog is dropped.
func (p *Publisher) Publish(r telemetry.Readings) error {
	frame, err := codec.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for sub := range p.subs {
		select {
		case sub.frames <- frame:
		default:
			p.dropLocked(sub, errors.New("subscriber backlog full"))
		}
	}
	return nil
}

func (p *Publisher) remove(sub *subscriber, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dropLocked(sub, err)
}

func (p *Publisher) dropLocked(sub *subscriber, err error) {
	if _, ok := p.subs[sub]; !ok {
		return
	}
	delete(p.subs, sub)
	close(sub.done)
	sub.conn.Close()
	p.logger.Warn("subscriber dropped", "error", err, "subscribers", len(p.subs))
}

// SubscriberCount reports how many subscribers are currently attached.
func (p *Publisher) SubscriberCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Close stops accepting and disconnects every subscriber.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for sub := range p.subs {
		delete(p.subs, sub)
		close(sub.done)
		sub.conn.Close()
	}
	p.mu.Unlock()
	return p.listener.Close()
}
