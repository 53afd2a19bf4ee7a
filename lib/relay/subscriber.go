// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/klauspost/compress/zstd"

	"github.com/vigil-systems/vigil/lib/codec"
	"github.com/vigil-systems/vigil/lib/telemetry"
)

// maxFrameBytes bounds a single decoded snapshot; anything larger is a
// corrupt stream, not a big process table.
const maxFrameBytes = 64 << 20

// Subscriber is the consuming side of the relay socket.
type Subscriber struct {
	conn net.Conn
	zr   *zstd.Decoder
}

// Dial connects to a publisher socket.
func Dial(socketPath string) (*Subscriber, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", socketPath, err)
	}
	zr, err := zstd.NewReader(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening zstd stream: %w", err)
	}
	return &Subscriber{conn: conn, zr: zr}, nil
}

// Next blocks for the next snapshot. Returns io.EOF (possibly wrapped)
// once the publisher disconnects.
func (s *Subscriber) Next() (telemetry.Readings, error) {
	var header [4]byte
	if _, err := io.ReadFull(s.zr, header[:]); err != nil {
		return telemetry.Readings{}, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > maxFrameBytes {
		return telemetry.Readings{}, fmt.Errorf("frame of %d bytes exceeds limit", size)
	}
	frame := make([]byte, size)
	if _, err := io.ReadFull(s.zr, frame); err != nil {
		return telemetry.Readings{}, fmt.Errorf("reading frame body: %w", err)
	}
	var r telemetry.Readings
	if err := codec.Unmarshal(frame, &r); err != nil {
		return telemetry.Readings{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	return r, nil
}

// Close tears the connection down.
func (s *Subscriber) Close() error {
	s.zr.Close()
	return s.conn.Close()
}
