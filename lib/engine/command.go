// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Signal names a deliverable process signal.
type Signal string

const (
	SigTerm Signal = "TERM"
	SigKill Signal = "KILL"
	SigStop Signal = "STOP"
	SigCont Signal = "CONT"
	SigHup  Signal = "HUP"
	SigInt  Signal = "INT"
	SigUsr1 Signal = "USR1"
	SigUsr2 Signal = "USR2"
)

var signals = map[Signal]unix.Signal{
	SigTerm: unix.SIGTERM,
	SigKill: unix.SIGKILL,
	SigStop: unix.SIGSTOP,
	SigCont: unix.SIGCONT,
	SigHup:  unix.SIGHUP,
	SigInt:  unix.SIGINT,
	SigUsr1: unix.SIGUSR1,
	SigUsr2: unix.SIGUSR2,
}

// ServiceAction names a systemd unit operation.
type ServiceAction string

const (
	ServiceStart   ServiceAction = "start"
	ServiceStop    ServiceAction = "stop"
	ServiceRestart ServiceAction = "restart"
	ServiceEnable  ServiceAction = "enable"
	ServiceDisable ServiceAction = "disable"
)

var serviceActions = map[ServiceAction]struct{}{
	ServiceStart: {}, ServiceStop: {}, ServiceRestart: {},
	ServiceEnable: {}, ServiceDisable: {},
}

type commandKind int

const (
	cmdSetInterval commandKind = iota
	cmdSetScaling
	cmdSignal
	cmdService
	cmdServiceLogs
)

type command struct {
	kind commandKind

	interval time.Duration
	scale    bool
	pid      int32
	signal   Signal
	action   ServiceAction
	unit     string
	lines    int

	reply chan result
}

type result struct {
	logs string
	err  error
}

// handle executes one command on the loop goroutine, where mutating
// the interval and sampler settings is race-free.
func (e *Engine) handle(ctx context.Context, cmd command) {
	var res result
	switch cmd.kind {
	case cmdSetInterval:
		e.interval = cmd.interval
		e.logger.Info("interval changed", "interval", cmd.interval)
	case cmdSetScaling:
		e.sources.Processes.SetScaleToCores(cmd.scale)
		e.logger.Info("core count scaling changed", "scaled", cmd.scale)
	case cmdSignal:
		res.err = unix.Kill(int(cmd.pid), signals[cmd.signal])
		if res.err != nil {
			res.err = fmt.Errorf("signaling pid %d: %w", cmd.pid, res.err)
		}
	case cmdService:
		res.err = e.serviceAction(ctx, cmd.action, cmd.unit)
	case cmdServiceLogs:
		if e.sources.Services == nil {
			res.err = errNoServiceBus
		} else {
			res.logs, res.err = e.sources.Services.Logs(ctx, cmd.unit, cmd.pid, cmd.lines)
		}
	}
	cmd.reply <- res
}

var errNoServiceBus = fmt.Errorf("service control unavailable: no system bus")

func (e *Engine) serviceAction(ctx context.Context, action ServiceAction, unit string) error {
	if e.sources.Services == nil {
		return errNoServiceBus
	}
	switch action {
	case ServiceStart:
		return e.sources.Services.Start(ctx, unit)
	case ServiceStop:
		return e.sources.Services.Stop(ctx, unit)
	case ServiceRestart:
		return e.sources.Services.Restart(ctx, unit)
	case ServiceEnable:
		return e.sources.Services.Enable(ctx, unit)
	case ServiceDisable:
		return e.sources.Services.Disable(ctx, unit)
	}
	return fmt.Errorf("unsupported service action %q", action)
}
