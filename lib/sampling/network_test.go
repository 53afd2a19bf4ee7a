// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package sampling

import (
	"context"
	"testing"
	"time"

	"github.com/vigil-systems/vigil/lib/telemetry"
	"github.com/vigil-systems/vigil/lib/testutil"
)

func networkFixture(t *testing.T) (*NetworkSampler, string) {
	t.Helper()
	sysRoot := t.TempDir()
	testutil.WriteTree(t, sysRoot, map[string]string{
		"class/net/eth0/address":             "aa:bb:cc:dd:ee:ff\n",
		"class/net/eth0/statistics/rx_bytes": "1000\n",
		"class/net/eth0/statistics/tx_bytes": "500\n",
		"class/net/wlp3s0/address":           "11:22:33:44:55:66\n",
		"class/net/wlp3s0/statistics/rx_bytes": "2000\n",
		"class/net/wlp3s0/statistics/tx_bytes": "100\n",
		"class/net/lo/address":               "00:00:00:00:00:00\n",
		"class/net/lo/statistics/rx_bytes":   "99999\n",
		"class/net/lo/statistics/tx_bytes":   "99999\n",
	})
	s := NewNetworkSampler(sysRoot, testLogger())
	s.UdevadmPath = "" // no hwdb in tests
	return s, sysRoot
}

func TestNetworkEnumeration(t *testing.T) {
	s, _ := networkFixture(t)
	conns := s.Sample(context.Background(), 0)

	if len(conns) != 2 {
		t.Fatalf("interfaces = %d, want 2 (lo skipped)", len(conns))
	}
	if conns[0].ID != "eth0" || conns[1].ID != "wlp3s0" {
		t.Fatalf("order = %s, %s", conns[0].ID, conns[1].ID)
	}
	if conns[0].Kind != telemetry.ConnWired {
		t.Errorf("eth0 kind = %s", conns[0].Kind)
	}
	if conns[1].Kind != telemetry.ConnWireless {
		t.Errorf("wlp3s0 kind = %s", conns[1].Kind)
	}
	if conns[0].MAC != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("mac = %q", conns[0].MAC)
	}
	// Without a hwdb hit the display name falls back to the id.
	if conns[0].DisplayName != "eth0" {
		t.Errorf("display name = %q", conns[0].DisplayName)
	}
	// First observation: no rates.
	if conns[0].ReceiveBitsPerSec != 0 || conns[0].SendBitsPerSec != 0 {
		t.Errorf("first observation has rates: %+v", conns[0])
	}
}

func TestNetworkRates(t *testing.T) {
	s, sysRoot := networkFixture(t)
	s.Sample(context.Background(), 0)

	// +1250 bytes received, +125 sent over one second: 10000 and 1000
	// bits per second.
	testutil.WriteTree(t, sysRoot, map[string]string{
		"class/net/eth0/statistics/rx_bytes": "2250\n",
		"class/net/eth0/statistics/tx_bytes": "625\n",
	})
	conns := s.Sample(context.Background(), time.Second)
	if conns[0].ReceiveBitsPerSec != 10000 {
		t.Errorf("recv = %d, want 10000", conns[0].ReceiveBitsPerSec)
	}
	if conns[0].SendBitsPerSec != 1000 {
		t.Errorf("send = %d, want 1000", conns[0].SendBitsPerSec)
	}
	// Untouched interface: zero deltas.
	if conns[1].ReceiveBitsPerSec != 0 {
		t.Errorf("idle wlp3s0 recv = %d", conns[1].ReceiveBitsPerSec)
	}
}

func TestNetworkCounterReset(t *testing.T) {
	s, sysRoot := networkFixture(t)
	s.Sample(context.Background(), 0)

	testutil.WriteTree(t, sysRoot, map[string]string{
		"class/net/eth0/statistics/rx_bytes": "10\n",
	})
	conns := s.Sample(context.Background(), time.Second)
	if conns[0].ReceiveBitsPerSec != 0 {
		t.Errorf("reset produced recv rate %d", conns[0].ReceiveBitsPerSec)
	}
}

type fakeEnricher struct{ calls int }

func (f *fakeEnricher) Enrich(_ context.Context, conns []telemetry.NetworkConnection) []telemetry.NetworkConnection {
	f.calls++
	for i := range conns {
		if conns[i].Kind == telemetry.ConnWireless {
			conns[i].SSID = "testnet"
			conns[i].SignalPercent = 70
		}
	}
	return conns
}

func TestNetworkEnricherApplied(t *testing.T) {
	s, _ := networkFixture(t)
	enricher := &fakeEnricher{}
	s.Enricher = enricher

	conns := s.Sample(context.Background(), 0)
	if enricher.calls != 1 {
		t.Fatalf("enricher calls = %d", enricher.calls)
	}
	if conns[1].SSID != "testnet" || conns[1].SignalPercent != 70 {
		t.Errorf("wireless fields = %+v", conns[1])
	}
	if conns[0].SSID != "" {
		t.Errorf("wired got SSID %q", conns[0].SSID)
	}
}

func TestInterfaceKind(t *testing.T) {
	tests := []struct {
		name string
		want telemetry.ConnectionKind
	}{
		{"enp4s0", telemetry.ConnWired},
		{"eth1", telemetry.ConnWired},
		{"wlan0", telemetry.ConnWireless},
		{"wlp3s0", telemetry.ConnWireless},
		{"wwan0", telemetry.ConnOther},
		{"ppp0", telemetry.ConnOther},
		{"virbr0", telemetry.ConnOther},
	}
	for _, tt := range tests {
		if got := interfaceKind(tt.name); got != tt.want {
			t.Errorf("interfaceKind(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}
