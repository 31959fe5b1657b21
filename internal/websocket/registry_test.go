// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package websocket

import (
	"sync"
	"testing"

	"github.com/tomtom215/groovesync/internal/models"
)

func TestRegistryRegisterUnregister(t *testing.T) {
	r := NewRegistry()
	a := NewSession(nil, testDevice(1, 10, models.DeviceWeb), 4)
	b := NewSession(nil, testDevice(2, 10, models.DeviceAndroid), 4)
	c := NewSession(nil, testDevice(3, 20, models.DeviceWeb), 4)
	r.Register(a)
	r.Register(b)
	r.Register(c)

	if r.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", r.Count())
	}
	user := r.SessionsForUser(10)
	if len(user) != 2 || user[0] != a || user[1] != b {
		t.Errorf("SessionsForUser(10) returned wrong sessions in wrong order")
	}
	if len(r.All()) != 3 {
		t.Errorf("All() length = %d, want 3", len(r.All()))
	}

	if _, ok := r.Unregister(a.ID()); !ok {
		t.Fatal("first Unregister should report removal")
	}
	if _, ok := r.Unregister(a.ID()); ok {
		t.Error("second Unregister should be a no-op")
	}
	if a.Send([]byte("x")) {
		t.Error("Send on an unregistered session should fail")
	}
	if r.Get(a.ID()) != nil {
		t.Error("Get should not find an unregistered session")
	}
}

func TestRegistryConcurrentUnregister(t *testing.T) {
	r := NewRegistry()
	s := NewSession(nil, testDevice(1, 10, models.DeviceWeb), 4)
	r.Register(s)

	var wg sync.WaitGroup
	var mu sync.Mutex
	removed := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := r.Unregister(s.ID()); ok {
				mu.Lock()
				removed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if removed != 1 {
		t.Errorf("Unregister succeeded %d times, want 1", removed)
	}
}

func TestRegistryFindByDeviceNewestWins(t *testing.T) {
	r := NewRegistry()
	d := testDevice(1, 10, models.DeviceWeb)
	old := NewSession(nil, d, 4)
	fresh := NewSession(nil, d, 4)
	r.Register(old)
	r.Register(fresh)

	if got := r.FindByDevice(10, DeviceIdentifier(d.DeviceID)); got != fresh {
		t.Error("FindByDevice should return the most recent session")
	}
	if got := r.FindByDevice(11, DeviceIdentifier(d.DeviceID)); got != nil {
		t.Error("FindByDevice should not match another user's device")
	}

	r.Unregister(fresh.ID())
	if got := r.FindByDevice(10, DeviceIdentifier(d.DeviceID)); got != old {
		t.Error("FindByDevice should fall back to the remaining session")
	}
}

func TestSessionSendDropsWhenFull(t *testing.T) {
	s := NewSession(nil, testDevice(1, 10, models.DeviceWeb), 1)
	if !s.Send([]byte("1")) {
		t.Fatal("first send should fit")
	}
	if s.Send([]byte("2")) {
		t.Error("second send should be dropped")
	}
	if got := drain(s); len(got) != 1 {
		t.Errorf("queued %d messages, want 1", len(got))
	}
}

func TestLimitsFromConfigDefaults(t *testing.T) {
	l := LimitsFromConfig(nil)
	if l != DefaultLimits() {
		t.Errorf("LimitsFromConfig(nil) = %+v, want defaults", l)
	}
	if l.pingPeriod() >= l.PongWait {
		t.Error("ping period must be shorter than pong wait")
	}
}
