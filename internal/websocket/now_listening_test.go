// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package websocket

import (
	"context"
	"testing"

	"github.com/tomtom215/groovesync/internal/models"
)

func newListenHub(t *testing.T) (*Hub, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	store.addTrack(models.Track{ID: 100, UserID: 10, Name: "Song", Artist: "Artist", Length: 200})
	store.addTrack(models.Track{ID: 101, UserID: 10, Name: "Secret", Private: true})
	h := NewHub(store, DefaultLimits())
	h.SetClock(fixedClock(5_000))
	return h, store
}

func TestNowListeningMergeRetainsFields(t *testing.T) {
	h, _ := newListenHub(t)
	ctx := context.Background()
	sender := connectTest(h, testDevice(1, 10, models.DeviceAndroid))
	viewer := connectTest(h, testDevice(2, 10, models.DeviceWeb))

	if err := h.NowListening().HandleMessage(ctx, sender, []byte(`{"messageType":"NOW_PLAYING","isPlaying":true}`)); err != nil {
		t.Fatal(err)
	}
	if err := h.NowListening().HandleMessage(ctx, sender, []byte(`{"messageType":"NOW_PLAYING","volume":0.5}`)); err != nil {
		t.Fatal(err)
	}

	msgs := drain(viewer)
	if len(msgs) != 2 {
		t.Fatalf("viewer received %d messages, want 2", len(msgs))
	}
	st := decodeState(t, msgs[1])
	if st.IsPlaying == nil || !*st.IsPlaying {
		t.Error("isPlaying should be retained")
	}
	if st.Volume == nil || *st.Volume != 0.5 {
		t.Errorf("volume = %v, want 0.5", st.Volume)
	}
	if st.DeviceID != 1 || st.UserID != 10 || st.DeviceType != models.DeviceAndroid {
		t.Errorf("identity fields not filled from the session: %+v", st)
	}
	if len(drain(sender)) != 0 {
		t.Error("sender must not receive its own state")
	}
}

func TestNowListeningExplicitNullOverwrites(t *testing.T) {
	h, _ := newListenHub(t)
	ctx := context.Background()
	s := connectTest(h, testDevice(1, 10, models.DeviceWeb))

	_ = h.NowListening().HandleMessage(ctx, s, []byte(`{"messageType":"NOW_PLAYING","trackId":100,"muted":true}`))
	_ = h.NowListening().HandleMessage(ctx, s, []byte(`{"messageType":"NOW_PLAYING","trackId":null,"muted":false}`))

	st, ok := h.NowListening().State(s.ID())
	if !ok {
		t.Fatal("state missing")
	}
	if st.TrackData != nil {
		t.Error("explicit null trackId should clear the track")
	}
	if st.Muted == nil || *st.Muted {
		t.Error("explicit false should overwrite muted")
	}
}

func TestNowListeningTrackSummary(t *testing.T) {
	h, _ := newListenHub(t)
	ctx := context.Background()
	s := connectTest(h, testDevice(1, 10, models.DeviceWeb))

	_ = h.NowListening().HandleMessage(ctx, s, []byte(`{"messageType":"NOW_PLAYING","trackId":100,"timePlayed":12.5}`))
	st, _ := h.NowListening().State(s.ID())
	if st.TrackData == nil || st.TrackData.Name != "Song" || st.TrackData.IsPrivate {
		t.Errorf("unexpected track summary: %+v", st.TrackData)
	}
	if st.LastTimeUpdate == nil || *st.LastTimeUpdate != 5_000 {
		t.Errorf("lastTimeUpdate = %v, want 5000", st.LastTimeUpdate)
	}

	_ = h.NowListening().HandleMessage(ctx, s, []byte(`{"messageType":"NOW_PLAYING","trackId":101}`))
	st, _ = h.NowListening().State(s.ID())
	if st.TrackData == nil || !st.TrackData.IsPrivate || st.TrackData.Name != "" {
		t.Errorf("private track should be reduced to isPrivate: %+v", st.TrackData)
	}

	_ = h.NowListening().HandleMessage(ctx, s, []byte(`{"messageType":"NOW_PLAYING","trackId":999}`))
	st, _ = h.NowListening().State(s.ID())
	if st.TrackData != nil {
		t.Error("unknown track should clear the summary")
	}
}

func TestNowListeningRejectsBadField(t *testing.T) {
	h, _ := newListenHub(t)
	s := connectTest(h, testDevice(1, 10, models.DeviceWeb))
	err := h.NowListening().HandleMessage(context.Background(), s, []byte(`{"messageType":"NOW_PLAYING","volume":"loud"}`))
	if err == nil {
		t.Fatal("expected error for non-numeric volume")
	}
	if _, ok := h.NowListening().State(s.ID()); ok {
		t.Error("a rejected message must not create state")
	}
}

func TestNowListeningCapabilityFilter(t *testing.T) {
	h, _ := newListenHub(t)
	sender := connectTest(h, testDevice(1, 10, models.DeviceWeb))
	phone := connectTest(h, testDevice(2, 10, models.DeviceIPhone))
	web := connectTest(h, testDevice(3, 20, models.DeviceWeb))

	_ = h.NowListening().HandleMessage(context.Background(), sender, []byte(`{"messageType":"NOW_PLAYING","isPlaying":true}`))

	if n := len(drain(phone)); n != 0 {
		t.Errorf("iPhone session received %d messages, want 0", n)
	}
	if n := len(drain(web)); n != 1 {
		t.Errorf("web session received %d messages, want 1", n)
	}
}

func TestSendAllListensOnConnect(t *testing.T) {
	h, _ := newListenHub(t)
	ctx := context.Background()
	a := connectTest(h, testDevice(1, 10, models.DeviceAndroid))
	b := connectTest(h, testDevice(2, 10, models.DeviceAndroid))
	_ = h.NowListening().HandleMessage(ctx, a, []byte(`{"messageType":"NOW_PLAYING","isPlaying":true}`))
	_ = h.NowListening().HandleMessage(ctx, b, []byte(`{"messageType":"NOW_PLAYING","isPlaying":false}`))

	late := connectTest(h, testDevice(3, 10, models.DeviceWeb))
	msgs := drain(late)
	if len(msgs) != 2 {
		t.Fatalf("newcomer received %d states, want 2", len(msgs))
	}
	if decodeState(t, msgs[0]).DeviceID != 1 || decodeState(t, msgs[1]).DeviceID != 2 {
		t.Error("replayed states should be ordered by device id")
	}

	android := connectTest(h, testDevice(4, 10, models.DeviceAndroid))
	if n := len(drain(android)); n != 0 {
		t.Errorf("android newcomer received %d states, want 0", n)
	}
}

func TestRemoveSessionClearsTrackOnly(t *testing.T) {
	h, _ := newListenHub(t)
	ctx := context.Background()
	player := connectTest(h, testDevice(1, 10, models.DeviceAndroid))
	viewer := connectTest(h, testDevice(2, 10, models.DeviceWeb))

	_ = h.NowListening().HandleMessage(ctx, player, []byte(`{"messageType":"NOW_PLAYING","trackId":100,"isPlaying":true,"volume":0.8}`))
	drain(viewer)

	h.Disconnect(player)
	msgs := drain(viewer)
	if len(msgs) != 1 {
		t.Fatalf("viewer received %d messages on disconnect, want 1", len(msgs))
	}
	st := decodeState(t, msgs[0])
	if st.TrackData != nil {
		t.Error("final state should have no track")
	}
	if st.IsPlaying == nil || !*st.IsPlaying || st.Volume == nil || *st.Volume != 0.8 {
		t.Errorf("other fields should be unchanged: %+v", st)
	}
	if _, ok := h.NowListening().State(player.ID()); ok {
		t.Error("state should be removed after disconnect")
	}

	h.Disconnect(player)
	if n := len(drain(viewer)); n != 0 {
		t.Errorf("second disconnect broadcast %d messages, want 0", n)
	}
}

func TestNowListeningIgnoresDisconnectedSession(t *testing.T) {
	h, _ := newListenHub(t)
	player := connectTest(h, testDevice(1, 10, models.DeviceAndroid))
	viewer := connectTest(h, testDevice(2, 10, models.DeviceWeb))

	h.Disconnect(player)
	drain(viewer)

	err := h.NowListening().HandleMessage(context.Background(), player, []byte(`{"messageType":"NOW_PLAYING","trackId":100,"isPlaying":true}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := h.NowListening().State(player.ID()); ok {
		t.Error("late message re-created state for a disconnected session")
	}
	if n := len(drain(viewer)); n != 0 {
		t.Errorf("viewer received %d messages from a disconnected session, want 0", n)
	}

	late := connectTest(h, testDevice(3, 10, models.DeviceWeb))
	if n := len(drain(late)); n != 0 {
		t.Errorf("newcomer received %d stale states, want 0", n)
	}
}

func TestRemoveSessionWithoutTrackIsSilent(t *testing.T) {
	h, _ := newListenHub(t)
	player := connectTest(h, testDevice(1, 10, models.DeviceAndroid))
	viewer := connectTest(h, testDevice(2, 10, models.DeviceWeb))
	_ = h.NowListening().HandleMessage(context.Background(), player, []byte(`{"messageType":"NOW_PLAYING","isPlaying":false}`))
	drain(viewer)

	h.Disconnect(player)
	if n := len(drain(viewer)); n != 0 {
		t.Errorf("viewer received %d messages, want 0", n)
	}
}

func TestBroadcastSkipsFullRecipient(t *testing.T) {
	h, _ := newListenHub(t)
	sender := connectTest(h, testDevice(1, 10, models.DeviceAndroid))
	slow := NewSession(nil, testDevice(2, 10, models.DeviceWeb), 1)
	h.Connect(slow)
	fast := connectTest(h, testDevice(3, 10, models.DeviceWeb))

	for i := 0; i < 3; i++ {
		_ = h.NowListening().HandleMessage(context.Background(), sender, []byte(`{"messageType":"NOW_PLAYING","isPlaying":true}`))
	}
	if n := len(drain(slow)); n != 1 {
		t.Errorf("slow session holds %d messages, want 1", n)
	}
	if n := len(drain(fast)); n != 3 {
		t.Errorf("fast session received %d messages, want 3", n)
	}
}
