package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/five82/belfry/internal/device"
	"github.com/five82/belfry/internal/logging"
	"github.com/five82/belfry/internal/state"
)

type fakeSource struct {
	statusErr error
	relayErr  error
	clockErr  error
	rings     int

	statusCalls atomic.Int32
	clockCalls  atomic.Int32
}

func (f *fakeSource) FetchStatus(context.Context) (*device.SystemStatus, error) {
	f.statusCalls.Add(1)
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &device.SystemStatus{BellsEnabled: true, TotalRings: f.rings}, nil
}

func (f *fakeSource) FetchRelayStatus(context.Context) (*device.RelayStatus, error) {
	if f.relayErr != nil {
		return nil, f.relayErr
	}
	return &device.RelayStatus{Relay1Raw: 0, Relay2Raw: 1, StatusLEDRaw: 1}, nil
}

func (f *fakeSource) FetchClock(context.Context) (*device.Clock, error) {
	f.clockCalls.Add(1)
	if f.clockErr != nil {
		return nil, f.clockErr
	}
	return &device.Clock{Time: "09:30:00", Date: "16/10/2026"}, nil
}

type pollRecord struct{ cadence, outcome string }

type recordingObserver struct {
	mu    sync.Mutex
	calls []pollRecord
}

func (o *recordingObserver) ObservePoll(cadence, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, pollRecord{cadence, outcome})
}

func newTestPoller(src device.Poller, obs PollObserver) (*Poller, *state.Store) {
	store := &state.Store{}
	return NewPoller(src, store, logging.Discard(), obs, Intervals{}), store
}

func TestPollOutcomes(t *testing.T) {
	transport := &device.TransportError{Command: "GET /api/status", Status: http.StatusInternalServerError}

	tests := []struct {
		name    string
		section state.Section
		src     *fakeSource
		want    Outcome
		check   func(t *testing.T, snap state.Snapshot)
	}{
		{
			name:    "status updated",
			section: state.SectionStatus,
			src:     &fakeSource{rings: 4},
			want:    Updated,
			check: func(t *testing.T, snap state.Snapshot) {
				if !snap.HasStatus || snap.Status.TotalRings != 4 || snap.HasInfo {
					t.Fatalf("snapshot = %+v", snap)
				}
			},
		},
		{
			name:    "info uses the status endpoint",
			section: state.SectionInfo,
			src:     &fakeSource{rings: 9},
			want:    Updated,
			check: func(t *testing.T, snap state.Snapshot) {
				if !snap.HasInfo || snap.Info.TotalRings != 9 || snap.HasStatus {
					t.Fatalf("snapshot = %+v", snap)
				}
			},
		},
		{
			name:    "rate limited skips silently",
			section: state.SectionStatus,
			src:     &fakeSource{statusErr: device.ErrRateLimited},
			want:    Skipped,
			check: func(t *testing.T, snap state.Snapshot) {
				if snap.LastError != nil || snap.ConsecutiveFailures != 0 || snap.HasStatus {
					t.Fatalf("snapshot changed on 429: %+v", snap)
				}
			},
		},
		{
			name:    "relay failure is recorded",
			section: state.SectionRelay,
			src:     &fakeSource{relayErr: transport},
			want:    Failed,
			check: func(t *testing.T, snap state.Snapshot) {
				if !errors.Is(snap.LastError, transport) || snap.ErrorSection != state.SectionRelay {
					t.Fatalf("LastError = %v on %s", snap.LastError, snap.ErrorSection)
				}
				if snap.ConsecutiveFailures != 0 {
					t.Fatalf("relay failure counted toward offline: %d", snap.ConsecutiveFailures)
				}
			},
		},
		{
			name:    "clock updated",
			section: state.SectionClock,
			src:     &fakeSource{},
			want:    Updated,
			check: func(t *testing.T, snap state.Snapshot) {
				if !snap.HasClock || snap.Clock.Time != "09:30:00" {
					t.Fatalf("clock = %+v", snap.Clock)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &recordingObserver{}
			p, store := newTestPoller(tt.src, obs)
			if got := p.Poll(context.Background(), tt.section); got != tt.want {
				t.Fatalf("Poll = %s, want %s", got, tt.want)
			}
			tt.check(t, store.Snapshot())
			want := pollRecord{tt.section.String(), tt.want.String()}
			if len(obs.calls) != 1 || obs.calls[0] != want {
				t.Fatalf("observer calls = %+v, want %+v", obs.calls, want)
			}
		})
	}
}

func TestStatusFailuresMarkOfflineAndRecover(t *testing.T) {
	src := &fakeSource{rings: 1}
	p, store := newTestPoller(src, nil)
	ctx := context.Background()

	p.Poll(ctx, state.SectionStatus)
	src.statusErr = fmt.Errorf("execute request: %w", errors.New("connection refused"))
	p.Poll(ctx, state.SectionStatus)
	if store.Snapshot().IsOffline() {
		t.Fatalf("offline after a single failure")
	}
	p.Poll(ctx, state.SectionStatus)
	snap := store.Snapshot()
	if !snap.IsOffline() {
		t.Fatalf("not offline after two failures: %d", snap.ConsecutiveFailures)
	}
	if !snap.HasStatus || snap.Status.TotalRings != 1 {
		t.Fatalf("previous status not retained: %+v", snap.Status)
	}

	src.statusErr = nil
	if got := p.Poll(ctx, state.SectionStatus); got != Updated {
		t.Fatalf("Poll after recovery = %s", got)
	}
	if snap := store.Snapshot(); snap.IsOffline() || snap.LastError != nil {
		t.Fatalf("still offline after recovery: %+v", snap)
	}
}

func TestCancelledPollIsSkipped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &fakeSource{statusErr: &device.TransportError{Command: "GET /api/status", Err: context.Canceled}}
	p, store := newTestPoller(src, nil)
	if got := p.Poll(ctx, state.SectionStatus); got != Skipped {
		t.Fatalf("Poll = %s, want skipped", got)
	}
	if store.Snapshot().ConsecutiveFailures != 0 {
		t.Fatalf("cancelled poll counted as failure")
	}
}

func TestRunPollsEachCadenceUntilCancelled(t *testing.T) {
	src := &fakeSource{}
	store := &state.Store{}
	p := NewPoller(src, store, logging.Discard(), nil, Intervals{
		Clock:  5 * time.Millisecond,
		Status: 10 * time.Millisecond,
		Relay:  time.Hour,
		Info:   time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for src.clockCalls.Load() < 3 || src.statusCalls.Load() < 1 {
		if time.Now().After(deadline) {
			t.Fatalf("cadences did not tick: clock=%d status=%d", src.clockCalls.Load(), src.statusCalls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
	if snap := store.Snapshot(); !snap.HasClock || !snap.HasStatus || snap.HasRelay {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestRefreshAgainstDevice(t *testing.T) {
	var relayHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/status":
			w.WriteHeader(http.StatusTooManyRequests)
		case "/api/relay-status":
			relayHits.Add(1)
			_, _ = w.Write([]byte(`{"relay1_raw":0,"relay2_raw":1,"statusLed_raw":1,"enabled":true}`))
		case "/api/time":
			_, _ = w.Write([]byte(`{"time":"12:00:00","date":"16/10/2026"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := device.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	p, store := newTestPoller(client, nil)
	p.Refresh(context.Background())

	snap := store.Snapshot()
	if !snap.HasRelay || snap.Relay.Relay1Raw != 0 || !snap.HasClock {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.HasStatus || snap.HasInfo || snap.LastError != nil {
		t.Fatalf("429 on status should leave it untouched: %+v", snap)
	}

	if got := p.RefreshAfter(context.Background(), state.SectionRelay, time.Millisecond); got != Updated {
		t.Fatalf("RefreshAfter = %s", got)
	}
	if relayHits.Load() != 2 {
		t.Fatalf("relay hits = %d, want 2", relayHits.Load())
	}
}
