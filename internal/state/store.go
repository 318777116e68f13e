package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/belfry/internal/device"
)

// Section names one independently polled part of the snapshot.
type Section int

const (
	SectionStatus Section = iota
	SectionRelay
	SectionClock
	SectionInfo
)

func (s Section) String() string {
	switch s {
	case SectionRelay:
		return "relay"
	case SectionClock:
		return "clock"
	case SectionInfo:
		return "info"
	default:
		return "status"
	}
}

// Snapshot represents the latest device data available to the UI.
type Snapshot struct {
	Status    device.SystemStatus
	HasStatus bool
	Relay     device.RelayStatus
	HasRelay  bool
	Clock     device.Clock
	HasClock  bool
	Info      device.SystemStatus // refreshed on the slower system info cadence
	HasInfo   bool

	Updated      map[Section]time.Time
	LastUpdated  time.Time
	LastError    error
	ErrorSection Section
	// ConsecutiveFailures counts status polls that failed in a row.
	ConsecutiveFailures int
}

// IsOffline returns true when the status endpoint has failed on multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot. Each section is
// replaced wholesale; the last update to resolve wins.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// UpdateStatus records a status poll. When err is non-nil the previous data
// is kept but the error is recorded for visibility.
func (s *Store) UpdateStatus(status *device.SystemStatus, err error) {
	s.update(SectionStatus, err, func(snap *Snapshot) {
		snap.Status = *status
		snap.HasStatus = true
	}, status != nil)
}

// UpdateRelay records a relay-status poll.
func (s *Store) UpdateRelay(relay *device.RelayStatus, err error) {
	s.update(SectionRelay, err, func(snap *Snapshot) {
		snap.Relay = *relay
		snap.HasRelay = true
	}, relay != nil)
}

// UpdateClock records a clock poll.
func (s *Store) UpdateClock(clock *device.Clock, err error) {
	s.update(SectionClock, err, func(snap *Snapshot) {
		snap.Clock = *clock
		snap.HasClock = true
	}, clock != nil)
}

// UpdateInfo records a system info poll.
func (s *Store) UpdateInfo(info *device.SystemStatus, err error) {
	s.update(SectionInfo, err, func(snap *Snapshot) {
		snap.Info = *info
		snap.HasInfo = true
	}, info != nil)
}

// SetBellsEnabled records a confirmed toggle-bells result so the header does
// not wait for the next status poll.
func (s *Store) SetBellsEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Status.BellsEnabled = enabled
}

func (s *Store) update(section Section, err error, apply func(*Snapshot), ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.snapshot.LastUpdated = now
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ErrorSection = section
		if section == SectionStatus {
			s.snapshot.ConsecutiveFailures++
		}
		return
	}

	if ok {
		apply(&s.snapshot)
	}
	if s.snapshot.Updated == nil {
		s.snapshot.Updated = make(map[Section]time.Time)
	}
	s.snapshot.Updated[section] = now
	if s.snapshot.LastError != nil && s.snapshot.ErrorSection == section {
		s.snapshot.LastError = nil
	}
	if section == SectionStatus {
		s.snapshot.ConsecutiveFailures = 0
	}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Updated = cloneTimes(s.snapshot.Updated)
	snap.Status.LastRingTime = cloneTime(s.snapshot.Status.LastRingTime)
	snap.Info.LastRingTime = cloneTime(s.snapshot.Info.LastRingTime)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	dup := *t
	return &dup
}

func cloneTimes(in map[Section]time.Time) map[Section]time.Time {
	if len(in) == 0 {
		return nil
	}
	out := make(map[Section]time.Time, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
