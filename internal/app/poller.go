package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/five82/belfry/internal/config"
	"github.com/five82/belfry/internal/device"
	"github.com/five82/belfry/internal/state"
)

// Outcome is how one poll tick ended.
type Outcome int

const (
	Updated Outcome = iota
	Skipped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return "updated"
	}
}

// PollObserver is told the outcome of every poll tick.
type PollObserver interface {
	ObservePoll(cadence, outcome string, elapsed time.Duration)
}

// Intervals are the tick periods of the four cadences.
type Intervals struct {
	Clock  time.Duration
	Status time.Duration
	Relay  time.Duration
	Info   time.Duration
}

// IntervalsFrom reads the poll periods out of cfg.
func IntervalsFrom(cfg config.Config) Intervals {
	return Intervals{
		Clock:  cfg.ClockPoll,
		Status: cfg.StatusPoll,
		Relay:  cfg.RelayPoll,
		Info:   cfg.InfoPoll,
	}
}

// Poller refreshes the state store from the device on independent cadences.
type Poller struct {
	source    device.Poller
	store     *state.Store
	logger    *log.Logger
	observer  PollObserver
	intervals Intervals

	mu      sync.Mutex
	failing map[state.Section]bool
}

// NewPoller returns a poller feeding store. observer may be nil.
func NewPoller(source device.Poller, store *state.Store, logger *log.Logger, observer PollObserver, iv Intervals) *Poller {
	if iv.Clock <= 0 {
		iv.Clock = config.DefaultClockPoll
	}
	if iv.Status <= 0 {
		iv.Status = config.DefaultStatusPoll
	}
	if iv.Relay <= 0 {
		iv.Relay = config.DefaultRelayPoll
	}
	if iv.Info <= 0 {
		iv.Info = config.DefaultInfoPoll
	}
	return &Poller{
		source:    source,
		store:     store,
		logger:    logger,
		observer:  observer,
		intervals: iv,
		failing:   make(map[state.Section]bool),
	}
}

// Run polls every cadence until ctx is cancelled. Each cadence has its own
// loop; a slow or failing endpoint does not hold up the others.
func (p *Poller) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, section := range []state.Section{state.SectionClock, state.SectionStatus, state.SectionRelay, state.SectionInfo} {
		every := p.interval(section)
		g.Go(func() error {
			p.loop(ctx, section, every)
			return nil
		})
	}
	return g.Wait()
}

// loop polls section on every tick. Polls of one section never overlap; the
// ticker drops ticks that pile up behind a slow poll.
func (p *Poller) loop(ctx context.Context, section state.Section, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx, section)
		}
	}
}

// Refresh polls every section once, concurrently, and waits for all of them.
func (p *Poller) Refresh(ctx context.Context) {
	var g errgroup.Group
	for _, section := range []state.Section{state.SectionClock, state.SectionStatus, state.SectionRelay, state.SectionInfo} {
		g.Go(func() error {
			p.Poll(ctx, section)
			return nil
		})
	}
	_ = g.Wait()
}

// RefreshAfter polls section once after delay unless ctx ends first.
func (p *Poller) RefreshAfter(ctx context.Context, section state.Section, delay time.Duration) Outcome {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return Skipped
	case <-timer.C:
		return p.Poll(ctx, section)
	}
}

// Poll performs one read for section and records the result.
func (p *Poller) Poll(ctx context.Context, section state.Section) Outcome {
	start := time.Now()
	var err error
	switch section {
	case state.SectionClock:
		var clock *device.Clock
		clock, err = p.source.FetchClock(ctx)
		if err == nil {
			p.store.UpdateClock(clock, nil)
		}
	case state.SectionRelay:
		var relay *device.RelayStatus
		relay, err = p.source.FetchRelayStatus(ctx)
		if err == nil {
			p.store.UpdateRelay(relay, nil)
		}
	case state.SectionInfo:
		var info *device.SystemStatus
		info, err = p.source.FetchStatus(ctx)
		if err == nil {
			p.store.UpdateInfo(info, nil)
		}
	default:
		var status *device.SystemStatus
		status, err = p.source.FetchStatus(ctx)
		if err == nil {
			p.store.UpdateStatus(status, nil)
		}
	}

	outcome := p.settle(ctx, section, err)
	if p.observer != nil {
		p.observer.ObservePoll(section.String(), outcome.String(), time.Since(start))
	}
	return outcome
}

func (p *Poller) settle(ctx context.Context, section state.Section, err error) Outcome {
	switch {
	case err == nil:
		if p.markFailing(section, false) {
			p.logger.Info("poll recovered", "section", section)
		}
		return Updated
	case device.IsRateLimited(err):
		p.logger.Debug("poll rate limited", "section", section)
		return Skipped
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return Skipped
	}

	p.recordFailure(section, err)
	if !p.markFailing(section, true) {
		p.logger.Warn("poll failed", "section", section, "err", err)
	} else {
		p.logger.Debug("poll still failing", "section", section, "err", err)
	}
	return Failed
}

// markFailing sets the failing flag for section and returns its old value.
func (p *Poller) markFailing(section state.Section, failing bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	was := p.failing[section]
	p.failing[section] = failing
	return was
}

func (p *Poller) recordFailure(section state.Section, err error) {
	switch section {
	case state.SectionClock:
		p.store.UpdateClock(nil, err)
	case state.SectionRelay:
		p.store.UpdateRelay(nil, err)
	case state.SectionInfo:
		p.store.UpdateInfo(nil, err)
	default:
		p.store.UpdateStatus(nil, err)
	}
}

func (p *Poller) interval(section state.Section) time.Duration {
	switch section {
	case state.SectionClock:
		return p.intervals.Clock
	case state.SectionRelay:
		return p.intervals.Relay
	case state.SectionInfo:
		return p.intervals.Info
	default:
		return p.intervals.Status
	}
}
