package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"voicecampaign-platform/internal/calls"
)

// VendorSnapshot is the unstructured status snapshot a vendor returns for
// one provider call id. Absent fields mean the vendor has not reported them
// yet; they must never be interpreted as clearing a stored value.
type VendorSnapshot struct {
	Status          string
	DurationSeconds *int
	Transcript      string
	RecordingURL    string
}

// StatusClient fetches the vendor's view of a call. A (nil, nil) return
// means the vendor has nothing for this call yet, which is not an error.
type StatusClient interface {
	GetCallDetails(ctx context.Context, providerCallID string) (*VendorSnapshot, error)
}

// Config bounds the reconciliation loop.
type Config struct {
	// Interval between poll ticks. Default 10s.
	Interval time.Duration
	// MaxAttempts caps the number of ticks per session. The default of 90
	// gives a 15 minute wall-clock budget at the default interval; it is a
	// liveness safety valve for calls the vendor never reports terminal.
	MaxAttempts int
	// MaxConsecutiveErrors stops a session after this many vendor failures
	// in a row. Default 5.
	MaxConsecutiveErrors int
	// TickTimeout bounds the network and store work of a single tick.
	// Defaults to Interval.
	TickTimeout time.Duration
}

func (c Config) withDefaults() Config {
	out := c
	if out.Interval <= 0 {
		out.Interval = 10 * time.Second
	}
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = 90
	}
	if out.MaxConsecutiveErrors <= 0 {
		out.MaxConsecutiveErrors = 5
	}
	if out.TickTimeout <= 0 {
		out.TickTimeout = out.Interval
	}
	return out
}

// Poller reconciles in-flight calls against the vendor's status API.
//
// It is the pull-side backstop to webhook delivery: each active session
// polls one provider call id on a fixed interval until the call reaches a
// terminal status or a budget is exhausted. Webhooks may update the same
// Call concurrently; the store's update path latches terminal statuses so
// the two writers cannot conflict destructively.
//
// Each session runs on its own goroutine, so ticks for one session are
// strictly sequential while sessions stay independent of each other. The
// session table is instance-owned; construct one Poller per process (or per
// test) and inject it where calls are started.
type Poller struct {
	store  calls.Store
	vendor StatusClient
	sink   EventSink
	cfg    Config
	log    *slog.Logger

	reg   *registry
	clock func() time.Time
	wg    sync.WaitGroup
}

func New(store calls.Store, vendor StatusClient, sink EventSink, cfg Config, log *slog.Logger) *Poller {
	if sink == nil {
		sink = NopSink{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Poller{
		store:  store,
		vendor: vendor,
		sink:   sink,
		cfg:    cfg.withDefaults(),
		log:    log,
		reg:    newRegistry(),
		clock:  time.Now,
	}
}

var ErrInvalidArgument = errors.New("poller: invalid argument")

// Start begins polling for a provider call id. A second Start for the same
// id while a session is active is a silent no-op. The first poll runs
// immediately; subsequent polls follow the configured interval.
func (p *Poller) Start(providerCallID, callID, orgID string) error {
	if providerCallID == "" || callID == "" || orgID == "" {
		return ErrInvalidArgument
	}
	s := &session{
		providerCallID: providerCallID,
		callID:         callID,
		orgID:          orgID,
		startedAt:      p.clock(),
		stop:           make(chan struct{}),
	}
	if !p.reg.add(s) {
		return nil
	}
	p.log.Info("poll session started",
		"provider_call_id", providerCallID, "call_id", callID, "organization_id", orgID)
	p.wg.Add(1)
	go p.run(s)
	return nil
}

// Stop cancels the session for a provider call id. Stopping an unknown or
// already-stopped session is a no-op, so it is safe to call from anywhere,
// including from within the session's own tick.
func (p *Poller) Stop(providerCallID string) {
	s := p.reg.remove(providerCallID)
	if s == nil {
		return
	}
	close(s.stop)
	p.log.Info("poll session stopped", "provider_call_id", providerCallID, "call_id", s.callID)
}

// StopAll cancels every active session and waits for their goroutines to
// drain. Used at process shutdown.
func (p *Poller) StopAll() {
	for _, s := range p.reg.all() {
		p.Stop(s.providerCallID)
	}
	p.wg.Wait()
}

// SessionStats describes one active session for the operational surface.
type SessionStats struct {
	ProviderCallID string `json:"provider_call_id"`
	CallID         string `json:"call_id"`
	Attempts       int    `json:"attempts"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
}

type Stats struct {
	ActivePolls int            `json:"active_polls"`
	Polls       []SessionStats `json:"polls"`
}

// Stats returns a read-only snapshot of the active sessions.
func (p *Poller) Stats() Stats {
	sessions := p.reg.all()
	now := p.clock()
	out := Stats{ActivePolls: len(sessions), Polls: make([]SessionStats, 0, len(sessions))}
	for _, s := range sessions {
		s.mu.Lock()
		attempts := s.attempts
		s.mu.Unlock()
		out.Polls = append(out.Polls, SessionStats{
			ProviderCallID: s.providerCallID,
			CallID:         s.callID,
			Attempts:       attempts,
			ElapsedSeconds: int(now.Sub(s.startedAt).Seconds()),
		})
	}
	return out
}

func (p *Poller) run(s *session) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.tick(s)
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			p.tick(s)
		}
	}
}

// tick executes one reconciliation pass for a session. Errors are handled
// here; nothing propagates out of the polling goroutine.
func (p *Poller) tick(s *session) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("poll tick panicked", "provider_call_id", s.providerCallID, "panic", r)
		}
	}()

	// Session may have been stopped between scheduling and execution.
	if p.reg.get(s.providerCallID) != s {
		return
	}

	s.mu.Lock()
	s.attempts++
	attempts := s.attempts
	s.mu.Unlock()

	log := p.log.With("provider_call_id", s.providerCallID, "call_id", s.callID, "attempt", attempts)

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.TickTimeout)
	defer cancel()

	call, err := p.store.GetCall(ctx, s.orgID, s.callID)
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			// The call was deleted or the session was started against a bad
			// id. Fatal for this session only.
			log.Warn("call record missing, stopping poll")
			p.Stop(s.providerCallID)
			return
		}
		log.Error("call lookup failed", "err", err)
		return
	}

	if call.Status.IsTerminal() {
		// Another writer (webhook) got there first. Do not overwrite.
		log.Debug("call already terminal, stopping poll", "status", call.Status)
		p.Stop(s.providerCallID)
		return
	}

	snap, err := p.vendor.GetCallDetails(ctx, s.providerCallID)
	if err != nil {
		s.mu.Lock()
		s.consecutiveErrors++
		consec := s.consecutiveErrors
		s.mu.Unlock()
		log.Warn("vendor status fetch failed", "err", err, "consecutive_errors", consec)
		if consec >= p.cfg.MaxConsecutiveErrors {
			log.Error("persistent vendor failure, stopping poll")
			p.Stop(s.providerCallID)
		}
		return
	}
	s.mu.Lock()
	s.consecutiveErrors = 0
	s.mu.Unlock()

	if snap == nil {
		// Vendor has nothing yet. Poll again, bounded by the attempt budget.
		if attempts >= p.cfg.MaxAttempts {
			log.Warn("attempt budget exhausted without vendor data, stopping poll")
			p.Stop(s.providerCallID)
		}
		return
	}

	status := call.Status
	if snap.Status != "" {
		status = calls.NormalizeStatus(snap.Status)
	}

	if changed := diff(call, status, snap); changed {
		now := p.clock().UTC()
		upd := calls.CallUpdate{Status: &status}
		if snap.DurationSeconds != nil {
			upd.DurationSeconds = snap.DurationSeconds
		}
		if snap.Transcript != "" {
			upd.Transcript = &snap.Transcript
		}
		if snap.RecordingURL != "" {
			upd.RecordingURL = &snap.RecordingURL
		}
		if status == calls.CallStatusInProgress && call.StartedAt == nil {
			upd.StartedAt = &now
		}
		if status.IsTerminal() && call.EndedAt == nil {
			upd.EndedAt = &now
		}

		updated, err := p.store.UpdateCall(ctx, s.orgID, s.callID, upd)
		if err != nil {
			if errors.Is(err, calls.ErrNotFound) {
				log.Warn("call vanished during update, stopping poll")
				p.Stop(s.providerCallID)
				return
			}
			log.Error("call update failed", "err", err)
			return
		}
		log.Info("call state reconciled", "status", updated.Status)

		p.sink.CallUpdated(ctx, s.orgID, updated)
		if m, err := p.store.DashboardMetrics(ctx, s.orgID); err == nil {
			p.sink.MetricsUpdated(ctx, s.orgID, m)
		} else {
			log.Warn("metrics refresh failed", "err", err)
		}

		if updated.Status.IsTerminal() {
			p.Stop(s.providerCallID)
			return
		}
	}

	if attempts >= p.cfg.MaxAttempts {
		log.Warn("attempt budget exhausted, stopping poll", "status", status)
		p.Stop(s.providerCallID)
	}
}

// diff reports whether the vendor snapshot carries anything new relative to
// the stored call: a different status, or a newly present duration,
// transcript, or recording URL. A snapshot that merely repeats what is
// stored must not trigger a write.
func diff(call calls.Call, status calls.CallStatus, snap *VendorSnapshot) bool {
	if status != call.Status {
		return true
	}
	if snap.DurationSeconds != nil &&
		(call.DurationSeconds == nil || *call.DurationSeconds != *snap.DurationSeconds) {
		return true
	}
	if snap.Transcript != "" && snap.Transcript != call.Transcript {
		return true
	}
	if snap.RecordingURL != "" && snap.RecordingURL != call.RecordingURL {
		return true
	}
	return false
}
