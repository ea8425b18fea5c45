package calls

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and early development.
// It enforces the same org isolation and terminal-latch rules as the
// Postgres store.
type MemoryStore struct {
	mu    sync.Mutex
	byID  map[string]Call // key: org_id|call_id
	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: map[string]Call{}, clock: time.Now}
}

// SetClock overrides the timestamp source for deterministic tests.
func (s *MemoryStore) SetClock(clock func() time.Time) { s.clock = clock }

func key(orgID, callID string) string { return orgID + "|" + callID }

func (s *MemoryStore) CreateCall(ctx context.Context, c Call) (Call, error) {
	if c.OrganizationID == "" || c.CallID == "" {
		return Call{}, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = CallStatusQueued
	}
	s.byID[key(c.OrganizationID, c.CallID)] = c
	return c, nil
}

func (s *MemoryStore) GetCall(ctx context.Context, orgID, callID string) (Call, error) {
	if orgID == "" || callID == "" {
		return Call{}, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[key(orgID, callID)]
	if !ok {
		return Call{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) GetCallByProviderID(ctx context.Context, orgID, providerCallID string) (Call, error) {
	if orgID == "" || providerCallID == "" {
		return Call{}, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.byID {
		if c.OrganizationID == orgID && c.ProviderCallID == providerCallID {
			return c, nil
		}
	}
	return Call{}, ErrNotFound
}

func (s *MemoryStore) UpdateCall(ctx context.Context, orgID, callID string, upd CallUpdate) (Call, error) {
	if orgID == "" || callID == "" {
		return Call{}, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[key(orgID, callID)]
	if !ok {
		return Call{}, ErrNotFound
	}

	if upd.Status != nil {
		// One-way latch: a terminal stored status is never downgraded.
		if !c.Status.IsTerminal() || upd.Status.IsTerminal() {
			c.Status = *upd.Status
		}
	}
	if upd.ProviderCallID != nil && c.ProviderCallID == "" {
		c.ProviderCallID = *upd.ProviderCallID
	}
	if upd.DurationSeconds != nil {
		v := *upd.DurationSeconds
		c.DurationSeconds = &v
	}
	if upd.Transcript != nil {
		c.Transcript = *upd.Transcript
	}
	if upd.RecordingURL != nil {
		c.RecordingURL = *upd.RecordingURL
	}
	if upd.StartedAt != nil && c.StartedAt == nil {
		v := *upd.StartedAt
		c.StartedAt = &v
	}
	if upd.EndedAt != nil && c.EndedAt == nil {
		v := *upd.EndedAt
		c.EndedAt = &v
	}
	c.UpdatedAt = s.clock().UTC()
	s.byID[key(orgID, callID)] = c
	return c, nil
}

func (s *MemoryStore) ListCalls(ctx context.Context, orgID string, f ListFilter) ([]Call, error) {
	if orgID == "" {
		return nil, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, 0)
	for _, c := range s.byID {
		if c.OrganizationID != orgID {
			continue
		}
		if f.CampaignID != "" && c.CampaignID != f.CampaignID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, c)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) DashboardMetrics(ctx context.Context, orgID string) (DashboardMetrics, error) {
	if orgID == "" {
		return DashboardMetrics{}, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := DashboardMetrics{OrganizationID: orgID}
	for _, c := range s.byID {
		if c.OrganizationID != orgID {
			continue
		}
		m.TotalCalls++
		if c.DurationSeconds != nil {
			m.TotalDurationSeconds += *c.DurationSeconds
		}
		switch c.Status {
		case CallStatusCompleted:
			m.CompletedCalls++
		case CallStatusFailed:
			m.FailedCalls++
		case CallStatusCancelled:
			m.CancelledCalls++
		default:
			m.ActiveCalls++
		}
	}
	if m.CompletedCalls > 0 {
		m.AverageDurationSeconds = m.TotalDurationSeconds / m.CompletedCalls
	}
	return m, nil
}
