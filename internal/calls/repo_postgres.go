package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresStore persists Call records in Postgres via database/sql (pgx
// stdlib driver).
//
// Assumed table:
//
//	calls (
//	  call_id TEXT, organization_id TEXT, campaign_id TEXT, lead_id TEXT,
//	  provider_call_id TEXT, from_number TEXT, to_number TEXT, status TEXT,
//	  duration INT NULL, transcript TEXT NULL, recording_url TEXT NULL,
//	  created_at TIMESTAMPTZ, started_at TIMESTAMPTZ NULL,
//	  ended_at TIMESTAMPTZ NULL, updated_at TIMESTAMPTZ,
//	  PRIMARY KEY (organization_id, call_id)
//	)
//
// plus a UNIQUE (organization_id, provider_call_id) partial index for the
// webhook join path.
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

const callColumns = `
call_id, organization_id, campaign_id, lead_id, provider_call_id,
from_number, to_number, status, duration, transcript, recording_url,
created_at, started_at, ended_at, updated_at
`

func scanCall(row *sql.Row) (Call, error) {
	var c Call
	var campaignID, leadID, providerCallID, transcript, recordingURL sql.NullString
	var duration sql.NullInt64
	var startedAt, endedAt sql.NullTime
	err := row.Scan(
		&c.CallID,
		&c.OrganizationID,
		&campaignID,
		&leadID,
		&providerCallID,
		&c.From,
		&c.To,
		&c.Status,
		&duration,
		&transcript,
		&recordingURL,
		&c.CreatedAt,
		&startedAt,
		&endedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, err
	}
	c.CampaignID = campaignID.String
	c.LeadID = leadID.String
	c.ProviderCallID = providerCallID.String
	c.Transcript = transcript.String
	c.RecordingURL = recordingURL.String
	if duration.Valid {
		v := int(duration.Int64)
		c.DurationSeconds = &v
	}
	if startedAt.Valid {
		t := startedAt.Time
		c.StartedAt = &t
	}
	if endedAt.Valid {
		t := endedAt.Time
		c.EndedAt = &t
	}
	return c, nil
}

func (s *PostgresStore) CreateCall(ctx context.Context, c Call) (Call, error) {
	if c.OrganizationID == "" || c.CallID == "" {
		return Call{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.Status == "" {
		c.Status = CallStatusQueued
	}
	const q = `
INSERT INTO calls (` + callColumns + `)
VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),NULLIF($5,''),$6,$7,$8,$9,NULLIF($10,''),NULLIF($11,''),$12,$13,$14,$15)
RETURNING ` + callColumns
	row := s.db.QueryRowContext(ctx, q,
		c.CallID,
		c.OrganizationID,
		c.CampaignID,
		c.LeadID,
		c.ProviderCallID,
		c.From,
		c.To,
		c.Status,
		c.DurationSeconds,
		c.Transcript,
		c.RecordingURL,
		c.CreatedAt,
		c.StartedAt,
		c.EndedAt,
		now,
	)
	return scanCall(row)
}

func (s *PostgresStore) GetCall(ctx context.Context, orgID, callID string) (Call, error) {
	if orgID == "" || callID == "" {
		return Call{}, ErrInvalidArgument
	}
	const q = `
SELECT ` + callColumns + `
FROM calls
WHERE organization_id = $1 AND call_id = $2
`
	return scanCall(s.db.QueryRowContext(ctx, q, orgID, callID))
}

func (s *PostgresStore) GetCallByProviderID(ctx context.Context, orgID, providerCallID string) (Call, error) {
	if orgID == "" || providerCallID == "" {
		return Call{}, ErrInvalidArgument
	}
	const q = `
SELECT ` + callColumns + `
FROM calls
WHERE organization_id = $1 AND provider_call_id = $2
`
	return scanCall(s.db.QueryRowContext(ctx, q, orgID, providerCallID))
}

// UpdateCall applies a partial update. The status latch is encoded in SQL so
// the check and the write happen in one statement: a non-terminal status in
// the update never overwrites a stored terminal status, whichever writer
// (webhook or poller) gets there first.
func (s *PostgresStore) UpdateCall(ctx context.Context, orgID, callID string, upd CallUpdate) (Call, error) {
	if orgID == "" || callID == "" {
		return Call{}, ErrInvalidArgument
	}
	var status *string
	if upd.Status != nil {
		v := string(*upd.Status)
		status = &v
	}
	const q = `
UPDATE calls SET
  status = CASE
    WHEN $3::text IS NULL THEN status
    WHEN status IN ('completed','failed','cancelled')
         AND $3::text NOT IN ('completed','failed','cancelled') THEN status
    ELSE $3::text
  END,
  provider_call_id = COALESCE(provider_call_id, $4::text),
  duration         = COALESCE($5::int, duration),
  transcript       = COALESCE($6::text, transcript),
  recording_url    = COALESCE($7::text, recording_url),
  started_at       = COALESCE(started_at, $8::timestamptz),
  ended_at         = COALESCE(ended_at, $9::timestamptz),
  updated_at       = $10
WHERE organization_id = $1 AND call_id = $2
RETURNING ` + callColumns
	row := s.db.QueryRowContext(ctx, q,
		orgID,
		callID,
		status,
		upd.ProviderCallID,
		upd.DurationSeconds,
		upd.Transcript,
		upd.RecordingURL,
		upd.StartedAt,
		upd.EndedAt,
		s.clock().UTC(),
	)
	return scanCall(row)
}

func (s *PostgresStore) ListCalls(ctx context.Context, orgID string, f ListFilter) ([]Call, error) {
	if orgID == "" {
		return nil, ErrInvalidArgument
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const q = `
SELECT ` + callColumns + `
FROM calls
WHERE organization_id = $1
  AND ($2::text IS NULL OR campaign_id = $2)
  AND ($3::text IS NULL OR status = $3)
ORDER BY created_at DESC
LIMIT $4
`
	var campaignID, status *string
	if f.CampaignID != "" {
		campaignID = &f.CampaignID
	}
	if f.Status != "" {
		v := string(f.Status)
		status = &v
	}
	rows, err := s.db.QueryContext(ctx, q, orgID, campaignID, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Call, 0)
	for rows.Next() {
		var c Call
		var cID, lID, pID, tr, rec sql.NullString
		var dur sql.NullInt64
		var startedAt, endedAt sql.NullTime
		if err := rows.Scan(
			&c.CallID, &c.OrganizationID, &cID, &lID, &pID,
			&c.From, &c.To, &c.Status, &dur, &tr, &rec,
			&c.CreatedAt, &startedAt, &endedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		c.CampaignID, c.LeadID, c.ProviderCallID = cID.String, lID.String, pID.String
		c.Transcript, c.RecordingURL = tr.String, rec.String
		if dur.Valid {
			v := int(dur.Int64)
			c.DurationSeconds = &v
		}
		if startedAt.Valid {
			t := startedAt.Time
			c.StartedAt = &t
		}
		if endedAt.Valid {
			t := endedAt.Time
			c.EndedAt = &t
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DashboardMetrics(ctx context.Context, orgID string) (DashboardMetrics, error) {
	if orgID == "" {
		return DashboardMetrics{}, ErrInvalidArgument
	}
	const q = `
SELECT
  COUNT(*),
  COUNT(*) FILTER (WHERE status NOT IN ('completed','failed','cancelled')),
  COUNT(*) FILTER (WHERE status = 'completed'),
  COUNT(*) FILTER (WHERE status = 'failed'),
  COUNT(*) FILTER (WHERE status = 'cancelled'),
  COALESCE(SUM(duration), 0)
FROM calls
WHERE organization_id = $1
`
	m := DashboardMetrics{OrganizationID: orgID}
	if err := s.db.QueryRowContext(ctx, q, orgID).Scan(
		&m.TotalCalls,
		&m.ActiveCalls,
		&m.CompletedCalls,
		&m.FailedCalls,
		&m.CancelledCalls,
		&m.TotalDurationSeconds,
	); err != nil {
		return DashboardMetrics{}, err
	}
	if m.CompletedCalls > 0 {
		m.AverageDurationSeconds = m.TotalDurationSeconds / m.CompletedCalls
	}
	return m, nil
}
