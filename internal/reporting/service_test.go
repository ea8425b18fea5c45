package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"voicecampaign-platform/internal/calls"
)

func intPtr(n int) *int { return &n }

func seedStore(t *testing.T) *calls.MemoryStore {
	t.Helper()
	store := calls.NewMemoryStore()
	base := time.Unix(1700000000, 0).UTC()
	rows := []calls.Call{
		{CallID: "c1", OrganizationID: "org-a", CampaignID: "camp-1", Status: calls.CallStatusCompleted, DurationSeconds: intPtr(60), RecordingURL: "https://cdn.example.com/1.mp3", Transcript: "hi", CreatedAt: base},
		{CallID: "c2", OrganizationID: "org-a", CampaignID: "camp-1", Status: calls.CallStatusFailed, CreatedAt: base.Add(time.Minute)},
		{CallID: "c3", OrganizationID: "org-a", CampaignID: "camp-2", Status: calls.CallStatusCompleted, DurationSeconds: intPtr(120), CreatedAt: base.Add(2 * time.Minute)},
		{CallID: "c4", OrganizationID: "org-a", Status: calls.CallStatusInProgress, CreatedAt: base.Add(2 * time.Hour)},
		{CallID: "c5", OrganizationID: "org-b", Status: calls.CallStatusCompleted, DurationSeconds: intPtr(999), CreatedAt: base},
	}
	for _, c := range rows {
		if _, err := store.CreateCall(context.Background(), c); err != nil {
			t.Fatalf("seed %s: %v", c.CallID, err)
		}
	}
	return store
}

func TestCallsSummary(t *testing.T) {
	svc := NewService(NewStoreRepo(seedStore(t)))
	base := time.Unix(1700000000, 0).UTC()

	out, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{
		OrganizationID: "org-a",
		Range:          TimeRange{From: base, To: base.Add(time.Hour)},
	})
	if err != nil {
		t.Fatalf("CallsSummary: %v", err)
	}
	// c4 is outside the window, c5 belongs to another org.
	if out.TotalCalls != 3 {
		t.Fatalf("TotalCalls = %d, want 3", out.TotalCalls)
	}
	if out.CompletedCalls != 2 || out.FailedCalls != 1 {
		t.Fatalf("status counts wrong: %+v", out)
	}
	if out.TotalDurationSeconds != 180 || out.AverageDurationSeconds != 60 {
		t.Fatalf("duration aggregates wrong: %+v", out)
	}
	if out.RecordedCalls != 1 || out.TranscribedCalls != 1 {
		t.Fatalf("artifact counts wrong: %+v", out)
	}
}

func TestCallsSummary_CampaignFilter(t *testing.T) {
	svc := NewService(NewStoreRepo(seedStore(t)))
	base := time.Unix(1700000000, 0).UTC()

	out, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{
		OrganizationID: "org-a",
		Range:          TimeRange{From: base, To: base.Add(time.Hour)},
		CampaignID:     "camp-1",
	})
	if err != nil {
		t.Fatalf("CallsSummary: %v", err)
	}
	if out.TotalCalls != 2 || out.CompletedCalls != 1 || out.FailedCalls != 1 {
		t.Fatalf("campaign filter wrong: %+v", out)
	}
}

func TestCallsSummary_Validation(t *testing.T) {
	svc := NewService(NewStoreRepo(calls.NewMemoryStore()))
	base := time.Unix(1700000000, 0).UTC()

	if _, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{Range: TimeRange{From: base, To: base.Add(time.Hour)}}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("missing org: got %v", err)
	}
	if _, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{OrganizationID: "org-a"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("missing range: got %v", err)
	}
	if _, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{OrganizationID: "org-a", Range: TimeRange{From: base.Add(time.Hour), To: base}}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("inverted range: got %v", err)
	}
}

func TestCampaignMetrics(t *testing.T) {
	svc := NewService(NewStoreRepo(seedStore(t)))
	base := time.Unix(1700000000, 0).UTC()

	out, err := svc.CampaignMetrics(context.Background(), CampaignMetricsRequest{
		OrganizationID: "org-a",
		CampaignID:     "camp-1",
		Range:          TimeRange{From: base, To: base.Add(time.Hour)},
	})
	if err != nil {
		t.Fatalf("CampaignMetrics: %v", err)
	}
	if out.CallsAttempted != 2 || out.CallsConnected != 1 {
		t.Fatalf("connect counts wrong: %+v", out)
	}
	if out.ConnectionRate != 0.5 {
		t.Fatalf("ConnectionRate = %v, want 0.5", out.ConnectionRate)
	}
}

func TestCampaignMetrics_RequiresCampaign(t *testing.T) {
	svc := NewService(NewStoreRepo(calls.NewMemoryStore()))
	base := time.Unix(1700000000, 0).UTC()
	if _, err := svc.CampaignMetrics(context.Background(), CampaignMetricsRequest{
		OrganizationID: "org-a",
		Range:          TimeRange{From: base, To: base.Add(time.Hour)},
	}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("missing campaign: got %v", err)
	}
}
