package reporting

import (
	"context"
	"time"

	"voicecampaign-platform/internal/calls"
)

// StoreRepo adapts the call store to the reporting Repository contract.
// The time-range filter is applied here; the store keeps its own listing
// surface minimal.
type StoreRepo struct {
	store calls.Store
}

func NewStoreRepo(store calls.Store) *StoreRepo { return &StoreRepo{store: store} }

func (r *StoreRepo) ListCalls(ctx context.Context, orgID string, from, to time.Time, campaignID string) ([]calls.Call, error) {
	rows, err := r.store.ListCalls(ctx, orgID, calls.ListFilter{CampaignID: campaignID, Limit: 500})
	if err != nil {
		return nil, err
	}
	out := make([]calls.Call, 0, len(rows))
	for _, c := range rows {
		if c.CreatedAt.Before(from) || !c.CreatedAt.Before(to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
