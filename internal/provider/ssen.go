package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/d60-Lab/power-monitor/config"
	"github.com/d60-Lab/power-monitor/internal/model"
)

// ssenAdapter SSEN PowerTrack 实时故障接口
type ssenAdapter struct {
	cfg    config.ProviderConfig
	client *Client
}

func NewSSEN(cfg config.ProviderConfig, client *Client) Adapter {
	return &ssenAdapter{cfg: cfg, client: client}
}

func (a *ssenAdapter) Provider() model.SourceProvider { return model.ProviderSSEN }

type ssenEnvelope struct {
	Faults []ssenFault `json:"Faults"`
}

type ssenFault struct {
	Reference     string   `json:"reference"`
	Type          string   `json:"type"`
	LoggedAt      string   `json:"loggedAt"`
	AffectedAreas []string `json:"affectedAreas"`
}

func (a *ssenAdapter) Fetch(ctx context.Context) ([]RawRecord, error) {
	var env ssenEnvelope
	if err := a.client.getJSON(ctx, a.cfg.BaseURL, nil, &env); err != nil {
		return nil, fmt.Errorf("ssen: %w", err)
	}

	now := time.Now()
	records := make([]RawRecord, 0, len(env.Faults))
	for _, f := range env.Faults {
		records = append(records, RawRecord{
			Provider:  model.ProviderSSEN,
			NativeID:  f.Reference,
			Status:    f.Type,
			StartedAt: f.LoggedAt,
			Postcodes: f.AffectedAreas,
			FetchedAt: now,
		})
	}
	return records, nil
}
