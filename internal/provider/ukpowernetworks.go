package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/d60-Lab/power-monitor/config"
	"github.com/d60-Lab/power-monitor/internal/model"
)

// ukpnAdapter UK Power Networks（Opendatasoft，API key 可选）
type ukpnAdapter struct {
	cfg    config.ProviderConfig
	client *Client
}

func NewUKPowerNetworks(cfg config.ProviderConfig, client *Client) Adapter {
	return &ukpnAdapter{cfg: cfg, client: client}
}

func (a *ukpnAdapter) Provider() model.SourceProvider { return model.ProviderUKPowerNetworks }

type ukpnRecord struct {
	IncidentReference string `json:"incidentreference"`
	PowerCutType      string `json:"powercuttype"`
	CreationDateTime  string `json:"creationdatetime"`
	PostcodesAffected string `json:"postcodesaffected"`
	EstimatedRestore  string `json:"estimatedrestorationdate"`
}

func (a *ukpnAdapter) Fetch(ctx context.Context) ([]RawRecord, error) {
	raws, err := odsFetchAll(ctx, a.client, a.cfg.BaseURL, a.cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("uk power networks: %w", err)
	}

	now := time.Now()
	records := make([]RawRecord, 0, len(raws))
	for _, raw := range raws {
		var r ukpnRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("uk power networks: %w: record decode: %v", ErrSourceUnavailable, err)
		}
		records = append(records, RawRecord{
			Provider:  model.ProviderUKPowerNetworks,
			NativeID:  r.IncidentReference,
			Status:    r.PowerCutType,
			StartedAt: r.CreationDateTime,
			Postcodes: splitJoined(r.PostcodesAffected, ","),
			Extra:     map[string]any{"estimated_restoration_date": r.EstimatedRestore},
			FetchedAt: now,
		})
	}
	return records, nil
}
