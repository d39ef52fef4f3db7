package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/d60-Lab/power-monitor/config"
	"github.com/d60-Lab/power-monitor/internal/model"
)

// spEnergyAdapter SP Energy Networks（Opendatasoft，需 API key）。
// 该源只报邮编 sector 粒度（如 "CH7 6"），规范化阶段截断为 outward code
type spEnergyAdapter struct {
	cfg    config.ProviderConfig
	client *Client
}

func NewSPEnergy(cfg config.ProviderConfig, client *Client) Adapter {
	return &spEnergyAdapter{cfg: cfg, client: client}
}

func (a *spEnergyAdapter) Provider() model.SourceProvider { return model.ProviderSPEnergy }

type spEnergyRecord struct {
	Reference              string   `json:"reference"`
	Status                 string   `json:"status"`
	DateOfReportedFault    string   `json:"date_of_reported_fault"`
	PlannedOutageStartDate string   `json:"planned_outage_start_date"`
	PostcodeSector         []string `json:"postcode_sector"`
}

func (a *spEnergyAdapter) Fetch(ctx context.Context) ([]RawRecord, error) {
	raws, err := odsFetchAll(ctx, a.client, a.cfg.BaseURL, a.cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("sp energy: %w", err)
	}

	now := time.Now()
	records := make([]RawRecord, 0, len(raws))
	for _, raw := range raws {
		var r spEnergyRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("sp energy: %w: record decode: %v", ErrSourceUnavailable, err)
		}
		// 计划性停电优先用计划开始时间
		started := r.DateOfReportedFault
		if r.PlannedOutageStartDate != "" {
			started = r.PlannedOutageStartDate
		}
		records = append(records, RawRecord{
			Provider:  model.ProviderSPEnergy,
			NativeID:  r.Reference,
			Status:    r.Status,
			StartedAt: started,
			Postcodes: r.PostcodeSector,
			Extra:     map[string]any{"planned_outage_start_date": r.PlannedOutageStartDate},
			FetchedAt: now,
		})
	}
	return records, nil
}
