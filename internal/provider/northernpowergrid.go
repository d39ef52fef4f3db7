package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/d60-Lab/power-monitor/config"
	"github.com/d60-Lab/power-monitor/internal/model"
)

// npgAdapter Northern Powergrid 故障接口；响应为裸 JSON 数组
type npgAdapter struct {
	cfg    config.ProviderConfig
	client *Client
}

func NewNorthernPowergrid(cfg config.ProviderConfig, client *Client) Adapter {
	return &npgAdapter{cfg: cfg, client: client}
}

func (a *npgAdapter) Provider() model.SourceProvider { return model.ProviderNorthernPowergrid }

type npgFault struct {
	Reference      string `json:"Reference"`
	NatureOfOutage string `json:"NatureOfOutage"`
	LoggedTime     string `json:"LoggedTime"`
	Postcode       string `json:"Postcode"`
	Stage          string `json:"Stage"`
}

func (a *npgAdapter) Fetch(ctx context.Context) ([]RawRecord, error) {
	var faults []npgFault
	if err := a.client.getJSON(ctx, a.cfg.BaseURL, nil, &faults); err != nil {
		return nil, fmt.Errorf("northern powergrid: %w", err)
	}

	now := time.Now()
	records := make([]RawRecord, 0, len(faults))
	for _, f := range faults {
		status := f.NatureOfOutage
		if f.Stage != "" {
			status = f.Stage
		}
		records = append(records, RawRecord{
			Provider:  model.ProviderNorthernPowergrid,
			NativeID:  f.Reference,
			Status:    status,
			StartedAt: f.LoggedTime,
			Postcodes: splitJoined(f.Postcode, ","),
			Extra:     map[string]any{"nature_of_outage": f.NatureOfOutage},
			FetchedAt: now,
		})
	}
	return records, nil
}
