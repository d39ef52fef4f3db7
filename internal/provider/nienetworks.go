package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/d60-Lab/power-monitor/config"
	"github.com/d60-Lab/power-monitor/internal/model"
)

// nieAdapter NIE Networks（北爱尔兰）PowerChecker 故障接口
type nieAdapter struct {
	cfg    config.ProviderConfig
	client *Client
}

func NewNIENetworks(cfg config.ProviderConfig, client *Client) Adapter {
	return &nieAdapter{cfg: cfg, client: client}
}

func (a *nieAdapter) Provider() model.SourceProvider { return model.ProviderNIENetworks }

type nieEnvelope struct {
	OutageMessage []nieFault `json:"outageMessage"`
}

type nieFault struct {
	OutageID      string `json:"outageId"`
	OutageType    string `json:"outageType"`
	StartTime     string `json:"startTime"`
	EstRestoreAt  string `json:"estimatedRestoreTime"`
	FullPostCodes string `json:"fullPostCodes"`
}

func (a *nieAdapter) Fetch(ctx context.Context) ([]RawRecord, error) {
	var env nieEnvelope
	if err := a.client.getJSON(ctx, a.cfg.BaseURL, nil, &env); err != nil {
		return nil, fmt.Errorf("nie networks: %w", err)
	}

	now := time.Now()
	records := make([]RawRecord, 0, len(env.OutageMessage))
	for _, f := range env.OutageMessage {
		records = append(records, RawRecord{
			Provider:  model.ProviderNIENetworks,
			NativeID:  f.OutageID,
			Status:    f.OutageType,
			StartedAt: f.StartTime,
			// fullPostCodes 以分号拼接
			Postcodes: splitJoined(f.FullPostCodes, ";"),
			Extra:     map[string]any{"estimated_restore_time": f.EstRestoreAt},
			FetchedAt: now,
		})
	}
	return records, nil
}
