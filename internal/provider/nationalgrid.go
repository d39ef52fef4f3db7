package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/d60-Lab/power-monitor/config"
	"github.com/d60-Lab/power-monitor/internal/model"
)

const nationalGridResourceID = "292f788f-4339-455b-8cc0-153e14509d4d"

// nationalGridAdapter National Grid CKAN datastore_search 接口。
// 公开数据集，无需 API key；平均 170 条左右，单次 limit 请求即可覆盖
type nationalGridAdapter struct {
	cfg    config.ProviderConfig
	client *Client
	limit  int
}

func NewNationalGrid(cfg config.ProviderConfig, client *Client) Adapter {
	return &nationalGridAdapter{cfg: cfg, client: client, limit: 1000}
}

func (a *nationalGridAdapter) Provider() model.SourceProvider { return model.ProviderNationalGrid }

type nationalGridEnvelope struct {
	Success bool `json:"success"`
	Result  struct {
		Records []nationalGridRecord `json:"records"`
	} `json:"result"`
}

type nationalGridRecord struct {
	Reference string `json:"Reference"`
	Postcodes string `json:"Postcodes"`
	StartTime string `json:"Start Time"`
	ETR       string `json:"ETR"`
	Planned   *bool  `json:"Planned"`
	Status    string `json:"Status"`
	Region    string `json:"Region"`
}

func (a *nationalGridAdapter) Fetch(ctx context.Context) ([]RawRecord, error) {
	q := url.Values{}
	q.Set("resource_id", nationalGridResourceID)
	q.Set("limit", fmt.Sprintf("%d", a.limit))

	var env nationalGridEnvelope
	if err := a.client.getJSON(ctx, a.cfg.BaseURL+"?"+q.Encode(), nil, &env); err != nil {
		return nil, fmt.Errorf("national grid: %w", err)
	}
	if !env.Success {
		return nil, fmt.Errorf("national grid: %w: success=false envelope", ErrSourceUnavailable)
	}

	now := time.Now()
	records := make([]RawRecord, 0, len(env.Result.Records))
	for _, r := range env.Result.Records {
		status := r.Status
		if status == "" && r.Planned != nil {
			if *r.Planned {
				status = "planned"
			} else {
				status = "unplanned"
			}
		}
		records = append(records, RawRecord{
			Provider:  model.ProviderNationalGrid,
			NativeID:  strings.TrimSpace(r.Reference),
			Status:    status,
			StartedAt: r.StartTime,
			Postcodes: splitJoined(r.Postcodes, ","),
			Extra:     map[string]any{"etr": r.ETR, "region": r.Region},
			FetchedAt: now,
		})
	}
	return records, nil
}

// splitJoined 拆分上游用分隔符拼接的邮编串
func splitJoined(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
