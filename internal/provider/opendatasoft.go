package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// Opendatasoft Explore v2.1 通用封装（SP Energy 与 UK Power Networks 共用）。
// 结果可能直接平铺在 results[]，也可能嵌套在 fields / record.fields 下

const odsPageSize = 100

type odsEnvelope struct {
	TotalCount int               `json:"total_count"`
	Results    []json.RawMessage `json:"results"`
}

type odsNested struct {
	Fields json.RawMessage `json:"fields"`
	Record *struct {
		Fields json.RawMessage `json:"fields"`
	} `json:"record"`
}

// odsUnwrap 取出单条记录的实际字段对象
func odsUnwrap(raw json.RawMessage) json.RawMessage {
	var n odsNested
	if err := json.Unmarshal(raw, &n); err == nil {
		if len(n.Fields) > 0 {
			return n.Fields
		}
		if n.Record != nil && len(n.Record.Fields) > 0 {
			return n.Record.Fields
		}
	}
	return raw
}

// odsFetchAll limit/offset 翻页直到短页
func odsFetchAll(ctx context.Context, client *Client, baseURL, apiKey string) ([]json.RawMessage, error) {
	headers := map[string]string{}
	if apiKey != "" {
		headers["Authorization"] = "Apikey " + apiKey
	}

	var all []json.RawMessage
	for offset := 0; ; offset += odsPageSize {
		q := url.Values{}
		q.Set("limit", fmt.Sprintf("%d", odsPageSize))
		q.Set("offset", fmt.Sprintf("%d", offset))
		q.Set("timezone", "Europe/London")

		var env odsEnvelope
		if err := client.getJSON(ctx, baseURL+"?"+q.Encode(), headers, &env); err != nil {
			return nil, err
		}
		for _, r := range env.Results {
			all = append(all, odsUnwrap(r))
		}
		if len(env.Results) < odsPageSize {
			return all, nil
		}
	}
}
