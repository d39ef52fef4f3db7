package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/d60-Lab/power-monitor/internal/model"
)

// ErrSourceUnavailable 单个数据源抓取失败（网络 / 非 2xx / 解析失败），
// 只影响该数据源，不中断其他数据源的处理
var ErrSourceUnavailable = errors.New("source unavailable")

// RawRecord 上游原始停电记录。字段按原样透传，规范化交给 normalize 包
type RawRecord struct {
	Provider model.SourceProvider
	// NativeID 上游原生事件 id，可能为空（部分源不提供持久 id）
	NativeID string
	// Status 上游原始状态文本（各源词汇不同）
	Status string
	// StartedAt 上游原始起始时间文本
	StartedAt string
	// Postcodes 上游报告的邮编列表（未规范化）
	Postcodes []string
	// Extra 其余透传字段，规范化阶段可能丢弃
	Extra map[string]any
	// FetchedAt 本次抓取时间
	FetchedAt time.Time
}

// Adapter 数据源适配器。六家 DNO 各一个实现，各自封装请求结构、
// 鉴权、分页与字段名。无副作用：只发网络请求，不写存储
type Adapter interface {
	Provider() model.SourceProvider
	Fetch(ctx context.Context) ([]RawRecord, error)
}

// Client 各适配器共享的 HTTP 抓取设施（超时 + 限速）
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient rps<=0 时不限速
func NewClient(timeout time.Duration, rps float64) *Client {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

// getJSON 发起 GET 并解码 JSON；所有失败路径统一折叠为 ErrSourceUnavailable
func (c *Client) getJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate wait: %v", ErrSourceUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrSourceUnavailable, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 吃掉 body 便于连接复用
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrSourceUnavailable, err)
	}
	return nil
}
