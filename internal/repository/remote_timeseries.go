package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bruadam/hvx-sub006/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// remoteSeriesResponse 接入 API 的序列响应
type remoteSeriesResponse struct {
	Status int                 `json:"status"`
	Msg    string              `json:"msg"`
	Data   []domain.TimeSeries `json:"data"`
}

// RemoteSeriesClient 远程时序提供者（从数据接入 HTTP API 拉取物化序列）
// 实现 analysis.SeriesProvider
type RemoteSeriesClient struct {
	httpClient *resty.Client
	logger     *zap.Logger

	From time.Time
	To   time.Time
}

// NewRemoteSeriesClient 创建远程时序客户端
func NewRemoteSeriesClient(baseURL, apiKey string, from, to time.Time, logger *zap.Logger) *RemoteSeriesClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetHeader("Authorization", "Bearer "+apiKey)
	}

	return &RemoteSeriesClient{
		httpClient: client,
		logger:     logger,
		From:       from,
		To:         to,
	}
}

// SeriesForEntity 拉取实体在时间窗口内的全部序列
func (c *RemoteSeriesClient) SeriesForEntity(ctx context.Context, entityID string) ([]domain.TimeSeries, error) {
	var result remoteSeriesResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"entity_id": entityID,
			"from":      c.From.Format(time.RFC3339),
			"to":        c.To.Format(time.RFC3339),
		}).
		SetResult(&result).
		Get("/ingest/api/v1/timeseries")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch series for entity %s: %w", entityID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("series API returned %d for entity %s", resp.StatusCode(), entityID)
	}
	if result.Status != 0 {
		return nil, fmt.Errorf("series API error for entity %s: %s", entityID, result.Msg)
	}

	c.logger.Debug("Fetched remote series",
		zap.String("entity_id", entityID),
		zap.Int("series_count", len(result.Data)),
	)
	return result.Data, nil
}
