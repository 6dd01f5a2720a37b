package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bruadam/hvx-sub006/internal/domain"

	"go.uber.org/zap"
)

// TimeSeriesRepository 时序数据仓库（metering_points + ieq_timeseries 表，引擎只读）
type TimeSeriesRepository struct {
	db     *sql.DB
	logger *zap.Logger

	// 查询时间窗口（运行范围）
	From time.Time
	To   time.Time
}

// NewTimeSeriesRepository 创建时序数据仓库
func NewTimeSeriesRepository(db *sql.DB, from, to time.Time, logger *zap.Logger) *TimeSeriesRepository {
	return &TimeSeriesRepository{
		db:     db,
		logger: logger,
		From:   from,
		To:     to,
	}
}

// SeriesForEntity 加载实体全部计量点在时间窗口内的有序序列
// 实现 analysis.SeriesProvider
func (r *TimeSeriesRepository) SeriesForEntity(ctx context.Context, entityID string) ([]domain.TimeSeries, error) {
	points, err := r.meteringPoints(ctx, entityID)
	if err != nil {
		return nil, err
	}

	var series []domain.TimeSeries
	for _, mp := range points {
		s, err := r.seriesForPoint(ctx, mp)
		if err != nil {
			return nil, err
		}
		series = append(series, s)
	}

	r.logger.Debug("Loaded series for entity",
		zap.String("entity_id", entityID),
		zap.Int("series_count", len(series)),
	)
	return series, nil
}

// meteringPoints 查询实体的计量点
func (r *TimeSeriesRepository) meteringPoints(ctx context.Context, entityID string) ([]domain.MeteringPoint, error) {
	query := `
		SELECT metering_point_id, entity_id, metric, COALESCE(unit, '')
		FROM metering_points
		WHERE entity_id = $1
		ORDER BY metering_point_id
	`
	rows, err := r.db.QueryContext(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query metering points: %w", err)
	}
	defer rows.Close()

	var points []domain.MeteringPoint
	for rows.Next() {
		var mp domain.MeteringPoint
		if err := rows.Scan(&mp.ID, &mp.EntityID, &mp.Metric, &mp.Unit); err != nil {
			return nil, fmt.Errorf("failed to scan metering point: %w", err)
		}
		points = append(points, mp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate metering points: %w", err)
	}
	return points, nil
}

// seriesForPoint 查询单计量点的时序样本（缺失值保留为 NULL 样本）
func (r *TimeSeriesRepository) seriesForPoint(ctx context.Context, mp domain.MeteringPoint) (domain.TimeSeries, error) {
	query := `
		SELECT timestamp, value
		FROM ieq_timeseries
		WHERE metering_point_id = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp
	`
	rows, err := r.db.QueryContext(ctx, query, mp.ID, r.From, r.To)
	if err != nil {
		return domain.TimeSeries{}, fmt.Errorf("failed to query timeseries: %w", err)
	}
	defer rows.Close()

	series := domain.TimeSeries{
		MeteringPointID: mp.ID,
		EntityID:        mp.EntityID,
		Metric:          mp.Metric,
		Unit:            mp.Unit,
	}
	for rows.Next() {
		var ts time.Time
		var value sql.NullFloat64
		if err := rows.Scan(&ts, &value); err != nil {
			return domain.TimeSeries{}, fmt.Errorf("failed to scan sample: %w", err)
		}
		sample := domain.Sample{Timestamp: ts}
		if value.Valid {
			sample.Value = domain.Float(value.Float64)
		}
		series.Samples = append(series.Samples, sample)
	}
	if err := rows.Err(); err != nil {
		return domain.TimeSeries{}, fmt.Errorf("failed to iterate samples: %w", err)
	}
	return series, nil
}
