package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/bruadam/hvx-sub006/internal/domain"

	"go.uber.org/zap"
)

// SpatialEntityRepository 空间实体仓库（spatial_entities 表，引擎只读）
type SpatialEntityRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSpatialEntityRepository 创建空间实体仓库
func NewSpatialEntityRepository(db *sql.DB, logger *zap.Logger) *SpatialEntityRepository {
	return &SpatialEntityRepository{
		db:     db,
		logger: logger,
	}
}

// ListByPortfolio 加载组合下的全部空间实体（含组合根自身）
// parent_ids / child_ids / attributes 为 JSONB 列
func (r *SpatialEntityRepository) ListByPortfolio(portfolioID string) ([]*domain.SpatialEntity, error) {
	query := `
		SELECT
			entity_id,
			entity_name,
			entity_type,
			COALESCE(parent_ids, '[]'::jsonb),
			COALESCE(child_ids, '[]'::jsonb),
			COALESCE(attributes, '{}'::jsonb)
		FROM spatial_entities
		WHERE portfolio_id = $1
		ORDER BY entity_id
	`

	rows, err := r.db.Query(query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query spatial entities: %w", err)
	}
	defer rows.Close()

	var entities []*domain.SpatialEntity
	for rows.Next() {
		var e domain.SpatialEntity
		var parentsRaw, childrenRaw, attrsRaw []byte

		if err := rows.Scan(&e.ID, &e.Name, &e.Type, &parentsRaw, &childrenRaw, &attrsRaw); err != nil {
			return nil, fmt.Errorf("failed to scan spatial entity: %w", err)
		}
		if err := json.Unmarshal(parentsRaw, &e.ParentIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal parent_ids for %s: %w", e.ID, err)
		}
		if err := json.Unmarshal(childrenRaw, &e.ChildIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal child_ids for %s: %w", e.ID, err)
		}
		if err := json.Unmarshal(attrsRaw, &e.Attributes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attributes for %s: %w", e.ID, err)
		}
		entities = append(entities, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate spatial entities: %w", err)
	}

	r.logger.Debug("Loaded spatial entities",
		zap.String("portfolio_id", portfolioID),
		zap.Int("count", len(entities)),
	)
	return entities, nil
}

// LoadHierarchy 加载组合层级并完成 DAG 校验（无环、引用一致、拓扑序缓存）
func (r *SpatialEntityRepository) LoadHierarchy(portfolioID string) (*domain.Hierarchy, error) {
	entities, err := r.ListByPortfolio(portfolioID)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("portfolio not found: %s", portfolioID)
	}
	return domain.NewHierarchy(entities)
}
