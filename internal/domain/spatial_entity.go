package domain

// EntityType 空间实体类型
type EntityType string

const (
	EntityPortfolio EntityType = "portfolio"
	EntityBuilding  EntityType = "building"
	EntityFloor     EntityType = "floor"
	EntityRoom      EntityType = "room"
	EntityZone      EntityType = "zone"
)

// EntityAttributes 空间实体上下文属性（用于规则适用性匹配和聚合权重）
type EntityAttributes struct {
	Country         string   `json:"country,omitempty"`
	Region          string   `json:"region,omitempty"`
	Continent       string   `json:"continent,omitempty"`
	ClimateZone     string   `json:"climate_zone,omitempty"`
	BuildingType    string   `json:"building_type,omitempty"`
	RoomType        string   `json:"room_type,omitempty"`
	VentilationType string   `json:"ventilation_type,omitempty"`
	AreaM2          *float64 `json:"area_m2,omitempty"`
	VolumeM3        *float64 `json:"volume_m3,omitempty"`
	DesignOccupancy *float64 `json:"design_occupancy,omitempty"`
}

// SpatialEntity 空间实体（对应 spatial_entities 表）
// 由数据接入层创建，引擎只读
type SpatialEntity struct {
	ID         string           `json:"entity_id" db:"entity_id"`
	Name       string           `json:"entity_name" db:"entity_name"`
	Type       EntityType       `json:"entity_type" db:"entity_type"`
	ParentIDs  []string         `json:"parent_ids" db:"parent_ids"` // JSONB
	ChildIDs   []string         `json:"child_ids" db:"child_ids"`   // JSONB
	Attributes EntityAttributes `json:"attributes" db:"attributes"` // JSONB
}

// IsLeaf 是否叶子实体（无子实体）
func (e *SpatialEntity) IsLeaf() bool {
	return len(e.ChildIDs) == 0
}

// Property 按属性名读取数值属性（用于聚合权重）
// 未知属性或属性缺失时返回 (0, false)
func (e *SpatialEntity) Property(name string) (float64, bool) {
	switch name {
	case "area_m2":
		if e.Attributes.AreaM2 != nil {
			return *e.Attributes.AreaM2, true
		}
	case "volume_m3":
		if e.Attributes.VolumeM3 != nil {
			return *e.Attributes.VolumeM3, true
		}
	case "design_occupancy":
		if e.Attributes.DesignOccupancy != nil {
			return *e.Attributes.DesignOccupancy, true
		}
	}
	return 0, false
}
