package domain

import "fmt"

// Hierarchy 空间层级（实体 arena，按 ID 索引）
// 加载时校验父子引用一致性和无环性，拓扑序只计算一次并缓存
type Hierarchy struct {
	entities map[string]*SpatialEntity
	order    []string // 输入顺序（保证拓扑序确定）
	topo     []string // 自底向上（子先于父）
	leaves   []string
	roots    []string
}

// NewHierarchy 从实体列表构建层级
// 校验：
// 1. ID 唯一
// 2. 父子引用互相一致且指向已知实体
// 3. 无环（任何实体不能经由子边回到自身）
func NewHierarchy(entities []*SpatialEntity) (*Hierarchy, error) {
	h := &Hierarchy{
		entities: make(map[string]*SpatialEntity, len(entities)),
	}

	for _, e := range entities {
		if e.ID == "" {
			return nil, NewValidationError("entity with empty id")
		}
		if _, ok := h.entities[e.ID]; ok {
			return nil, NewValidationError("duplicate entity id: %s", e.ID)
		}
		h.entities[e.ID] = e
		h.order = append(h.order, e.ID)
	}

	// 校验引用一致性
	for _, e := range h.entities {
		for _, childID := range e.ChildIDs {
			child, ok := h.entities[childID]
			if !ok {
				return nil, NewValidationError("entity %s references unknown child %s", e.ID, childID)
			}
			if !contains(child.ParentIDs, e.ID) {
				return nil, NewValidationError("entity %s lists child %s but the child does not reference it back", e.ID, childID)
			}
		}
		for _, parentID := range e.ParentIDs {
			parent, ok := h.entities[parentID]
			if !ok {
				return nil, NewValidationError("entity %s references unknown parent %s", e.ID, parentID)
			}
			if !contains(parent.ChildIDs, e.ID) {
				return nil, NewValidationError("entity %s lists parent %s but the parent does not reference it back", e.ID, parentID)
			}
		}
	}

	// Kahn 拓扑排序：从叶子（出度0）开始，保证子先于父
	// 按输入顺序遍历，保证同一输入产出同一拓扑序
	outDegree := make(map[string]int, len(h.entities))
	var queue []string
	for _, id := range h.order {
		e := h.entities[id]
		outDegree[id] = len(e.ChildIDs)
		if len(e.ChildIDs) == 0 {
			queue = append(queue, id)
			h.leaves = append(h.leaves, id)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		h.topo = append(h.topo, id)
		for _, parentID := range h.entities[id].ParentIDs {
			outDegree[parentID]--
			if outDegree[parentID] == 0 {
				queue = append(queue, parentID)
			}
		}
	}

	if len(h.topo) != len(h.entities) {
		return nil, NewValidationError("hierarchy contains a cycle (%d of %d entities ordered)", len(h.topo), len(h.entities))
	}

	for _, id := range h.order {
		if len(h.entities[id].ParentIDs) == 0 {
			h.roots = append(h.roots, id)
		}
	}

	return h, nil
}

// Entity 按 ID 查找实体
func (h *Hierarchy) Entity(id string) (*SpatialEntity, error) {
	e, ok := h.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity not found: %s", id)
	}
	return e, nil
}

// Children 返回子实体列表
func (h *Hierarchy) Children(id string) []*SpatialEntity {
	e, ok := h.entities[id]
	if !ok {
		return nil
	}
	children := make([]*SpatialEntity, 0, len(e.ChildIDs))
	for _, childID := range e.ChildIDs {
		children = append(children, h.entities[childID])
	}
	return children
}

// Leaves 返回所有叶子实体 ID
func (h *Hierarchy) Leaves() []string {
	return h.leaves
}

// Roots 返回所有根实体 ID
func (h *Hierarchy) Roots() []string {
	return h.roots
}

// TopologicalOrder 返回自底向上的实体 ID 序列（子先于父）
func (h *Hierarchy) TopologicalOrder() []string {
	return h.topo
}

// Size 实体总数
func (h *Hierarchy) Size() int {
	return len(h.entities)
}

func contains(list []string, target string) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}
	return false
}
