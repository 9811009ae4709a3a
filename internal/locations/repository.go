package locations

import (
	"context"
	"errors"
	"fmt"

	"github.com/vqcheckout/wardrate/internal/cache"
	"github.com/vqcheckout/wardrate/internal/models"
	"gorm.io/gorm"
)

// ErrLocationNotFound indicates a lookup for an unknown administrative code.
var ErrLocationNotFound = errors.New("locations: location not found")

// Node is the wire shape of one hierarchy entry.
type Node struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	NameWithType string `json:"name_with_type"`
	ParentCode   string `json:"parent_code,omitempty"`
	Level        int    `json:"level"`
	Slug         string `json:"slug,omitempty"`
	Type         string `json:"type,omitempty"`
	Path         string `json:"path,omitempty"`
}

// Repository serves read-only hierarchy lookups. The data changes only
// on reseed, so every read is cached with the long TTL.
type Repository struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewRepository constructs a Repository.
func NewRepository(db *gorm.DB, c *cache.Cache) *Repository {
	return &Repository{db: db, cache: c}
}

// Provinces returns every level-1 location, ordered by name.
func (r *Repository) Provinces(ctx context.Context) ([]Node, error) {
	return r.children(ctx, "root", models.LevelProvince)
}

// Districts returns the level-2 children of a province, ordered by name.
func (r *Repository) Districts(ctx context.Context, provinceCode string) ([]Node, error) {
	return r.children(ctx, provinceCode, models.LevelDistrict)
}

// Wards returns the level-3 children of a district, ordered by name.
func (r *Repository) Wards(ctx context.Context, districtCode string) ([]Node, error) {
	return r.children(ctx, districtCode, models.LevelWard)
}

func (r *Repository) children(ctx context.Context, parentCode string, level int) ([]Node, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("locations: repository not initialized")
	}

	key := cache.LocationsByParent(parentCode, level)
	var nodes []Node
	if r.cache.GetJSON(ctx, key, &nodes) {
		return nodes, nil
	}

	query := r.db.WithContext(ctx).Where("level = ?", level)
	if level != models.LevelProvince {
		query = query.Where("parent_code = ?", parentCode)
	}

	var rows []models.Location
	if errFind := query.Order("name ASC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("locations: load level %d under %q: %w", level, parentCode, errFind)
	}

	nodes = make([]Node, 0, len(rows))
	for _, row := range rows {
		nodes = append(nodes, toNode(row))
	}

	r.cache.SetJSON(ctx, key, nodes, cache.TTLLong)
	return nodes, nil
}

// Get returns one location by code, or ErrLocationNotFound.
func (r *Repository) Get(ctx context.Context, code string) (Node, error) {
	if r == nil || r.db == nil {
		return Node{}, fmt.Errorf("locations: repository not initialized")
	}

	key := cache.LocationByCode(code)
	var node Node
	if r.cache.GetJSON(ctx, key, &node) {
		return node, nil
	}

	var row models.Location
	if errFind := r.db.WithContext(ctx).Where("code = ?", code).Take(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return Node{}, ErrLocationNotFound
		}
		return Node{}, fmt.Errorf("locations: load %q: %w", code, errFind)
	}

	node = toNode(row)
	r.cache.SetJSON(ctx, key, node, cache.TTLLong)
	return node, nil
}

func toNode(row models.Location) Node {
	node := Node{
		Code:         row.Code,
		Name:         row.Name,
		NameWithType: row.NameWithType,
		Level:        row.Level,
		Slug:         row.Slug,
		Type:         row.Type,
		Path:         row.Path,
	}
	if row.ParentCode != nil {
		node.ParentCode = *row.ParentCode
	}
	return node
}
