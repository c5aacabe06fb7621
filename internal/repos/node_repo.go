package repos

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ganesh47/cf-metadata-sys/internal/platform/logger"
	"github.com/ganesh47/cf-metadata-sys/internal/types"
)

type ListNodesFilter struct {
	Type      string
	CreatedBy string
	UpdatedBy string
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

type NodeRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, n *types.Node) error
	GetByID(ctx context.Context, tx *gorm.DB, orgID, id string) (*types.Node, error)
	List(ctx context.Context, tx *gorm.DB, orgID string, f ListNodesFilter) ([]types.Node, int64, error)
	Delete(ctx context.Context, tx *gorm.DB, orgID, id string) error
	DeleteIncidentEdges(ctx context.Context, tx *gorm.DB, orgID, nodeID string) (int64, error)
}

type nodeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNodeRepo(db *gorm.DB, baseLog *logger.Logger) NodeRepo {
	return &nodeRepo{db: db, log: baseLog.With("repo", "NodeRepo")}
}

func (r *nodeRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Upsert inserts n or, on (id, org_id) conflict, replaces every
// non-identity column except created_at/created_by — creation metadata is
// immutable once set.
func (r *nodeRepo) Upsert(ctx context.Context, tx *gorm.DB, n *types.Node) error {
	return r.tx(tx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}, {Name: "org_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"type", "properties", "updated_at", "updated_by", "user_agent", "client_ip",
		}),
	}).Create(n).Error
}

func (r *nodeRepo) GetByID(ctx context.Context, tx *gorm.DB, orgID, id string) (*types.Node, error) {
	var n types.Node
	err := r.tx(tx).WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&n).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

func (r *nodeRepo) List(ctx context.Context, tx *gorm.DB, orgID string, f ListNodesFilter) ([]types.Node, int64, error) {
	q := r.tx(tx).WithContext(ctx).Model(&types.Node{}).Where("org_id = ?", orgID)
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.CreatedBy != "" {
		q = q.Where("created_by = ?", f.CreatedBy)
	}
	if f.UpdatedBy != "" {
		q = q.Where("updated_by = ?", f.UpdatedBy)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := sanitizeSortColumn(f.SortBy)
	sortOrder := "DESC"
	if strings.EqualFold(f.SortOrder, "ASC") {
		sortOrder = "ASC"
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}

	var nodes []types.Node
	err := q.Order(sortBy + " " + sortOrder).
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&nodes).Error
	if err != nil {
		return nil, 0, err
	}
	return nodes, total, nil
}

func (r *nodeRepo) Delete(ctx context.Context, tx *gorm.DB, orgID, id string) error {
	return r.tx(tx).WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Delete(&types.Node{}).Error
}

func (r *nodeRepo) DeleteIncidentEdges(ctx context.Context, tx *gorm.DB, orgID, nodeID string) (int64, error) {
	res := r.tx(tx).WithContext(ctx).
		Where("org_id = ? AND (from_node = ? OR to_node = ?)", orgID, nodeID, nodeID).
		Delete(&types.Edge{})
	return res.RowsAffected, res.Error
}

// sanitizeSortColumn restricts sort_by to the audit/identity columns spec.md
// §4.3 allows, defaulting to created_at for anything else.
func sanitizeSortColumn(col string) string {
	switch col {
	case "id", "type", "created_at", "updated_at", "created_by", "updated_by":
		return col
	default:
		return "created_at"
	}
}
