package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ganesh47/cf-metadata-sys/internal/platform/logger"
	"github.com/ganesh47/cf-metadata-sys/internal/types"
)

type ListEdgesFilter struct {
	Type  string
	From  string
	To    string
	Limit int
}

type EdgeRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, e *types.Edge) error
	GetByID(ctx context.Context, tx *gorm.DB, orgID, id string) (*types.Edge, error)
	List(ctx context.Context, tx *gorm.DB, orgID string, f ListEdgesFilter) ([]types.Edge, error)
	Delete(ctx context.Context, tx *gorm.DB, orgID, id string) error
	ListByOrg(ctx context.Context, tx *gorm.DB, orgID string) ([]types.Edge, error)
	OutgoingFrom(ctx context.Context, tx *gorm.DB, orgID, nodeID string, relationshipTypes []string) ([]types.Edge, error)
}

type edgeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEdgeRepo(db *gorm.DB, baseLog *logger.Logger) EdgeRepo {
	return &edgeRepo{db: db, log: baseLog.With("repo", "EdgeRepo")}
}

func (r *edgeRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Upsert inserts e or, on (id, org_id) conflict, replaces every
// non-identity column except created_at/created_by/from_node/to_node.
func (r *edgeRepo) Upsert(ctx context.Context, tx *gorm.DB, e *types.Edge) error {
	return r.tx(tx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}, {Name: "org_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"relationship_type", "properties", "updated_at", "updated_by", "user_agent", "client_ip",
		}),
	}).Create(e).Error
}

func (r *edgeRepo) GetByID(ctx context.Context, tx *gorm.DB, orgID, id string) (*types.Edge, error) {
	var e types.Edge
	err := r.tx(tx).WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&e).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *edgeRepo) List(ctx context.Context, tx *gorm.DB, orgID string, f ListEdgesFilter) ([]types.Edge, error) {
	q := r.tx(tx).WithContext(ctx).Where("org_id = ?", orgID)
	if f.Type != "" {
		q = q.Where("relationship_type = ?", f.Type)
	}
	if f.From != "" {
		q = q.Where("from_node = ?", f.From)
	}
	if f.To != "" {
		q = q.Where("to_node = ?", f.To)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	var edges []types.Edge
	if err := q.Limit(limit).Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}

func (r *edgeRepo) Delete(ctx context.Context, tx *gorm.DB, orgID, id string) error {
	return r.tx(tx).WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Delete(&types.Edge{}).Error
}

func (r *edgeRepo) ListByOrg(ctx context.Context, tx *gorm.DB, orgID string) ([]types.Edge, error) {
	var edges []types.Edge
	err := r.tx(tx).WithContext(ctx).Where("org_id = ?", orgID).Find(&edges).Error
	return edges, err
}

// OutgoingFrom returns edges leaving nodeID within orgID, optionally
// restricted to relationshipTypes (an inclusion list; empty means all).
func (r *edgeRepo) OutgoingFrom(ctx context.Context, tx *gorm.DB, orgID, nodeID string, relationshipTypes []string) ([]types.Edge, error) {
	q := r.tx(tx).WithContext(ctx).Where("org_id = ? AND from_node = ?", orgID, nodeID)
	if len(relationshipTypes) > 0 {
		q = q.Where("relationship_type IN ?", relationshipTypes)
	}
	var edges []types.Edge
	if err := q.Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}
