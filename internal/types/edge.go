package types

import (
	"time"

	"gorm.io/datatypes"
)

// Edge is a directed, typed relationship between two nodes of the same
// organization, identified by (id, org_id).
type Edge struct {
	ID    string `gorm:"column:id;primaryKey;index:idx_edges_org_id,priority:2" json:"id"`
	OrgID string `gorm:"column:org_id;primaryKey;index;index:idx_edges_org_id,priority:1;index:idx_edges_org_from,priority:1;index:idx_edges_org_to,priority:1;index:idx_edges_org_reltype,priority:1" json:"org_id"`

	FromNode         string         `gorm:"column:from_node;index;index:idx_edges_org_from,priority:2" json:"from_node"`
	ToNode           string         `gorm:"column:to_node;index;index:idx_edges_org_to,priority:2" json:"to_node"`
	RelationshipType string         `gorm:"column:relationship_type;index;index:idx_edges_org_reltype,priority:2" json:"relationship_type"`
	Properties       datatypes.JSON `gorm:"column:properties;type:jsonb" json:"properties"`

	CreatedAt time.Time `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;index" json:"updated_at"`
	CreatedBy string    `gorm:"column:created_by;index" json:"created_by"`
	UpdatedBy string    `gorm:"column:updated_by;index" json:"updated_by"`
	UserAgent string    `gorm:"column:user_agent" json:"user_agent"`
	ClientIP  string    `gorm:"column:client_ip" json:"client_ip"`
}

func (Edge) TableName() string { return "edges" }
