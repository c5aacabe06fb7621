package types

import (
	"time"

	"gorm.io/datatypes"
)

// Node is a typed vertex inside an organization, identified by (id, org_id).
type Node struct {
	ID     string `gorm:"column:id;primaryKey;index:idx_nodes_org_id,priority:2" json:"id"`
	OrgID  string `gorm:"column:org_id;primaryKey;index;index:idx_nodes_org_id,priority:1;index:idx_nodes_org_type,priority:1" json:"org_id"`
	Type   string `gorm:"column:type;index;index:idx_nodes_org_type,priority:2" json:"type"`
	Properties datatypes.JSON `gorm:"column:properties;type:jsonb" json:"properties"`

	CreatedAt time.Time `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;index" json:"updated_at"`
	CreatedBy string    `gorm:"column:created_by;index" json:"created_by"`
	UpdatedBy string    `gorm:"column:updated_by;index" json:"updated_by"`
	UserAgent string    `gorm:"column:user_agent" json:"user_agent"`
	ClientIP  string    `gorm:"column:client_ip" json:"client_ip"`
}

func (Node) TableName() string { return "nodes" }
