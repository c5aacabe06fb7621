// Package db wires the durable store: Postgres via gorm, schema
// migration, and the required indexes spec §6.6 names.
package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ganesh47/cf-metadata-sys/internal/config"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/logger"
	"github.com/ganesh47/cf-metadata-sys/internal/types"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(cfg config.Config, log *logger.Logger) (*PostgresService, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB,
	)
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &PostgresService{db: gdb, log: log.With("service", "PostgresService")}, nil
}

func (p *PostgresService) DB() *gorm.DB { return p.db }

// AutoMigrateAll creates the nodes/edges tables and then re-creates, with
// IF NOT EXISTS, the composite indexes the gorm tags also declare. Only runs when
// INIT_DB is truthy; a long-lived deployment migrates out-of-band.
func (p *PostgresService) AutoMigrateAll() error {
	if err := p.db.AutoMigrate(&types.Node{}, &types.Edge{}); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}

	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_nodes_org_type ON nodes (org_id, type)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_org_from ON edges (org_id, from_node)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_org_to ON edges (org_id, to_node)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_org_reltype ON edges (org_id, relationship_type)`,
	}
	for _, stmt := range statements {
		if err := p.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	p.log.Info("durable store schema ready")
	return nil
}
