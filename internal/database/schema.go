package database

import (
	"context"
	"fmt"

	"postboard/internal/models"

	"gorm.io/gorm"
)

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Order matters: referenced tables come before the tables pointing at them.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
	}
}

// ApplySchema creates or updates every table in PersistentModels.
func ApplySchema(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// TableStatus reports whether a managed table exists.
type TableStatus struct {
	Table  string
	Exists bool
}

// SchemaStatus lists every managed table and whether it is present.
func SchemaStatus(ctx context.Context, db *gorm.DB) ([]TableStatus, error) {
	migrator := db.WithContext(ctx).Migrator()
	statuses := make([]TableStatus, 0, len(PersistentModels()))
	for _, m := range PersistentModels() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return nil, fmt.Errorf("parse model %T: %w", m, err)
		}
		statuses = append(statuses, TableStatus{
			Table:  stmt.Schema.Table,
			Exists: migrator.HasTable(m),
		})
	}
	return statuses, nil
}
