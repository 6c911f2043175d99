package db

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: laugh_events with the (session_id, event_index)
		// uniqueness invariant and the leaderboard index.
		{
			ID: "001_laugh_events",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&LaughEvent{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("laugh_events")
			},
		},
	})

	return m.Migrate()
}
