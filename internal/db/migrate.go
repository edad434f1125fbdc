/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"gorm.io/gorm"

	"github.com/friendsincode/mimir_hire/internal/models"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	return database.AutoMigrate(
		// Identity reference data (synced in by the identity collaborator)
		&models.Interviewer{},

		// Scheduling core
		&models.Booking{},

		// History
		&models.AuditLog{},
	)
}
