package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"todo-tracker/internal/models"
)

// Migration is one schema evolution step. Up must be idempotent: it may run
// against a database that already has the change but no ledger entry.
type Migration struct {
	ID          string
	Description string
	Up          func(tx *gorm.DB) error
}

// SchemaMigration is a row of the ledger of applied steps.
type SchemaMigration struct {
	ID          string `gorm:"primaryKey;size:64"`
	Description string
	AppliedAt   time.Time
}

func (SchemaMigration) TableName() string {
	return "schema_migrations"
}

// todoV1 is the todos table as first shipped, before due dates existed.
type todoV1 struct {
	ID          int64   `gorm:"primaryKey;autoIncrement"`
	Title       string  `gorm:"type:text;not null"`
	Description *string `gorm:"type:text"`
	Completed   int     `gorm:"type:integer;default:0"`
	Priority    string  `gorm:"type:text;default:'medium'"`
	CreatedAt   string  `gorm:"type:text;not null"`
	UpdatedAt   string  `gorm:"type:text;not null"`
}

func (todoV1) TableName() string {
	return "todos"
}

// Migrations returns the ordered schema steps.
func Migrations() []Migration {
	return []Migration{
		{
			ID:          "0001_create_todos",
			Description: "create todos table",
			Up: func(tx *gorm.DB) error {
				if tx.Migrator().HasTable(&todoV1{}) {
					return nil
				}
				return tx.Migrator().CreateTable(&todoV1{})
			},
		},
		{
			ID:          "0002_add_todos_due_date",
			Description: "add nullable due_date to todos",
			Up: func(tx *gorm.DB) error {
				if tx.Migrator().HasColumn(&models.TodoRecord{}, "DueDate") {
					return nil
				}
				return tx.Migrator().AddColumn(&models.TodoRecord{}, "DueDate")
			},
		},
	}
}

// EnsureSchema applies every migration not yet recorded in the ledger. It is
// safe to call on every start.
func EnsureSchema(db *gorm.DB) error {
	return ApplyMigrations(db, Migrations())
}

func ApplyMigrations(db *gorm.DB, migrations []Migration) error {
	if db == nil {
		return errors.New("database not initialized")
	}

	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return fmt.Errorf("failed to prepare migration ledger: %w", err)
	}

	applied, err := AppliedMigrations(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.ID] {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{
				ID:          m.ID,
				Description: m.Description,
				AppliedAt:   time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return fmt.Errorf("migration %s failed: %w", m.ID, err)
		}
	}

	return nil
}

// AppliedMigrations returns the set of step IDs recorded in the ledger.
func AppliedMigrations(db *gorm.DB) (map[string]bool, error) {
	var rows []SchemaMigration
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read migration ledger: %w", err)
	}

	applied := make(map[string]bool, len(rows))
	for _, row := range rows {
		applied[row.ID] = true
	}
	return applied, nil
}
