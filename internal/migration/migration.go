package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/purchasing/internal/audit/domain"
	"github.com/smallbiznis/purchasing/internal/events"
	paymentdomain "github.com/smallbiznis/purchasing/internal/payment/domain"
	purchaseorderdomain "github.com/smallbiznis/purchasing/internal/purchaseorder/domain"
	reconciliationdomain "github.com/smallbiznis/purchasing/internal/reconciliation/domain"
	vendordomain "github.com/smallbiznis/purchasing/internal/supplier/domain"
	"gorm.io/gorm"
)

// RunMigrations applies the embedded postgres schema. Purchasing, payment,
// evidence, outbox and audit tables are created on startup.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Models lists every persisted model in dependency order.
func Models() []any {
	return []any{
		&vendordomain.Vendor{},
		&vendordomain.Contact{},
		&vendordomain.BankAccount{},
		&purchaseorderdomain.Order{},
		&purchaseorderdomain.Line{},
		&reconciliationdomain.Invoice{},
		&reconciliationdomain.JournalItem{},
		&reconciliationdomain.PartialReconcile{},
		&paymentdomain.Payment{},
		&paymentdomain.ReconciledInvoice{},
		&events.Record{},
		&auditdomain.AuditLog{},
	}
}

// AutoMigrate builds the schema from the gorm models. Used for mysql and
// sqlite where the embedded postgres DDL does not apply.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
