package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/purchasing/internal/supplier/domain"
	pkgdb "github.com/smallbiznis/purchasing/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, vendor *domain.Vendor) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO vendors (id, name, tax_id, email, phone, mobile, is_main_supplier, delivery_days, notes, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		vendor.ID,
		vendor.Name,
		vendor.TaxID,
		vendor.Email,
		vendor.Phone,
		vendor.Mobile,
		vendor.IsMainSupplier,
		vendor.DeliveryDays,
		vendor.Notes,
		vendor.Status,
		vendor.CreatedAt,
		vendor.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Vendor, error) {
	var vendor domain.Vendor
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, tax_id, email, phone, mobile, is_main_supplier, delivery_days, notes, status, created_at, updated_at
		 FROM vendors WHERE id = ?`,
		id,
	).Scan(&vendor).Error
	if err != nil {
		return nil, err
	}
	if vendor.ID == 0 {
		return nil, nil
	}
	return &vendor, nil
}

func (r *repo) SearchByName(ctx context.Context, db *gorm.DB, query string, limit int) ([]domain.Vendor, error) {
	return r.search(ctx, db, "name", query, limit)
}

func (r *repo) SearchByTaxID(ctx context.Context, db *gorm.DB, query string, limit int) ([]domain.Vendor, error) {
	return r.search(ctx, db, "tax_id", query, limit)
}

func (r *repo) search(ctx context.Context, db *gorm.DB, column, query string, limit int) ([]domain.Vendor, error) {
	var vendors []domain.Vendor
	err := db.WithContext(ctx).
		Model(&domain.Vendor{}).
		Where("LOWER("+column+") LIKE ? ESCAPE '"+pkgdb.LikeEscape+"'", pkgdb.ContainsPattern(query)).
		Order("name asc, id asc").
		Limit(limit).
		Find(&vendors).Error
	if err != nil {
		return nil, err
	}
	return vendors, nil
}

func (r *repo) InsertContact(ctx context.Context, db *gorm.DB, contact *domain.Contact) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO vendor_contacts (id, vendor_id, name, job_function, email, phone, mobile, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		contact.ID,
		contact.VendorID,
		contact.Name,
		contact.JobFunction,
		contact.Email,
		contact.Phone,
		contact.Mobile,
		contact.CreatedAt,
	).Error
}

func (r *repo) ListContacts(ctx context.Context, db *gorm.DB, vendorID snowflake.ID) ([]domain.Contact, error) {
	var contacts []domain.Contact
	err := db.WithContext(ctx).Raw(
		`SELECT id, vendor_id, name, job_function, email, phone, mobile, created_at
		 FROM vendor_contacts WHERE vendor_id = ?
		 ORDER BY created_at ASC, id ASC`,
		vendorID,
	).Scan(&contacts).Error
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *repo) InsertBankAccount(ctx context.Context, db *gorm.DB, account *domain.BankAccount) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO vendor_bank_accounts (id, vendor_id, bank_name, account_number, cci_number, account_type, is_main, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.VendorID,
		account.BankName,
		account.AccountNumber,
		account.CCINumber,
		account.AccountType,
		account.IsMain,
		account.CreatedAt,
	).Error
}

func (r *repo) ListBankAccounts(ctx context.Context, db *gorm.DB, vendorID snowflake.ID) ([]domain.BankAccount, error) {
	var accounts []domain.BankAccount
	err := db.WithContext(ctx).Raw(
		`SELECT id, vendor_id, bank_name, account_number, cci_number, account_type, is_main, created_at
		 FROM vendor_bank_accounts WHERE vendor_id = ?
		 ORDER BY created_at ASC, id ASC`,
		vendorID,
	).Scan(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}
