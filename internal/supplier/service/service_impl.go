package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/purchasing/internal/clock"
	"github.com/smallbiznis/purchasing/internal/supplier/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultSearchLimit = 100
	maxSearchLimit     = 500
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("vendor.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateVendorRequest) (domain.Vendor, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Vendor{}, domain.ErrInvalidName
	}

	status := domain.Status(strings.TrimSpace(req.Status))
	if status == "" {
		status = domain.StatusActive
	}
	if !status.Valid() {
		return domain.Vendor{}, domain.ErrInvalidStatus
	}

	deliveryDays := domain.DefaultDeliveryDays
	if req.DeliveryDays != nil {
		if *req.DeliveryDays < 0 {
			return domain.Vendor{}, domain.ErrInvalidDelivery
		}
		deliveryDays = *req.DeliveryDays
	}

	now := s.clock.Now()
	vendor := domain.Vendor{
		ID:             s.genID.Generate(),
		Name:           name,
		TaxID:          strings.TrimSpace(req.TaxID),
		Email:          strings.TrimSpace(req.Email),
		Phone:          strings.TrimSpace(req.Phone),
		Mobile:         strings.TrimSpace(req.Mobile),
		IsMainSupplier: req.IsMainSupplier,
		DeliveryDays:   deliveryDays,
		Notes:          req.Notes,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, s.db, &vendor); err != nil {
		return domain.Vendor{}, err
	}
	return vendor, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Vendor, error) {
	vendor, err := s.load(ctx, id)
	if err != nil {
		return domain.Vendor{}, err
	}
	return *vendor, nil
}

func (s *Service) AddContact(ctx context.Context, req domain.AddContactRequest) (domain.Contact, error) {
	vendor, err := s.load(ctx, req.VendorID)
	if err != nil {
		return domain.Contact{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Contact{}, domain.ErrInvalidName
	}

	contact := domain.Contact{
		ID:          s.genID.Generate(),
		VendorID:    vendor.ID,
		Name:        name,
		JobFunction: strings.TrimSpace(req.JobFunction),
		Email:       strings.TrimSpace(req.Email),
		Phone:       strings.TrimSpace(req.Phone),
		Mobile:      strings.TrimSpace(req.Mobile),
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.InsertContact(ctx, s.db, &contact); err != nil {
		return domain.Contact{}, err
	}
	return contact, nil
}

func (s *Service) AddBankAccount(ctx context.Context, req domain.AddBankAccountRequest) (domain.BankAccount, error) {
	vendor, err := s.load(ctx, req.VendorID)
	if err != nil {
		return domain.BankAccount{}, err
	}

	var accountType *domain.AccountType
	if raw := strings.TrimSpace(req.AccountType); raw != "" {
		t := domain.AccountType(strings.ToLower(raw))
		if !t.Valid() {
			return domain.BankAccount{}, domain.ErrInvalidAccountType
		}
		accountType = &t
	}

	account := domain.BankAccount{
		ID:            s.genID.Generate(),
		VendorID:      vendor.ID,
		BankName:      strings.TrimSpace(req.BankName),
		AccountNumber: strings.TrimSpace(req.AccountNumber),
		CCINumber:     strings.TrimSpace(req.CCINumber),
		AccountType:   accountType,
		IsMain:        req.IsMain,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.repo.InsertBankAccount(ctx, s.db, &account); err != nil {
		return domain.BankAccount{}, err
	}
	return account, nil
}

// MainBankAccount renders the vendor's main account with "N/A" for every
// missing value, including vendors without accounts.
func (s *Service) MainBankAccount(ctx context.Context, vendorID string) (domain.BankInfo, error) {
	vendor, err := s.load(ctx, vendorID)
	if err != nil {
		return domain.BankInfo{}, err
	}
	accounts, err := s.repo.ListBankAccounts(ctx, s.db, vendor.ID)
	if err != nil {
		return domain.BankInfo{}, err
	}
	return domain.BankInfoFor(domain.SelectMainAccount(accounts), domain.NotAvailable), nil
}

func (s *Service) BankAccountDisplayNames(ctx context.Context, vendorID string) ([]string, error) {
	vendor, err := s.load(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	accounts, err := s.repo.ListBankAccounts(ctx, s.db, vendor.ID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(accounts))
	for _, account := range accounts {
		names = append(names, domain.DisplayName(account))
	}
	return names, nil
}

func (s *Service) PurchaseContact(ctx context.Context, vendorID string) (domain.ContactInfo, error) {
	vendor, err := s.load(ctx, vendorID)
	if err != nil {
		return domain.ContactInfo{}, err
	}
	contacts, err := s.repo.ListContacts(ctx, s.db, vendor.ID)
	if err != nil {
		return domain.ContactInfo{}, err
	}
	return domain.SelectPurchaseContact(*vendor, contacts), nil
}

// Search matches vendor names first and tops the result up with tax ID
// matches, skipping vendors already returned.
func (s *Service) Search(ctx context.Context, req domain.SearchRequest) ([]domain.Vendor, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	query := strings.TrimSpace(req.Query)

	result, err := s.repo.SearchByName(ctx, s.db, query, limit)
	if err != nil {
		return nil, err
	}
	if query == "" || len(result) >= limit {
		return result, nil
	}

	byTax, err := s.repo.SearchByTaxID(ctx, s.db, query, limit)
	if err != nil {
		return nil, err
	}

	seen := make(map[snowflake.ID]struct{}, len(result))
	for _, v := range result {
		seen[v.ID] = struct{}{}
	}
	for _, v := range byTax {
		if len(result) >= limit {
			break
		}
		if _, ok := seen[v.ID]; ok {
			continue
		}
		seen[v.ID] = struct{}{}
		result = append(result, v)
	}
	return result, nil
}

func (s *Service) load(ctx context.Context, id string) (*domain.Vendor, error) {
	vendorID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || vendorID == 0 {
		return nil, domain.ErrInvalidID
	}
	vendor, err := s.repo.FindByID(ctx, s.db, vendorID)
	if err != nil {
		return nil, err
	}
	if vendor == nil {
		return nil, domain.ErrNotFound
	}
	return vendor, nil
}
