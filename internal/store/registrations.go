package store

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"travel_tax/internal/domain"

	"gorm.io/gorm"
)

// Registration bounds
const (
	MinTaxYear   = 2000
	MaxTaxYear   = 2100
	DefaultLimit = 100
	MaxLimit     = 1000
)

var citizenIDPattern = regexp.MustCompile(`^\d{13}$`)

// RegistrationInput carries the fields of a new registration
type RegistrationInput struct {
	FullName            string
	CitizenID           string
	TaxYear             int
	PrimaryProvinceID   uint
	SecondaryProvinceID *uint
	TravelStartDate     domain.Date
	TravelEndDate       domain.Date
	TaxReductionAmount  int64
	ReceiptURLs         []string
}

// RegistrationPatch carries optional registration changes
type RegistrationPatch struct {
	FullName            *string
	CitizenID           *string
	TaxYear             *int
	PrimaryProvinceID   *uint
	SecondaryProvinceID *uint
	ClearSecondary      bool // drop the secondary province; wins over SecondaryProvinceID
	TravelStartDate     *domain.Date
	TravelEndDate       *domain.Date
	TaxReductionAmount  *int64
	ReceiptURLs         *[]string
}

// RegistrationFilter narrows ListRegistrations
type RegistrationFilter struct {
	TaxYear *int  // equality match when set
	OwnerID *uint // restrict to one user when set
	Skip    int
	Limit   *int // DefaultLimit when nil; zero yields an empty page
}

// CreateRegistration validates and stores a registration for userID
func (s *Store) CreateRegistration(ctx context.Context, userID uint, in RegistrationInput) (*domain.Registration, error) {
	reg := domain.Registration{
		UserID:              userID,
		FullName:            in.FullName,
		CitizenID:           in.CitizenID,
		TaxYear:             in.TaxYear,
		PrimaryProvinceID:   in.PrimaryProvinceID,
		SecondaryProvinceID: in.SecondaryProvinceID,
		TravelStartDate:     in.TravelStartDate,
		TravelEndDate:       in.TravelEndDate,
		TaxReductionAmount:  in.TaxReductionAmount,
		ReceiptURLs:         in.ReceiptURLs,
	}
	if reg.ReceiptURLs == nil {
		reg.ReceiptURLs = []string{}
	}
	if err := ValidateRegistration(&reg); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&reg).Error; err != nil {
		return nil, fmt.Errorf("create registration: %w", err)
	}
	return &reg, nil
}

// GetRegistration fetches a registration; a non-nil owner hides other users' records
func (s *Store) GetRegistration(ctx context.Context, id uint, owner *uint) (*domain.Registration, error) {
	return findRegistration(s.db.WithContext(ctx), id, owner)
}

// UpdateRegistration applies only the supplied fields and re-validates
func (s *Store) UpdateRegistration(ctx context.Context, id uint, owner *uint, patch RegistrationPatch) (*domain.Registration, error) {
	var reg *domain.Registration
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if reg, err = findRegistration(tx, id, owner); err != nil {
			return err
		}
		patch.applyTo(reg)
		if err := ValidateRegistration(reg); err != nil {
			return err
		}
		return tx.Save(reg).Error // Save stamps updated_at
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// ListRegistrations returns one page of registrations
func (s *Store) ListRegistrations(ctx context.Context, f RegistrationFilter) ([]domain.Registration, error) {
	if f.Skip < 0 {
		return nil, domain.Validation("skip must not be negative")
	}
	if f.Limit != nil && *f.Limit < 0 {
		return nil, domain.Validation("limit must not be negative")
	}
	limit := DefaultLimit
	if f.Limit != nil {
		limit = *f.Limit
	}
	if limit == 0 {
		return []domain.Registration{}, nil
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	q := s.db.WithContext(ctx).Model(&domain.Registration{})
	if f.TaxYear != nil {
		q = q.Where("tax_year = ?", *f.TaxYear)
	}
	if f.OwnerID != nil {
		q = q.Where("user_id = ?", *f.OwnerID)
	}
	var regs []domain.Registration
	if err := q.Order("id").Offset(f.Skip).Limit(limit).Find(&regs).Error; err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

// DeleteRegistration removes a registration visible within owner
func (s *Store) DeleteRegistration(ctx context.Context, id uint, owner *uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reg, err := findRegistration(tx, id, owner)
		if err != nil {
			return err
		}
		return tx.Delete(reg).Error
	})
}

// ValidateRegistration checks the invariants every stored registration holds
func ValidateRegistration(r *domain.Registration) error {
	if r.TaxYear < MinTaxYear || r.TaxYear > MaxTaxYear {
		return domain.Validation("tax_year must be between %d and %d", MinTaxYear, MaxTaxYear)
	}
	if r.PrimaryProvinceID == 0 {
		return domain.Validation("primary_province_id must be positive")
	}
	if r.SecondaryProvinceID != nil && *r.SecondaryProvinceID == 0 {
		return domain.Validation("secondary_province_id must be positive")
	}
	if r.TaxReductionAmount < 0 {
		return domain.Validation("tax_reduction_amount must not be negative")
	}
	if r.TravelStartDate.IsZero() || r.TravelEndDate.IsZero() {
		return domain.Validation("travel_start_date and travel_end_date are required")
	}
	if r.TravelStartDate.After(r.TravelEndDate.Time) {
		return domain.Validation("travel_start_date must not be after travel_end_date")
	}
	if r.CitizenID != "" && !citizenIDPattern.MatchString(r.CitizenID) {
		return domain.Validation("citizen_id must be 13 digits")
	}
	for _, raw := range r.ReceiptURLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return domain.Validation("receipt_urls must be absolute http(s) URLs")
		}
	}
	return nil
}

func findRegistration(db *gorm.DB, id uint, owner *uint) (*domain.Registration, error) {
	q := db.Where("id = ?", id)
	if owner != nil {
		q = q.Where("user_id = ?", *owner)
	}
	var reg domain.Registration
	err := q.First(&reg).Error
	if isNotFound(err) {
		return nil, domain.NotFound("Registration not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return &reg, nil
}

func (p RegistrationPatch) applyTo(r *domain.Registration) {
	if p.FullName != nil {
		r.FullName = *p.FullName
	}
	if p.CitizenID != nil {
		r.CitizenID = *p.CitizenID
	}
	if p.TaxYear != nil {
		r.TaxYear = *p.TaxYear
	}
	if p.PrimaryProvinceID != nil {
		r.PrimaryProvinceID = *p.PrimaryProvinceID
	}
	if p.ClearSecondary {
		r.SecondaryProvinceID = nil
	} else if p.SecondaryProvinceID != nil {
		r.SecondaryProvinceID = p.SecondaryProvinceID
	}
	if p.TravelStartDate != nil {
		r.TravelStartDate = *p.TravelStartDate
	}
	if p.TravelEndDate != nil {
		r.TravelEndDate = *p.TravelEndDate
	}
	if p.TaxReductionAmount != nil {
		r.TaxReductionAmount = *p.TaxReductionAmount
	}
	if p.ReceiptURLs != nil {
		r.ReceiptURLs = *p.ReceiptURLs
		if r.ReceiptURLs == nil {
			r.ReceiptURLs = []string{}
		}
	}
}
