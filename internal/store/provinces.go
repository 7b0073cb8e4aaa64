package store

import (
	"context"
	"fmt"
	"strings"
	"travel_tax/internal/domain"

	"gorm.io/gorm"
)

// ProvinceInput describes a province to create
type ProvinceInput struct {
	Name         string
	Category     domain.Category
	DiscountRate *float64 // honoured for target provinces only
}

// ProvincePatch carries optional province changes
type ProvincePatch struct {
	Name         *string
	Category     *domain.Category
	DiscountRate *float64
}

// CreateProvinces inserts all inputs in one transaction
func (s *Store) CreateProvinces(ctx context.Context, inputs []ProvinceInput) ([]domain.Province, error) {
	created := make([]domain.Province, 0, len(inputs))
	for _, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, domain.Validation("name is required")
		}
		if err := validateRate(in.DiscountRate); err != nil {
			return nil, err
		}
		p := domain.Province{Name: name, Category: in.Category}
		p.Apply(domain.Derive(in.Category, in.DiscountRate))
		created = append(created, p)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range created {
			if err := tx.Create(&created[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create provinces: %w", err)
	}
	return created, nil
}

// ListProvinces returns every province ordered by id
func (s *Store) ListProvinces(ctx context.Context) ([]domain.Province, error) {
	return s.ProvincesByCategory(ctx, nil)
}

// ProvincesByCategory filters provinces by category when one is given
func (s *Store) ProvincesByCategory(ctx context.Context, category *domain.Category) ([]domain.Province, error) {
	q := s.db.WithContext(ctx).Order("id")
	if category != nil {
		q = q.Where("category = ?", *category)
	}
	var provinces []domain.Province
	if err := q.Find(&provinces).Error; err != nil {
		return nil, fmt.Errorf("list provinces: %w", err)
	}
	return provinces, nil
}

// GetProvince fetches a province by id
func (s *Store) GetProvince(ctx context.Context, id uint) (*domain.Province, error) {
	var p domain.Province
	err := s.db.WithContext(ctx).First(&p, id).Error
	if isNotFound(err) {
		return nil, domain.NotFound("Province not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get province: %w", err)
	}
	return &p, nil
}

// UpdateProvince applies the patch and re-derives rate and flags from the
// resulting category. A target province keeps its stored rate unless a new
// one is supplied.
func (s *Store) UpdateProvince(ctx context.Context, id uint, patch ProvincePatch) (*domain.Province, error) {
	if err := validateRate(patch.DiscountRate); err != nil {
		return nil, err
	}
	var p domain.Province
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			if isNotFound(err) {
				return domain.NotFound("Province not found")
			}
			return err
		}
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return domain.Validation("name must not be empty")
			}
			p.Name = name
		}
		wasTarget := p.IsTarget
		if patch.Category != nil {
			p.Category = *patch.Category
		}
		rate := patch.DiscountRate
		if rate == nil && wasTarget {
			kept := p.DiscountRate
			rate = &kept
		}
		p.Apply(domain.Derive(p.Category, rate))
		return tx.Save(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProvince removes a province that no selection references
func (s *Store) DeleteProvince(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p domain.Province
		if err := tx.First(&p, id).Error; err != nil {
			if isNotFound(err) {
				return domain.NotFound("Province not found")
			}
			return err
		}
		var refs int64
		if err := tx.Model(&domain.Selection{}).Where("province_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return domain.Conflict("Province is referenced by selections")
		}
		return tx.Delete(&p).Error
	})
}

func validateRate(rate *float64) error {
	if rate != nil && (*rate < 0 || *rate > 1) {
		return domain.Validation("discount_rate must be a fraction between 0 and 1")
	}
	return nil
}
