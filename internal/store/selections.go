package store

import (
	"context"
	"fmt"
	"time"
	"travel_tax/internal/domain"

	"gorm.io/gorm"
)

// Select records user's choice of a province and marks it selected
func (s *Store) Select(ctx context.Context, user *domain.User, provinceID uint) (*domain.SelectionView, error) {
	var (
		prov domain.Province
		sel  domain.Selection
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&prov, provinceID).Error; err != nil {
			if isNotFound(err) {
				return domain.NotFound("Province not found")
			}
			return err
		}
		var existing int64
		if err := tx.Model(&domain.Selection{}).
			Where("user_id = ? AND province_id = ?", user.ID, provinceID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return domain.Conflict("Province already selected")
		}
		sel = domain.Selection{UserID: user.ID, ProvinceID: prov.ID, SelectedAt: time.Now().UTC()}
		if err := tx.Create(&sel).Error; err != nil {
			if isDuplicate(err) {
				return domain.Conflict("Province already selected")
			}
			return err
		}
		if !prov.IsSelected {
			prov.IsSelected = true
			return tx.Model(&prov).Update("is_selected", true).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	view := selectionView(sel, user.Username, prov)
	return &view, nil
}

// Unselect deletes a selection owned by userID. Foreign selections are
// reported as missing.
func (s *Store) Unselect(ctx context.Context, selectionID, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sel domain.Selection
		err := tx.Where("id = ? AND user_id = ?", selectionID, userID).First(&sel).Error
		if isNotFound(err) {
			return domain.NotFound("Selection not found")
		}
		if err != nil {
			return err
		}
		if err := tx.Delete(&sel).Error; err != nil {
			return err
		}
		return refreshSelected(tx, sel.ProvinceID)
	})
}

// SelectionsFor lists user's selections joined with province details
func (s *Store) SelectionsFor(ctx context.Context, user *domain.User) ([]domain.SelectionView, error) {
	var sels []domain.Selection
	if err := s.db.WithContext(ctx).Where("user_id = ?", user.ID).Order("selected_at, id").Find(&sels).Error; err != nil {
		return nil, fmt.Errorf("list selections: %w", err)
	}
	if len(sels) == 0 {
		return []domain.SelectionView{}, nil
	}
	ids := make([]uint, 0, len(sels))
	for _, sel := range sels {
		ids = append(ids, sel.ProvinceID)
	}
	var provs []domain.Province
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&provs).Error; err != nil {
		return nil, fmt.Errorf("load selected provinces: %w", err)
	}
	byID := make(map[uint]domain.Province, len(provs))
	for _, p := range provs {
		byID[p.ID] = p
	}
	out := make([]domain.SelectionView, 0, len(sels))
	for _, sel := range sels {
		out = append(out, selectionView(sel, user.Username, byID[sel.ProvinceID]))
	}
	return out, nil
}

// refreshSelected recomputes is_selected from the remaining selections
func refreshSelected(tx *gorm.DB, provinceID uint) error {
	var remaining int64
	if err := tx.Model(&domain.Selection{}).Where("province_id = ?", provinceID).Count(&remaining).Error; err != nil {
		return err
	}
	return tx.Model(&domain.Province{}).Where("id = ?", provinceID).Update("is_selected", remaining > 0).Error
}

func selectionView(sel domain.Selection, username string, p domain.Province) domain.SelectionView {
	return domain.SelectionView{
		ID:           sel.ID,
		UserID:       sel.UserID,
		Username:     username,
		ProvinceID:   sel.ProvinceID,
		ProvinceName: p.Name,
		SelectedAt:   sel.SelectedAt,
		DiscountRate: p.DiscountRate,
		Category:     p.Category,
		IsPrimary:    p.IsPrimary,
		IsSecondary:  p.IsSecondary,
		IsTarget:     p.IsTarget,
	}
}
