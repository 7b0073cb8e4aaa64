package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"travel_tax/internal/domain"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// NewUser carries the fields accepted at registration
type NewUser struct {
	Username  string
	Password  string
	Phone     string
	Email     *string
	CitizenID *string
	Role      string
}

// UserUpdate carries optional profile changes
type UserUpdate struct {
	Username  *string
	Password  *string
	Phone     *string
	Email     *string
	CitizenID *string
}

// NormalizeUsername lowercases usernames so uniqueness is case-insensitive
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// RegisterUser creates a user with a bcrypt-hashed password
func (s *Store) RegisterUser(ctx context.Context, in NewUser) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	user := domain.User{
		Username:     NormalizeUsername(in.Username),
		Phone:        in.Phone,
		Email:        emptyToNil(in.Email),
		CitizenID:    emptyToNil(in.CitizenID),
		PasswordHash: string(hash),
		Role:         role,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkUnique(tx, 0, user.Username, user.Email, user.CitizenID); err != nil {
			return err
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, userWriteError(err)
	}
	return &user, nil
}

// AuthenticatePassword returns the user when the password matches its hash
func (s *Store) AuthenticatePassword(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Equalize timing with the known-user path
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, domain.Unauthorized("Invalid credentials")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Unauthorized("Invalid credentials")
	}
	return user, nil
}

// UserByUsername looks a user up by the token subject
func (s *Store) UserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Where("username = ?", NormalizeUsername(username)).First(&user).Error
	if isNotFound(err) {
		return nil, domain.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// GetUser fetches a user by id
func (s *Store) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if isNotFound(err) {
		return nil, domain.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// ListUsers returns all users ordered by id
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateUser applies the supplied fields; a new password is re-hashed
func (s *Store) UpdateUser(ctx context.Context, id uint, in UserUpdate) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			if isNotFound(err) {
				return domain.NotFound("User not found")
			}
			return err
		}
		if in.Username != nil {
			user.Username = NormalizeUsername(*in.Username)
		}
		if in.Phone != nil {
			user.Phone = *in.Phone
		}
		if in.Email != nil {
			user.Email = emptyToNil(in.Email)
		}
		if in.CitizenID != nil {
			user.CitizenID = emptyToNil(in.CitizenID)
		}
		if in.Password != nil {
			hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.hashCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			user.PasswordHash = string(hash)
		}
		if err := checkUnique(tx, user.ID, user.Username, user.Email, user.CitizenID); err != nil {
			return err
		}
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, userWriteError(err)
	}
	return &user, nil
}

// DeleteUser removes a user together with their selections and registrations
func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user domain.User
		if err := tx.First(&user, id).Error; err != nil {
			if isNotFound(err) {
				return domain.NotFound("User not found")
			}
			return err
		}
		var provinceIDs []uint
		if err := tx.Model(&domain.Selection{}).Where("user_id = ?", id).Pluck("province_id", &provinceIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&domain.Selection{}).Error; err != nil {
			return err
		}
		for _, pid := range provinceIDs {
			if err := refreshSelected(tx, pid); err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", id).Delete(&domain.Registration{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
}

// checkUnique reports which identifier is already taken by another user
func checkUnique(tx *gorm.DB, excludeID uint, username string, email, citizenID *string) error {
	var count int64
	if err := tx.Model(&domain.User{}).Where("username = ? AND id <> ?", username, excludeID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return domain.Conflict("Username already exists")
	}
	if email != nil {
		if err := tx.Model(&domain.User{}).Where("email = ? AND id <> ?", *email, excludeID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.Conflict("Email already exists")
		}
	}
	if citizenID != nil {
		if err := tx.Model(&domain.User{}).Where("citizen_id = ? AND id <> ?", *citizenID, excludeID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.Conflict("Citizen ID already exists")
		}
	}
	return nil
}

func userWriteError(err error) error {
	if isDuplicate(err) {
		return domain.Conflict("User with these identifiers already exists")
	}
	return err
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
