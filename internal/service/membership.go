package service

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Ladle-Labs/flavorbook-back/internal/db"
)

// SetKind names one of the two (user, recipe) membership sets. Favorites and
// the shopping cart share one shape, so the store is parameterized by set
// instead of duplicating the logic per table.
type SetKind string

const (
	SetFavorites    SetKind = "favorites"
	SetShoppingCart SetKind = "shopping cart"
)

type Membership struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewMembership(db *gorm.DB, l *zap.SugaredLogger) *Membership {
	return &Membership{
		db:     db,
		logger: l,
	}
}

// Add inserts the (user, recipe) pair into the set. Adding a pair that is
// already present is a conflict, not a no-op.
func (s *Membership) Add(set SetKind, user *db.User, recipeID uint64) (*db.Recipe, error) {
	recipe := db.Recipe{}
	res := s.db.First(&recipe, recipeID)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, notFoundErrorf("recipe %d", recipeID)
		}
		return nil, res.Error
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		exists, err := contains(tx, set, user.ID, recipeID)
		if err != nil {
			return err
		}
		if exists {
			return conflictErrorf("recipe already in %s", set)
		}

		row, err := newItem(set, user.ID, recipeID)
		if err != nil {
			return err
		}
		if err := tx.Create(row).Error; err != nil {
			if isUniqueViolation(err) {
				return conflictErrorf("recipe already in %s", set)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &recipe, nil
}

// Remove deletes the (user, recipe) pair from the set. Removing an absent
// pair is a not-found error.
func (s *Membership) Remove(set SetKind, user *db.User, recipeID uint64) error {
	row, err := newItem(set, 0, 0)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND recipe_id = ?", user.ID, recipeID).Delete(row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFoundErrorf("recipe %d is not in %s", recipeID, set)
		}
		return nil
	})
}

func (s *Membership) Contains(set SetKind, userID, recipeID uint64) (bool, error) {
	return contains(s.db, set, userID, recipeID)
}

func contains(tx *gorm.DB, set SetKind, userID, recipeID uint64) (bool, error) {
	row, err := newItem(set, 0, 0)
	if err != nil {
		return false, err
	}
	var count int64
	res := tx.Model(row).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count)
	if res.Error != nil {
		return false, res.Error
	}
	return count > 0, nil
}

func newItem(set SetKind, userID, recipeID uint64) (interface{}, error) {
	switch set {
	case SetFavorites:
		return &db.FavoriteItem{UserID: userID, RecipeID: recipeID}, nil
	case SetShoppingCart:
		return &db.CartItem{UserID: userID, RecipeID: recipeID}, nil
	default:
		return nil, errors.Errorf("unknown membership set: %s", set)
	}
}
