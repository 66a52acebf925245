package service

import (
	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Ladle-Labs/flavorbook-back/internal/db"
)

// Subscriptions is the directed follower->author graph between users.
type Subscriptions struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewSubscriptions(db *gorm.DB, l *zap.SugaredLogger) *Subscriptions {
	return &Subscriptions{
		db:     db,
		logger: l,
	}
}

func (s *Subscriptions) Follow(follower *db.User, authorID uint64) (*db.User, error) {
	if follower.ID == authorID {
		return nil, validationErrorf("cannot subscribe to yourself")
	}

	author := db.User{}
	res := s.db.First(&author, authorID)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, notFoundErrorf("user %d", authorID)
		}
		return nil, res.Error
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		res := tx.Model(&db.Subscription{}).
			Where("follower_id = ? AND author_id = ?", follower.ID, authorID).
			Count(&count)
		if res.Error != nil {
			return res.Error
		}
		if count > 0 {
			return conflictErrorf("already subscribed to user %d", authorID)
		}

		res = tx.Create(&db.Subscription{
			FollowerID: follower.ID,
			AuthorID:   authorID,
		})
		if res.Error != nil {
			if isUniqueViolation(res.Error) {
				return conflictErrorf("already subscribed to user %d", authorID)
			}
			return res.Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &author, nil
}

func (s *Subscriptions) Unfollow(follower *db.User, authorID uint64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.
			Where("follower_id = ? AND author_id = ?", follower.ID, authorID).
			Delete(&db.Subscription{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFoundErrorf("not subscribed to user %d", authorID)
		}
		return nil
	})
}

// Authors returns the users the follower is subscribed to, in subscription order.
func (s *Subscriptions) Authors(follower *db.User) ([]db.User, error) {
	sql, args, err := squirrel.
		Select("u.id", "u.username", "u.email", "u.first_name", "u.last_name").
		From("users u").
		Join("subscriptions s ON s.author_id = u.id").
		Where(squirrel.Eq{"s.follower_id": follower.ID}).
		OrderBy("s.id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	authors := make([]db.User, 0)
	res := s.db.Raw(sql, args...).Scan(&authors)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "scan")
	}
	return authors, nil
}

func (s *Subscriptions) IsSubscribed(followerID, authorID uint64) (bool, error) {
	var count int64
	res := s.db.Model(&db.Subscription{}).
		Where("follower_id = ? AND author_id = ?", followerID, authorID).
		Count(&count)
	if res.Error != nil {
		return false, res.Error
	}
	return count > 0, nil
}
