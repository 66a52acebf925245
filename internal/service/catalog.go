package service

import (
	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Ladle-Labs/flavorbook-back/internal/db"
)

// Catalog serves the read-only reference data: tags and ingredients.
type Catalog struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewCatalog(db *gorm.DB, l *zap.SugaredLogger) *Catalog {
	return &Catalog{
		db:     db,
		logger: l,
	}
}

func (s *Catalog) Tags() ([]db.Tag, error) {
	tags := make([]db.Tag, 0)
	res := s.db.Order("name").Find(&tags)
	if res.Error != nil {
		return nil, res.Error
	}
	return tags, nil
}

func (s *Catalog) Tag(id uint64) (*db.Tag, error) {
	tag := db.Tag{}
	res := s.db.First(&tag, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, notFoundErrorf("tag %d", id)
		}
		return nil, res.Error
	}
	return &tag, nil
}

func (s *Catalog) Ingredients(namePrefix string) ([]db.Ingredient, error) {
	q := squirrel.
		Select("id", "name", "measurement_unit").From("ingredients").
		OrderBy("name")
	if namePrefix != "" {
		q = q.Where(squirrel.Like{"name": namePrefix + "%"})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	ingredients := make([]db.Ingredient, 0)
	res := s.db.Raw(sql, args...).Scan(&ingredients)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "scan")
	}
	return ingredients, nil
}

func (s *Catalog) Ingredient(id uint64) (*db.Ingredient, error) {
	ingredient := db.Ingredient{}
	res := s.db.First(&ingredient, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, notFoundErrorf("ingredient %d", id)
		}
		return nil, res.Error
	}
	return &ingredient, nil
}
