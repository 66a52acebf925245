package service

import (
	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Ladle-Labs/flavorbook-back/internal/db"
)

const (
	cookingTimeMin = 1
	cookingTimeMax = 360
)

type (
	// IngredientEntry is one (ingredient, amount) pair submitted for a recipe.
	IngredientEntry struct {
		IngredientID uint64
		Amount       uint
	}

	// RecipeInput carries recipe fields for create and update. Nil scalar
	// fields are left untouched on update; all of them are required on create.
	RecipeInput struct {
		Name        *string
		Image       *string
		Text        *string
		CookingTime *uint
		TagIDs      []uint64
		Ingredients []IngredientEntry
	}

	RecipeFilter struct {
		AuthorID    *uint64
		TagSlugs    []string
		FavoritedBy *uint64
		InCartOf    *uint64
	}

	Recipes struct {
		db     *gorm.DB
		logger *zap.SugaredLogger
	}
)

func NewRecipes(db *gorm.DB, l *zap.SugaredLogger) *Recipes {
	return &Recipes{
		db:     db,
		logger: l,
	}
}

func (s *Recipes) Create(user *db.User, in RecipeInput) (*db.Recipe, error) {
	if err := validateCreateFields(in); err != nil {
		return nil, err
	}
	if err := validateCookingTime(*in.CookingTime); err != nil {
		return nil, err
	}

	model := db.Recipe{
		Name:        *in.Name,
		Image:       *in.Image,
		Text:        *in.Text,
		CookingTime: *in.CookingTime,
		AuthorID:    &user.ID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tags", "Ingredients").Create(&model).Error; err != nil {
			if isUniqueViolation(err) {
				return conflictErrorf("recipe name %q already in use", model.Name)
			}
			return err
		}
		return compose(tx, &model, in.TagIDs, in.Ingredients)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(model.ID)
}

func (s *Recipes) Update(user *db.User, recipeID uint64, in RecipeInput) (*db.Recipe, error) {
	recipe, err := s.Get(recipeID)
	if err != nil {
		return nil, err
	}
	if recipe.AuthorID == nil || *recipe.AuthorID != user.ID {
		return nil, forbiddenErrorf("recipe %d does not belong to user %d", recipeID, user.ID)
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Image != nil {
		updates["image"] = *in.Image
	}
	if in.Text != nil {
		updates["text"] = *in.Text
	}
	if in.CookingTime != nil {
		if err := validateCookingTime(*in.CookingTime); err != nil {
			return nil, err
		}
		updates["cooking_time"] = *in.CookingTime
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) != 0 {
			if err := tx.Model(recipe).Updates(updates).Error; err != nil {
				if isUniqueViolation(err) {
					return conflictErrorf("recipe name already in use")
				}
				return err
			}
		}
		return compose(tx, recipe, in.TagIDs, in.Ingredients)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(recipeID)
}

func (s *Recipes) Get(id uint64) (*db.Recipe, error) {
	recipe := db.Recipe{}
	res := s.db.
		Preload("Tags").
		Preload("Ingredients", func(tx *gorm.DB) *gorm.DB { return tx.Order("recipe_ingredients.id") }).
		Preload("Ingredients.Ingredient").
		Preload("Author").
		First(&recipe, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, notFoundErrorf("recipe %d", id)
		}
		return nil, res.Error
	}
	return &recipe, nil
}

func (s *Recipes) List(f RecipeFilter) ([]db.Recipe, error) {
	q := squirrel.
		Select("DISTINCT r.id").From("recipes r").
		OrderBy("r.id")
	if f.AuthorID != nil {
		q = q.Where(squirrel.Eq{"r.author_id": *f.AuthorID})
	}
	if len(f.TagSlugs) != 0 {
		q = q.
			Join("recipe_tags rt ON rt.recipe_id = r.id").
			Join("tags t ON t.id = rt.tag_id").
			Where(squirrel.Eq{"t.slug": f.TagSlugs})
	}
	if f.FavoritedBy != nil {
		q = q.
			Join("favorite_items fi ON fi.recipe_id = r.id").
			Where(squirrel.Eq{"fi.user_id": *f.FavoritedBy})
	}
	if f.InCartOf != nil {
		q = q.
			Join("cart_items ci ON ci.recipe_id = r.id").
			Where(squirrel.Eq{"ci.user_id": *f.InCartOf})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	ids := make([]uint64, 0)
	res := s.db.Raw(sql, args...).Scan(&ids)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "scan")
	}
	if len(ids) == 0 {
		return []db.Recipe{}, nil
	}

	recipes := make([]db.Recipe, 0, len(ids))
	res = s.db.
		Preload("Tags").
		Preload("Ingredients", func(tx *gorm.DB) *gorm.DB { return tx.Order("recipe_ingredients.id") }).
		Preload("Ingredients.Ingredient").
		Preload("Author").
		Where("id IN ?", ids).
		Order("id").
		Find(&recipes)
	if res.Error != nil {
		return nil, res.Error
	}
	return recipes, nil
}

func (s *Recipes) Delete(user *db.User, recipeID uint64) error {
	recipe := db.Recipe{}
	res := s.db.First(&recipe, recipeID)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return notFoundErrorf("recipe %d", recipeID)
		}
		return res.Error
	}
	if recipe.AuthorID == nil || *recipe.AuthorID != user.ID {
		return forbiddenErrorf("recipe %d does not belong to user %d", recipeID, user.ID)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&db.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&recipe).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&db.FavoriteItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&db.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&db.Recipe{}, recipeID).Error
	})
}

// compose replaces the recipe's tag and ingredient association sets wholesale.
// It must run inside a transaction: a validation failure on any entry rolls
// back the whole replacement, leaving prior associations intact.
func compose(tx *gorm.DB, recipe *db.Recipe, tagIDs []uint64, entries []IngredientEntry) error {
	if len(tagIDs) == 0 {
		return validationErrorf("tags are required")
	}

	tags := make([]db.Tag, 0, len(tagIDs))
	for _, id := range tagIDs {
		tag := db.Tag{}
		if err := tx.First(&tag, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return validationErrorf("tag %d not found", id)
			}
			return err
		}
		tags = append(tags, tag)
	}
	if err := tx.Model(recipe).Association("Tags").Replace(&tags); err != nil {
		return errors.Wrap(err, "replace tags")
	}

	if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&db.RecipeIngredient{}).Error; err != nil {
		return errors.Wrap(err, "delete prior ingredients")
	}

	// Duplicate ingredient ids merge by summing into the already staged row,
	// in input order. Last-write-wins would lose amounts.
	rows := make([]db.RecipeIngredient, 0, len(entries))
	staged := make(map[uint64]int, len(entries))
	for _, entry := range entries {
		if entry.Amount < 1 {
			return validationErrorf("ingredient amount must be at least 1")
		}
		if i, ok := staged[entry.IngredientID]; ok {
			rows[i].Amount += entry.Amount
			continue
		}
		ingredient := db.Ingredient{}
		if err := tx.First(&ingredient, entry.IngredientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return validationErrorf("ingredient %d not found", entry.IngredientID)
			}
			return err
		}
		staged[entry.IngredientID] = len(rows)
		rows = append(rows, db.RecipeIngredient{
			RecipeID:     recipe.ID,
			IngredientID: entry.IngredientID,
			Amount:       entry.Amount,
		})
	}
	if len(rows) != 0 {
		if err := tx.Create(&rows).Error; err != nil {
			return errors.Wrap(err, "insert ingredients")
		}
	}

	return nil
}

func validateCreateFields(in RecipeInput) error {
	missing := ""
	switch {
	case in.Image == nil:
		missing = "image"
	case in.Name == nil:
		missing = "name"
	case in.Text == nil:
		missing = "text"
	case in.CookingTime == nil:
		missing = "cooking_time"
	case len(in.Ingredients) == 0:
		missing = "ingredients"
	case len(in.TagIDs) == 0:
		missing = "tags"
	}
	if missing != "" {
		return validationErrorf("%s is required to create a recipe", missing)
	}
	return nil
}

func validateCookingTime(minutes uint) error {
	if minutes < cookingTimeMin || minutes > cookingTimeMax {
		return validationErrorf("cooking time must be between %d and %d minutes", cookingTimeMin, cookingTimeMax)
	}
	return nil
}
