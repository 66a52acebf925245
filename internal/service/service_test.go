package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Ladle-Labs/flavorbook-back/internal/db"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named shared-cache DB keeps gorm's pooled connections on the same
	// in-memory database while isolating tests from each other.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	return conn
}

func newTestLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func seedUser(t *testing.T, conn *gorm.DB, username string) *db.User {
	t.Helper()
	user := db.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "irrelevant-hash",
		Token:    uuid.New().String(),
	}
	require.NoError(t, conn.Create(&user).Error)
	return &user
}

func seedTag(t *testing.T, conn *gorm.DB, name string) *db.Tag {
	t.Helper()
	tag := db.Tag{
		Name:  name,
		Color: "#49B64E",
		Slug:  name,
	}
	require.NoError(t, conn.Create(&tag).Error)
	return &tag
}

func seedIngredient(t *testing.T, conn *gorm.DB, name, unit string) *db.Ingredient {
	t.Helper()
	ingredient := db.Ingredient{
		Name:            name,
		MeasurementUnit: unit,
	}
	require.NoError(t, conn.Create(&ingredient).Error)
	return &ingredient
}

func strPtr(s string) *string {
	return &s
}

func uintPtr(v uint) *uint {
	return &v
}

func seedRecipe(t *testing.T, s *Recipes, author *db.User, name string, tagID uint64, entries []IngredientEntry) *db.Recipe {
	t.Helper()
	recipe, err := s.Create(author, RecipeInput{
		Name:        strPtr(name),
		Image:       strPtr("recipes_image/" + name + ".png"),
		Text:        strPtr("cook it"),
		CookingTime: uintPtr(30),
		TagIDs:      []uint64{tagID},
		Ingredients: entries,
	})
	require.NoError(t, err)
	return recipe
}
