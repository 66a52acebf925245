package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Ladle-Labs/flavorbook-back/internal/config"
)

type (
	GormForkedModel struct {
		ID        uint64 `gorm:"primarykey"`
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	User struct {
		GormForkedModel
		Username  string   `gorm:"unique;not null"`
		Email     string   `gorm:"unique;not null"`
		FirstName string
		LastName  string
		Password  string   `gorm:"not null"`
		Token     string   `gorm:"not null"`
		Recipes   []Recipe `gorm:"foreignKey:AuthorID"`
	}

	Tag struct {
		GormForkedModel
		Name  string `gorm:"unique;not null"`
		Color string `gorm:"not null"`
		Slug  string `gorm:"unique;not null"`
	}

	Ingredient struct {
		GormForkedModel
		Name            string `gorm:"not null;uniqueIndex:uidx_name_measurement_unit"`
		MeasurementUnit string `gorm:"not null;uniqueIndex:uidx_name_measurement_unit"`
	}

	Recipe struct {
		GormForkedModel
		Name        string `gorm:"unique;not null"`
		Image       string `gorm:"not null"`
		Text        string `gorm:"not null"`
		CookingTime uint   `gorm:"not null"`
		AuthorID    *uint64
		Author      *User
		Tags        []Tag              `gorm:"many2many:recipe_tags;"`
		Ingredients []RecipeIngredient `gorm:"constraint:OnDelete:CASCADE;"`
	}

	RecipeIngredient struct {
		GormForkedModel
		RecipeID     uint64 `gorm:"not null;uniqueIndex:uidx_recipe_ingredient"`
		IngredientID uint64 `gorm:"not null;uniqueIndex:uidx_recipe_ingredient"`
		Ingredient   Ingredient
		Amount       uint `gorm:"not null"`
	}

	FavoriteItem struct {
		GormForkedModel
		UserID   uint64 `gorm:"not null;uniqueIndex:uidx_favorite_user_recipe"`
		RecipeID uint64 `gorm:"not null;uniqueIndex:uidx_favorite_user_recipe"`
		Recipe   Recipe
	}

	CartItem struct {
		GormForkedModel
		UserID   uint64 `gorm:"not null;uniqueIndex:uidx_cart_user_recipe"`
		RecipeID uint64 `gorm:"not null;uniqueIndex:uidx_cart_user_recipe"`
		Recipe   Recipe
	}

	Subscription struct {
		GormForkedModel
		FollowerID uint64 `gorm:"not null;uniqueIndex:uidx_follower_author"`
		AuthorID   uint64 `gorm:"not null;uniqueIndex:uidx_follower_author"`
	}
)

func NewGormClient(cfg *config.Config) (*gorm.DB, error) {
	newLogger := logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Info,
		Colorful:                  true,
		IgnoreRecordNotFoundError: false,
	})

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, errors.Wrap(err, "underlying sql db")
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxConns)

	if err := Migrate(conn); err != nil {
		return nil, err
	}

	return conn, nil
}

func Migrate(conn *gorm.DB) error {
	models := []interface{}{
		&User{},
		&Tag{},
		&Ingredient{},
		&Recipe{},
		&RecipeIngredient{},
		&FavoriteItem{},
		&CartItem{},
		&Subscription{},
	}
	for _, model := range models {
		if err := conn.AutoMigrate(model); err != nil {
			return errors.Wrapf(err, "migrate %T", model)
		}
	}
	return nil
}
