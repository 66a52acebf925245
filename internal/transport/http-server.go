package transport

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Ladle-Labs/flavorbook-back/internal/config"
	"github.com/Ladle-Labs/flavorbook-back/internal/db"
	"github.com/Ladle-Labs/flavorbook-back/internal/service"
)

type (
	RegisterReq struct {
		Username  string `json:"username" validate:"required"`
		Email     string `json:"email" validate:"required,email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Password  string `json:"password" validate:"required,min=8"`
	}

	LoginReq struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	TokenResp struct {
		Token string `json:"token"`
	}

	IngredientEntryReq struct {
		ID     uint64 `json:"id" validate:"required"`
		Amount uint   `json:"amount" validate:"required,min=1"`
	}

	RecipeReq struct {
		Ingredients []IngredientEntryReq `json:"ingredients"`
		Tags        []uint64             `json:"tags"`
		Image       *string              `json:"image"`
		Name        *string              `json:"name"`
		Text        *string              `json:"text"`
		CookingTime *uint                `json:"cooking_time"`
	}

	TagResp struct {
		ID    uint64 `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
		Slug  string `json:"slug"`
	}

	IngredientResp struct {
		ID              uint64 `json:"id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
	}

	IngredientInRecipeResp struct {
		ID              uint64 `json:"id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          uint   `json:"amount"`
	}

	UserResp struct {
		ID           uint64 `json:"id"`
		Username     string `json:"username"`
		Email        string `json:"email"`
		FirstName    string `json:"first_name"`
		LastName     string `json:"last_name"`
		IsSubscribed bool   `json:"is_subscribed"`
	}

	RecipeResp struct {
		ID               uint64                   `json:"id"`
		Tags             []TagResp                `json:"tags"`
		Author           *UserResp                `json:"author"`
		Ingredients      []IngredientInRecipeResp `json:"ingredients"`
		IsFavorited      bool                     `json:"is_favorited"`
		IsInShoppingCart bool                     `json:"is_in_shopping_cart"`
		Name             string                   `json:"name"`
		Image            string                   `json:"image"`
		Text             string                   `json:"text"`
		CookingTime      uint                     `json:"cooking_time"`
	}

	ShortRecipeResp struct {
		ID          uint64 `json:"id"`
		Name        string `json:"name"`
		Image       string `json:"image"`
		CookingTime uint   `json:"cooking_time"`
	}

	SubscriptionResp struct {
		UserResp
		Recipes      []ShortRecipeResp `json:"recipes"`
		RecipesCount int               `json:"recipes_count"`
	}

	CustomValidator struct {
		validator *validator.Validate
	}

	HTTPServer struct {
		db            *gorm.DB
		logger        *zap.SugaredLogger
		general       *service.General
		catalog       *service.Catalog
		recipes       *service.Recipes
		membership    *service.Membership
		shoppingList  *service.ShoppingList
		subscriptions *service.Subscriptions
	}
)

func NewHTTPServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	conn *gorm.DB,
	logger *zap.SugaredLogger,
	general *service.General,
	catalog *service.Catalog,
	recipes *service.Recipes,
	membership *service.Membership,
	shoppingList *service.ShoppingList,
	subscriptions *service.Subscriptions,
) *HTTPServer {
	e := echo.New()

	instance := HTTPServer{
		db:            conn,
		logger:        logger,
		general:       general,
		catalog:       catalog,
		recipes:       recipes,
		membership:    membership,
		shoppingList:  shoppingList,
		subscriptions: subscriptions,
	}

	e.POST("/auth/register", instance.Register)
	e.POST("/auth/login", instance.Login)

	tagG := e.Group("/tags")
	tagG.GET("", instance.TagList)
	tagG.GET("/:id", instance.TagGet)

	ingredientG := e.Group("/ingredients")
	ingredientG.GET("", instance.IngredientList)
	ingredientG.GET("/:id", instance.IngredientGet)

	recipeG := e.Group("/recipes")
	recipeG.GET("", instance.RecipeList)
	recipeG.POST("", instance.RecipeCreate)
	recipeG.GET("/download_shopping_cart", instance.DownloadShoppingCart)
	recipeG.GET("/:id", instance.RecipeGet)
	recipeG.PATCH("/:id", instance.RecipeUpdate)
	recipeG.DELETE("/:id", instance.RecipeDelete)
	recipeG.POST("/:id/favorite", instance.FavoriteAdd)
	recipeG.DELETE("/:id/favorite", instance.FavoriteRemove)
	recipeG.POST("/:id/shopping_cart", instance.CartAdd)
	recipeG.DELETE("/:id/shopping_cart", instance.CartRemove)

	userG := e.Group("/users")
	userG.GET("/subscriptions", instance.SubscriptionList)
	userG.POST("/:id/subscribe", instance.Subscribe)
	userG.DELETE("/:id/subscribe", instance.Unsubscribe)

	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Use(instance.AuthMiddleware)

	e.Validator = &CustomValidator{validator: validator.New()}

	echo.NotFoundHandler = func(c echo.Context) error {
		return c.NoContent(http.StatusNotFound)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				listen := cfg.Host + ":" + cfg.Port
				if err := e.Start(listen); err != nil && err != http.ErrServerClosed {
					e.Logger.Fatal("shutting down the server")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server.")
			return e.Shutdown(ctx)
		},
	})

	return &instance
}

func (s *HTTPServer) Register(c echo.Context) error {
	req := RegisterReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := s.general.Register(req.Username, req.Email, req.FirstName, req.LastName, req.Password)
	if err != nil {
		return ServiceError(err)
	}
	return c.JSON(http.StatusOK, &TokenResp{Token: token})
}

func (s *HTTPServer) Login(c echo.Context) error {
	req := LoginReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := s.general.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrLoginUserNotFound) || errors.Is(err, service.ErrLoginPasswordDoesNotMatch) {
			return c.NoContent(http.StatusUnauthorized)
		}
		return err
	}
	return c.JSON(http.StatusOK, &TokenResp{Token: token})
}

func (s *HTTPServer) TagList(c echo.Context) error {
	tags, err := s.catalog.Tags()
	if err != nil {
		return ServiceError(err)
	}

	resp := make([]TagResp, len(tags))
	for i := range tags {
		resp[i] = toTagResp(tags[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) TagGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	tag, err := s.catalog.Tag(id)
	if err != nil {
		return ServiceError(err)
	}
	return c.JSON(http.StatusOK, toTagResp(*tag))
}

func (s *HTTPServer) IngredientList(c echo.Context) error {
	ingredients, err := s.catalog.Ingredients(c.QueryParam("name"))
	if err != nil {
		return ServiceError(err)
	}

	resp := make([]IngredientResp, len(ingredients))
	for i := range ingredients {
		resp[i] = IngredientResp{
			ID:              ingredients[i].ID,
			Name:            ingredients[i].Name,
			MeasurementUnit: ingredients[i].MeasurementUnit,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) IngredientGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	ingredient, err := s.catalog.Ingredient(id)
	if err != nil {
		return ServiceError(err)
	}
	return c.JSON(http.StatusOK, IngredientResp{
		ID:              ingredient.ID,
		Name:            ingredient.Name,
		MeasurementUnit: ingredient.MeasurementUnit,
	})
}

func (s *HTTPServer) RecipeList(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	f := service.RecipeFilter{}
	if v := c.QueryParam("author"); v != "" {
		authorID, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid query param 'author'")
		}
		f.AuthorID = &authorID
	}
	if v := c.QueryParams()["tags"]; len(v) != 0 {
		f.TagSlugs = v
	}
	if c.QueryParam("is_favorited") == "1" {
		f.FavoritedBy = &user.ID
	}
	if c.QueryParam("is_in_shopping_cart") == "1" {
		f.InCartOf = &user.ID
	}

	recipes, err := s.recipes.List(f)
	if err != nil {
		return ServiceError(err)
	}

	resp := make([]RecipeResp, len(recipes))
	for i := range recipes {
		r, err := s.toRecipeResp(&recipes[i], user)
		if err != nil {
			return err
		}
		resp[i] = *r
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) RecipeGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	recipe, err := s.recipes.Get(id)
	if err != nil {
		return ServiceError(err)
	}

	resp, err := s.toRecipeResp(recipe, user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) RecipeCreate(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := RecipeReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	recipe, err := s.recipes.Create(user, toRecipeInput(req))
	if err != nil {
		return ServiceError(err)
	}

	resp, err := s.toRecipeResp(recipe, user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

func (s *HTTPServer) RecipeUpdate(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := RecipeReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	recipe, err := s.recipes.Update(user, id, toRecipeInput(req))
	if err != nil {
		return ServiceError(err)
	}

	resp, err := s.toRecipeResp(recipe, user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) RecipeDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	if err := s.recipes.Delete(user, id); err != nil {
		return ServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) FavoriteAdd(c echo.Context) error {
	return s.membershipAdd(c, service.SetFavorites)
}

func (s *HTTPServer) FavoriteRemove(c echo.Context) error {
	return s.membershipRemove(c, service.SetFavorites)
}

func (s *HTTPServer) CartAdd(c echo.Context) error {
	return s.membershipAdd(c, service.SetShoppingCart)
}

func (s *HTTPServer) CartRemove(c echo.Context) error {
	return s.membershipRemove(c, service.SetShoppingCart)
}

func (s *HTTPServer) membershipAdd(c echo.Context, set service.SetKind) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	recipe, err := s.membership.Add(set, user, id)
	if err != nil {
		return ServiceError(err)
	}
	return c.JSON(http.StatusCreated, ShortRecipeResp{
		ID:          recipe.ID,
		Name:        recipe.Name,
		Image:       recipe.Image,
		CookingTime: recipe.CookingTime,
	})
}

func (s *HTTPServer) membershipRemove(c echo.Context, set service.SetKind) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	if err := s.membership.Remove(set, user, id); err != nil {
		return ServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) DownloadShoppingCart(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	items, err := s.shoppingList.Aggregate(user)
	if err != nil {
		return ServiceError(err)
	}

	content := service.Render(items)
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="shopping_list.txt"`)
	return c.Blob(http.StatusOK, "text/plain; charset=utf-8", []byte(content))
}

func (s *HTTPServer) SubscriptionList(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	authors, err := s.subscriptions.Authors(user)
	if err != nil {
		return ServiceError(err)
	}

	resp := make([]SubscriptionResp, len(authors))
	for i := range authors {
		r, err := s.toSubscriptionResp(&authors[i])
		if err != nil {
			return err
		}
		resp[i] = *r
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) Subscribe(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	author, err := s.subscriptions.Follow(user, id)
	if err != nil {
		return ServiceError(err)
	}

	resp, err := s.toSubscriptionResp(author)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

func (s *HTTPServer) Unsubscribe(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	if err := s.subscriptions.Unfollow(user, id); err != nil {
		return ServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Path() == "/auth/register" || c.Path() == "/auth/login" || c.Path() == "/ping" {
			return next(c)
		}
		token := ""
		for key, values := range c.Request().Header {
			if strings.ToLower(key) == "x-token" {
				token = values[0]
				break
			}
		}
		if token == "" {
			return c.NoContent(http.StatusUnauthorized)
		}
		user := db.User{}
		res := s.db.Where("token = ?", token).First(&user)
		if res.Error != nil {
			s.logger.Error(errors.Wrap(res.Error, "find user in db"))
			return c.NoContent(http.StatusUnauthorized)
		}

		c.Set("user", &user)
		return next(c)
	}
}

func (s *HTTPServer) toRecipeResp(recipe *db.Recipe, viewer *db.User) (*RecipeResp, error) {
	tags := make([]TagResp, len(recipe.Tags))
	for i := range recipe.Tags {
		tags[i] = toTagResp(recipe.Tags[i])
	}

	ingredients := make([]IngredientInRecipeResp, len(recipe.Ingredients))
	for i := range recipe.Ingredients {
		ingredients[i] = IngredientInRecipeResp{
			ID:              recipe.Ingredients[i].IngredientID,
			Name:            recipe.Ingredients[i].Ingredient.Name,
			MeasurementUnit: recipe.Ingredients[i].Ingredient.MeasurementUnit,
			Amount:          recipe.Ingredients[i].Amount,
		}
	}

	isFavorited, err := s.membership.Contains(service.SetFavorites, viewer.ID, recipe.ID)
	if err != nil {
		return nil, err
	}
	isInCart, err := s.membership.Contains(service.SetShoppingCart, viewer.ID, recipe.ID)
	if err != nil {
		return nil, err
	}

	var author *UserResp
	if recipe.Author != nil {
		isSubscribed, err := s.subscriptions.IsSubscribed(viewer.ID, recipe.Author.ID)
		if err != nil {
			return nil, err
		}
		author = &UserResp{
			ID:           recipe.Author.ID,
			Username:     recipe.Author.Username,
			Email:        recipe.Author.Email,
			FirstName:    recipe.Author.FirstName,
			LastName:     recipe.Author.LastName,
			IsSubscribed: isSubscribed,
		}
	}

	return &RecipeResp{
		ID:               recipe.ID,
		Tags:             tags,
		Author:           author,
		Ingredients:      ingredients,
		IsFavorited:      isFavorited,
		IsInShoppingCart: isInCart,
		Name:             recipe.Name,
		Image:            recipe.Image,
		Text:             recipe.Text,
		CookingTime:      recipe.CookingTime,
	}, nil
}

func (s *HTTPServer) toSubscriptionResp(author *db.User) (*SubscriptionResp, error) {
	recipes, err := s.recipes.List(service.RecipeFilter{AuthorID: &author.ID})
	if err != nil {
		return nil, err
	}

	short := make([]ShortRecipeResp, len(recipes))
	for i := range recipes {
		short[i] = ShortRecipeResp{
			ID:          recipes[i].ID,
			Name:        recipes[i].Name,
			Image:       recipes[i].Image,
			CookingTime: recipes[i].CookingTime,
		}
	}

	return &SubscriptionResp{
		UserResp: UserResp{
			ID:           author.ID,
			Username:     author.Username,
			Email:        author.Email,
			FirstName:    author.FirstName,
			LastName:     author.LastName,
			IsSubscribed: true,
		},
		Recipes:      short,
		RecipesCount: len(short),
	}, nil
}

func toTagResp(tag db.Tag) TagResp {
	return TagResp{
		ID:    tag.ID,
		Name:  tag.Name,
		Color: tag.Color,
		Slug:  tag.Slug,
	}
}

func toRecipeInput(req RecipeReq) service.RecipeInput {
	entries := make([]service.IngredientEntry, len(req.Ingredients))
	for i := range req.Ingredients {
		entries[i] = service.IngredientEntry{
			IngredientID: req.Ingredients[i].ID,
			Amount:       req.Ingredients[i].Amount,
		}
	}
	return service.RecipeInput{
		Name:        req.Name,
		Image:       req.Image,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		TagIDs:      req.Tags,
		Ingredients: entries,
	}
}

////////

// ServiceError translates the service error taxonomy into HTTP statuses.
func ServiceError(err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrConflict):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		return err
	}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func BindAndValidate(c echo.Context, v interface{}) error {
	var err error
	if err = c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err = c.Validate(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func GetUserFromContext(c echo.Context) (*db.User, error) {
	user, ok := c.Get("user").(*db.User)
	if !ok || user == nil {
		return nil, errors.New("no user found in context")
	}
	return user, nil
}

func GetParam(c echo.Context, name string) (string, error) {
	value := c.Param(name)
	if value == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid path param '"+name+"'")
	}
	return value, nil
}

func GetAndParseParam(c echo.Context, name string) (uint64, error) {
	v, e := GetParam(c, name)
	if e != nil {
		return 0, e
	}
	vv, e := strconv.ParseUint(v, 10, 64)
	if e != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid path param '"+name+"'")
	}
	return vv, nil
}
