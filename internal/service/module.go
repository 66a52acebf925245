package service

import (
	"go.uber.org/fx"
)

var (
	Module = fx.Provide(
		NewGeneral,
		NewCatalog,
		NewRecipes,
		NewMembership,
		NewShoppingList,
		NewSubscriptions,
	)
)
