package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateSumsAcrossCartRecipes(t *testing.T) {
	conn := newTestDB(t)
	s := NewRecipes(conn, newTestLogger())
	m := NewMembership(conn, newTestLogger())
	l := NewShoppingList(conn, newTestLogger())

	alice := seedUser(t, conn, "alice")
	tag := seedTag(t, conn, "dinner")
	flour := seedIngredient(t, conn, "Flour", "g")
	sugar := seedIngredient(t, conn, "Sugar", "g")
	egg := seedIngredient(t, conn, "Egg", "pcs")

	recipeA := seedRecipe(t, s, alice, "Cake", tag.ID, []IngredientEntry{
		{IngredientID: flour.ID, Amount: 200},
		{IngredientID: sugar.ID, Amount: 50},
	})
	recipeB := seedRecipe(t, s, alice, "Pasta", tag.ID, []IngredientEntry{
		{IngredientID: flour.ID, Amount: 100},
		{IngredientID: egg.ID, Amount: 2},
	})

	_, err := m.Add(SetShoppingCart, alice, recipeA.ID)
	require.NoError(t, err)
	_, err = m.Add(SetShoppingCart, alice, recipeB.ID)
	require.NoError(t, err)

	items, err := l.Aggregate(alice)
	require.NoError(t, err)

	require.Equal(t, []AggregatedItem{
		{Name: "Flour", MeasurementUnit: "g", Amount: 300},
		{Name: "Sugar", MeasurementUnit: "g", Amount: 50},
		{Name: "Egg", MeasurementUnit: "pcs", Amount: 2},
	}, items)

	assert.Equal(t,
		"Shopping list:\n\nFlour (g) - 300\nSugar (g) - 50\nEgg (pcs) - 2\n",
		Render(items))
}

func TestAggregateIgnoresRecipesOutsideCart(t *testing.T) {
	conn := newTestDB(t)
	s := NewRecipes(conn, newTestLogger())
	m := NewMembership(conn, newTestLogger())
	l := NewShoppingList(conn, newTestLogger())

	alice := seedUser(t, conn, "alice")
	bob := seedUser(t, conn, "bob")
	tag := seedTag(t, conn, "dinner")
	flour := seedIngredient(t, conn, "Flour", "g")

	inCart := seedRecipe(t, s, alice, "Cake", tag.ID, []IngredientEntry{
		{IngredientID: flour.ID, Amount: 200},
	})
	seedRecipe(t, s, alice, "Bread", tag.ID, []IngredientEntry{
		{IngredientID: flour.ID, Amount: 999},
	})

	_, err := m.Add(SetShoppingCart, alice, inCart.ID)
	require.NoError(t, err)

	items, err := l.Aggregate(alice)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, uint(200), items[0].Amount)

	// Another user's cart stays empty.
	bobItems, err := l.Aggregate(bob)
	require.NoError(t, err)
	assert.Empty(t, bobItems)
}

func TestAggregateGroupsByIngredientName(t *testing.T) {
	conn := newTestDB(t)
	s := NewRecipes(conn, newTestLogger())
	m := NewMembership(conn, newTestLogger())
	l := NewShoppingList(conn, newTestLogger())

	alice := seedUser(t, conn, "alice")
	tag := seedTag(t, conn, "dinner")
	saltG := seedIngredient(t, conn, "Salt", "g")
	saltPinch := seedIngredient(t, conn, "Salt", "pinch")

	recipe := seedRecipe(t, s, alice, "Soup", tag.ID, []IngredientEntry{
		{IngredientID: saltG.ID, Amount: 5},
		{IngredientID: saltPinch.ID, Amount: 2},
	})

	_, err := m.Add(SetShoppingCart, alice, recipe.ID)
	require.NoError(t, err)

	// Distinct ids sharing a display name merge under the first-seen unit.
	items, err := l.Aggregate(alice)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, AggregatedItem{Name: "Salt", MeasurementUnit: "g", Amount: 7}, items[0])
}

func TestRenderEmptyList(t *testing.T) {
	assert.Equal(t, "Shopping list:\n\n", Render(nil))
}
