package service

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngredientLookup(t *testing.T) {
	conn := newTestDB(t)
	s := NewCatalog(conn, newTestLogger())

	flour := seedIngredient(t, conn, "Flour", "g")

	got, err := s.Ingredient(flour.ID)
	require.NoError(t, err)
	assert.Equal(t, "Flour", got.Name)
	assert.Equal(t, "g", got.MeasurementUnit)

	_, err = s.Ingredient(9999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestIngredientPrefixSearch(t *testing.T) {
	conn := newTestDB(t)
	s := NewCatalog(conn, newTestLogger())

	seedIngredient(t, conn, "Flour", "g")
	seedIngredient(t, conn, "Flaxseed", "g")
	seedIngredient(t, conn, "Sugar", "g")

	got, err := s.Ingredients("Fl")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Flaxseed", got[0].Name)
	assert.Equal(t, "Flour", got[1].Name)

	all, err := s.Ingredients("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestTagLookup(t *testing.T) {
	conn := newTestDB(t)
	s := NewCatalog(conn, newTestLogger())

	breakfast := seedTag(t, conn, "breakfast")
	seedTag(t, conn, "dinner")

	got, err := s.Tag(breakfast.ID)
	require.NoError(t, err)
	assert.Equal(t, "breakfast", got.Name)

	_, err = s.Tag(9999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	tags, err := s.Tags()
	require.NoError(t, err)
	assert.Len(t, tags, 2)
}
