package service

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowSelfRejected(t *testing.T) {
	conn := newTestDB(t)
	s := NewSubscriptions(conn, newTestLogger())

	alice := seedUser(t, conn, "alice")

	_, err := s.Follow(alice, alice.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestFollowTwiceConflicts(t *testing.T) {
	conn := newTestDB(t)
	s := NewSubscriptions(conn, newTestLogger())

	alice := seedUser(t, conn, "alice")
	bob := seedUser(t, conn, "bob")

	author, err := s.Follow(alice, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, author.ID)

	_, err = s.Follow(alice, bob.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))

	// The reverse edge is a different pair and stays allowed.
	_, err = s.Follow(bob, alice.ID)
	require.NoError(t, err)
}

func TestFollowUnknownAuthor(t *testing.T) {
	conn := newTestDB(t)
	s := NewSubscriptions(conn, newTestLogger())

	alice := seedUser(t, conn, "alice")

	_, err := s.Follow(alice, 9999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUnfollow(t *testing.T) {
	conn := newTestDB(t)
	s := NewSubscriptions(conn, newTestLogger())

	alice := seedUser(t, conn, "alice")
	bob := seedUser(t, conn, "bob")

	_, err := s.Follow(alice, bob.ID)
	require.NoError(t, err)

	require.NoError(t, s.Unfollow(alice, bob.ID))

	err = s.Unfollow(alice, bob.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAuthorsFollowedInOrder(t *testing.T) {
	conn := newTestDB(t)
	s := NewSubscriptions(conn, newTestLogger())

	alice := seedUser(t, conn, "alice")
	bob := seedUser(t, conn, "bob")
	carol := seedUser(t, conn, "carol")

	_, err := s.Follow(alice, carol.ID)
	require.NoError(t, err)
	_, err = s.Follow(alice, bob.ID)
	require.NoError(t, err)

	authors, err := s.Authors(alice)
	require.NoError(t, err)
	require.Len(t, authors, 2)
	assert.Equal(t, carol.ID, authors[0].ID)
	assert.Equal(t, bob.ID, authors[1].ID)

	subscribed, err := s.IsSubscribed(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, subscribed)

	subscribed, err = s.IsSubscribed(bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, subscribed)
}
