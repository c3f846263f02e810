package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateBroadcastsSignInAndSignOut(t *testing.T) {
	s := NewState()
	id, ch := s.Subscribe()
	defer s.Unsubscribe(id)

	s.Set(&Identity{UID: "u1"})
	got := <-ch
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UID)

	s.Clear()
	assert.Nil(t, <-ch)
	assert.Nil(t, s.Current())
}

func TestStateConflatesToLatest(t *testing.T) {
	s := NewState()
	id, ch := s.Subscribe()
	defer s.Unsubscribe(id)

	s.Set(&Identity{UID: "u1"})
	s.Set(&Identity{UID: "u2"})
	s.Set(&Identity{UID: "u3"})

	got := <-ch
	require.NotNil(t, got)
	assert.Equal(t, "u3", got.UID)
	select {
	case <-ch:
		t.Fatal("expected a single conflated value")
	default:
	}
}

func TestStateCurrentWithoutSubscribers(t *testing.T) {
	s := NewState()
	assert.Nil(t, s.Current())
	s.Set(&Identity{UID: "u1"})
	require.NotNil(t, s.Current())
	assert.Equal(t, "u1", s.Current().UID)
}
