package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken("user-42", secret, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	id, err := UserIDFromToken(token, secret)
	require.NoError(t, err)
	require.Equal(t, "user-42", id)
}

func TestUserIDFromToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken("user-42", []byte("right"), time.Minute)
	require.NoError(t, err)

	_, err = UserIDFromToken(token, []byte("wrong"))
	require.Error(t, err)
}

func TestUserIDFromToken_Expired(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateToken("user-42", secret, -time.Minute)
	require.NoError(t, err)

	_, err = UserIDFromToken(token, secret)
	require.Error(t, err)
}

func TestBroadcaster_Lifecycle(t *testing.T) {
	b := newBroadcaster()
	require.Nil(t, b.Current())

	s := &Session{UserID: "u1", Login: "alice"}
	b.set(s)
	require.Equal(t, s, b.Current())
	require.Equal(t, s, <-b.Sessions())

	b.set(nil)
	require.Nil(t, b.Current())
	require.Nil(t, <-b.Sessions())
}
