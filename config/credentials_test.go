package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCredentials_MissingFileIsNotAnError(t *testing.T) {
	creds, err := LoadCredentials(filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	require.False(t, creds.Valid())
}

func TestSaveLoadCredentials_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	in := Credentials{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		GraphQLURL:   "https://apis.example/graphql",
	}
	require.NoError(t, SaveCredentials(path, in))

	out, err := LoadCredentials(path)
	require.NoError(t, err)
	require.Equal(t, in, out)
	require.True(t, out.Valid())
}

func TestSaveCredentials_RejectsIncomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	err := SaveCredentials(path, Credentials{ClientID: "only-id"})
	require.Error(t, err)
}

func TestCredentialsHolder_Swap(t *testing.T) {
	h := NewCredentialsHolder(Credentials{})
	require.False(t, h.Get().Valid())

	h.Set(Credentials{
		ClientID:     "id",
		ClientSecret: "secret",
		GraphQLURL:   "https://apis.example/graphql",
	})
	require.True(t, h.Get().Valid())
	require.Equal(t, "id", h.Get().ClientID)
}
