package config

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Credentials for the TrackQL GraphQL endpoint. Loaded from a dotenv file,
// the same format the desktop app kept in its user data dir.
type Credentials struct {
	ClientID     string
	ClientSecret string
	GraphQLURL   string
}

func (c Credentials) Valid() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.GraphQLURL != ""
}

// CredentialsHolder is a hot-swappable credential set. The client snapshots
// it per call, so a concurrent "test credentials" flow never races the live
// set the way the shared mutable fields in the original app did.
type CredentialsHolder struct {
	v atomic.Pointer[Credentials]
}

func NewCredentialsHolder(c Credentials) *CredentialsHolder {
	h := &CredentialsHolder{}
	h.v.Store(&c)
	return h
}

func (h *CredentialsHolder) Get() Credentials {
	if c := h.v.Load(); c != nil {
		return *c
	}
	return Credentials{}
}

func (h *CredentialsHolder) Set(c Credentials) {
	h.v.Store(&c)
}

// LoadCredentials reads a dotenv file. A missing file is not an error: the
// caller is routed to the credential-setup flow instead.
func LoadCredentials(path string) (Credentials, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Credentials{}, nil
		}
		return Credentials{}, errors.Wrap(err, "read credentials file")
	}
	return Credentials{
		ClientID:     env["CLIENT_ID"],
		ClientSecret: env["CLIENT_SECRET"],
		GraphQLURL:   env["GRAPHQL_URL"],
	}, nil
}

// SaveCredentials rewrites the dotenv file, overwriting whatever was there.
func SaveCredentials(path string, c Credentials) error {
	if !c.Valid() {
		return errors.New("client id, client secret and graphql url are required")
	}
	body := fmt.Sprintf("CLIENT_ID=%s\nCLIENT_SECRET=%s\nGRAPHQL_URL=%s\n",
		c.ClientID, c.ClientSecret, c.GraphQLURL)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		return errors.Wrap(err, "write credentials file")
	}
	return nil
}
