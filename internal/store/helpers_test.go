package store_test

import (
	"testing"

	"github.com/raphaelgruber/compere-go/internal/apitest"
	"github.com/raphaelgruber/compere-go/internal/client"
	"github.com/raphaelgruber/compere-go/internal/session"
	"github.com/stretchr/testify/require"
)

// newAPI starts a fake API and returns a client bound to it with the given token.
func newAPI(t *testing.T, token string) (*apitest.Server, *client.Client) {
	t.Helper()
	srv := apitest.New(t)
	sess, err := session.New(session.NewMemoryStore(token))
	require.NoError(t, err)
	return srv, client.New(client.Config{BaseURL: srv.URL, Session: sess})
}
