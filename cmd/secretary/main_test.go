package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authmw "github.com/hrygo/secretary/server/middleware"
)

func TestIssueToken(t *testing.T) {
	const secret = "s3cret"
	auth := authmw.NewAuthenticator(secret, false)
	authenticate := func(token string) (authmw.Identity, error) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return auth.Authenticate(req)
	}

	token, err := issueToken(secret, "tenant-1", "", time.Hour, time.Now())
	require.NoError(t, err)
	id, err := authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, authmw.Identity{TenantID: "tenant-1", UserID: "tenant-1"}, id)

	token, err = issueToken(secret, "tenant-1", "user-7", 0, time.Now())
	require.NoError(t, err)
	id, err = authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", id.UserID)

	expired, err := issueToken(secret, "tenant-1", "user-7", time.Hour, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = authenticate(expired)
	assert.ErrorIs(t, err, authmw.ErrUnauthenticated)

	_, err = issueToken("", "tenant-1", "", time.Hour, time.Now())
	assert.Error(t, err)
	_, err = issueToken(secret, "", "", time.Hour, time.Now())
	assert.Error(t, err)
}
