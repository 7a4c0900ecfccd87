package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-synapse/pkg/api"
	"github.com/dd0wney/cluso-synapse/pkg/auth"
	"github.com/dd0wney/cluso-synapse/pkg/client"
	"github.com/dd0wney/cluso-synapse/pkg/logging"
)

const testSecret = "synapsectl-test-secret-at-least-32-chars"

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func newAuthority(t *testing.T, validator auth.TokenValidator) string {
	t.Helper()
	s := api.NewServer(api.Options{Validator: validator, Logger: logging.NewNopLogger()})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv.URL + api.DefaultBasePath
}

func TestActivateStatusReset(t *testing.T) {
	base := newAuthority(t, nil)

	out, err := execute(t, "--server", base, "activate", "1", "2:Two")
	require.NoError(t, err)
	assert.Contains(t, out, "2 active")
	assert.Contains(t, out, "(version 1)")
	assert.Contains(t, out, "Neuron 1")
	assert.Contains(t, out, "Two")

	out, err = execute(t, "--server", base, "activate", "--append", "3:Three")
	require.NoError(t, err)
	assert.Contains(t, out, "3 active")

	out, err = execute(t, "--server", base, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Three")
	assert.Contains(t, out, "(version 2)")

	out, err = execute(t, "--server", base, "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "no active nodes")
	assert.Contains(t, out, "(version 3)")
}

func TestActivate_RequiresArgs(t *testing.T) {
	_, err := execute(t, "--server", "http://127.0.0.1:1", "activate")
	require.Error(t, err)
}

func TestActivate_ReportsMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"activeNodes":[{"id":"a","name":"A"}],"version":5}`))
	}))
	defer srv.Close()

	out, err := execute(t, "--server", srv.URL, "activate", "a", "b")
	require.NoError(t, err)
	assert.Contains(t, out, "not active after the call: [b]")
}

func TestActivate_WithAuth(t *testing.T) {
	tm, err := auth.NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)
	base := newAuthority(t, tm)

	_, err = execute(t, "--server", base, "activate", "1")
	var se *client.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Code)

	token, err := tm.GenerateToken("ops", auth.RoleController)
	require.NoError(t, err)
	out, err := execute(t, "--server", base, "--token", token, "activate", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "1 active")

	// Reads stay open.
	_, err = execute(t, "--server", base, "status")
	require.NoError(t, err)
}

func TestTokenCommand(t *testing.T) {
	out, err := execute(t, "token", "--secret", testSecret, "--subject", "dash", "--role", auth.RoleViewer, "--ttl", "5m")
	require.NoError(t, err)

	tm, err := auth.NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)
	claims, err := tm.ValidateToken(context.Background(), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "dash", claims.Subject)
	assert.Equal(t, auth.RoleViewer, claims.Role)
	assert.False(t, claims.CanWrite())
}

func TestTokenCommand_Errors(t *testing.T) {
	_, err := execute(t, "token", "--secret", "short")
	assert.ErrorIs(t, err, auth.ErrShortSecret)

	_, err = execute(t, "token", "--secret", testSecret, "--role", "root")
	assert.ErrorIs(t, err, auth.ErrInvalidRole)
}

func TestPrintTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	printTable(&buf, []string{"ID"}, nil)
	assert.Empty(t, buf.String())
}

func TestAuditCommand(t *testing.T) {
	base := newAuthority(t, nil)

	out, err := execute(t, "--server", base, "audit")
	require.NoError(t, err)
	assert.Contains(t, out, "no writes recorded")

	_, err = execute(t, "--server", base, "activate", "1", "2")
	require.NoError(t, err)
	_, err = execute(t, "--server", base, "reset")
	require.NoError(t, err)

	out, err = execute(t, "--server", base, "audit", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "reset")
	assert.NotContains(t, out, "replace")
	assert.Contains(t, out, "1 of 2 writes")
}
