package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-synapse/pkg/activation"
	"github.com/dd0wney/cluso-synapse/pkg/audit"
)

func TestClient_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/brain/status", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"activeNodes":[{"id":"a","name":"Alpha"}],"version":3}`))
	}))
	defer srv.Close()

	c := New(srv.URL + "/api/brain/")
	snap, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), snap.Version)
	assert.Equal(t, []activation.Node{{ID: "a", Name: "Alpha"}}, snap.Nodes)
}

func TestClient_ActivateSendsBodyAndToken(t *testing.T) {
	var got ActivateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/activate", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"activeNodes":[{"id":"1","name":"Neuron 1"},{"id":"2","name":"Two"}],"version":1}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithToken("secret-token"))
	snap, err := c.Activate(context.Background(), ActivateRequest{
		Nodes:  []activation.Node{{ID: "1", Name: "Neuron 1"}, {ID: "2", Name: "Two"}},
		Append: true,
	})
	require.NoError(t, err)
	assert.True(t, got.Append)
	assert.Len(t, got.Nodes, 2)
	assert.Len(t, snap.Nodes, 2)
}

func TestClient_Reset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reset", r.URL.Path)
		_, _ = w.Write([]byte(`{"activeNodes":[],"version":7}`))
	}))
	defer srv.Close()

	snap, err := New(srv.URL).Reset(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Nodes)
	assert.Equal(t, uint64(7), snap.Version)
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Status(context.Background())
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Equal(t, "nope", se.Body)
	assert.Contains(t, se.Error(), "401")
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(srv.URL, WithTimeout(50*time.Millisecond)).Status(context.Background())
	require.Error(t, err)
	var se *StatusError
	assert.False(t, errors.As(err, &se))
}

func TestClient_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"activeNodes":`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Status(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestNew_Defaults(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, New("").BaseURL())
}

func TestParseNodeArg(t *testing.T) {
	tests := []struct {
		arg  string
		want activation.Node
	}{
		{"42", activation.Node{ID: "42", Name: "Neuron 42"}},
		{"42:Visual Cortex", activation.Node{ID: "42", Name: "Visual Cortex"}},
		{"42:a:b", activation.Node{ID: "42", Name: "a:b"}},
		{"42:", activation.Node{ID: "42", Name: "Neuron 42"}},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseNodeArg(tt.arg))
		})
	}
}

func TestMissing(t *testing.T) {
	snap := activation.Snapshot{Nodes: []activation.Node{{ID: "a"}, {ID: "c"}}}
	assert.Equal(t, []string{"b", "d"}, Missing([]string{"a", "b", "c", "d"}, snap))
	assert.Nil(t, Missing([]string{"a"}, snap))
}

func TestClient_Audit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audit", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"events":[{"id":"e1","action":"reset","version":4}],"total":9}`))
	}))
	defer srv.Close()

	page, err := New(srv.URL).Audit(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), page.Total)
	require.Len(t, page.Events, 1)
	assert.Equal(t, audit.ActionReset, page.Events[0].Action)
}
