package updater

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		current, latest string
		want            bool
	}{
		{"v1.0.0", "v1.0.1", true},
		{"v1.0.9", "v1.0.10", true},
		{"1.2.0", "v1.10.0", true},
		{"v1.2.0", "v1.2.0", false},
		{"v2.0.0", "v1.9.9", false},
		{"v1.2", "v1.2.1", true},
		{"v1.2.0-rc1", "v1.2.0", true},
		{"v1.2.0", "v1.2.0-rc1", false},
		{"v1.2.0-rc1", "v1.2.0-rc2", true},
		{"dev", "v9.9.9", false},
		{"", "v1.0.0", false},
		{"v1.0.0", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.current+"->"+tt.latest, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareVersions(tt.current, tt.latest))
		})
	}
}

func TestChecker_CheckLatestVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/me/app/releases/latest", r.URL.Path)
		w.Write([]byte(`{"tag_name":"v1.4.0","name":"1.4","html_url":"https://example.com/r"}`))
	}))
	defer srv.Close()

	c := &Checker{Repo: "me/app", BaseURL: srv.URL + "/", Client: srv.Client()}
	version, err := c.CheckLatestVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1.4.0", version)
}

func TestChecker_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"not found", http.StatusNotFound, "", "status 404"},
		{"bad json", http.StatusOK, "not json", "failed to parse"},
		{"no tag", http.StatusOK, `{"name":"untagged"}`, "no tag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := &Checker{Repo: "me/app", BaseURL: srv.URL}
			_, err := c.CheckLatestVersion(context.Background())
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestChecker_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &Checker{Repo: "me/app", BaseURL: srv.URL}
	_, err := c.CheckLatestVersion(ctx)
	assert.Error(t, err)
}
