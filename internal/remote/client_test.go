package remote

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testServiceKey = "service-role-key-1234" // pragma: allowlist secret

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(NewConfig(srv.URL+"/", testServiceKey), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	return client
}

func TestClient_ExecutePostsStatement(t *testing.T) {
	var (
		gotPath string
		gotBody map[string]string
		gotKey  string
		gotAuth string
	)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")

		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.WriteHeader(http.StatusNoContent)
	})

	err := client.Execute(t.Context(), "INSERT INTO supplements (id) VALUES (1);")
	require.NoError(t, err)

	assert.Equal(t, "/rest/v1/rpc/exec_sql", gotPath)
	assert.Equal(t, "INSERT INTO supplements (id) VALUES (1);", gotBody["sql_query"])
	assert.Equal(t, testServiceKey, gotKey)
	assert.Equal(t, "Bearer "+testServiceKey, gotAuth)
}

func TestClient_ExecuteStatusClassification(t *testing.T) {
	tests := []struct {
		status  int
		wantErr bool
	}{
		{http.StatusOK, false},
		{http.StatusCreated, false},
		{http.StatusNoContent, false},
		{http.StatusAccepted, true},
		{http.StatusBadRequest, true},
		{http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message":"syntax error at or near \"(\""}`))
			})

			err := client.Execute(t.Context(), "SELECT 1;")
			if !tt.wantErr {
				assert.NoError(t, err)

				return
			}

			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Contains(t, err.Error(), "syntax error")
		})
	}
}

func TestClient_CountRows(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		status  int
		want    int64
		wantErr error
	}{
		{name: "exact total", header: "0-24/1000", status: http.StatusOK, want: 1000},
		{name: "empty table", header: "*/0", status: http.StatusOK, want: 0},
		{name: "missing header", status: http.StatusOK, wantErr: ErrCountUnavailable},
		{name: "unknown total", header: "0-24/*", status: http.StatusPartialContent, wantErr: ErrCountUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodHead, r.Method)
				assert.Equal(t, "/rest/v1/interactions", r.URL.Path)
				assert.Equal(t, "count", r.URL.Query().Get("select"))
				assert.Equal(t, "count=exact", r.Header.Get("Prefer"))

				if tt.header != "" {
					w.Header().Set("Content-Range", tt.header)
				}

				w.WriteHeader(tt.status)
			})

			got, err := client.CountRows(t.Context(), "interactions")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_CountRowsServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.CountRows(t.Context(), "supplements")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.NotErrorIs(t, err, ErrCountUnavailable)
}

func TestClient_SampleRows(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "*", r.URL.Query().Get("select"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"name":"Fish Oil"},{"id":2,"name":"St. John's Wort"}]`))
	})

	rows, err := client.SampleRows(t.Context(), "supplements", 5)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.JSONEq(t, `{"id":1,"name":"Fish Oil"}`, string(rows[0]))
}

func TestClient_SampleRowsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"relation does not exist"}`))
	})

	rows, err := client.SampleRows(t.Context(), "missing", 5)
	assert.Nil(t, rows)
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr error
	}{
		{"valid", NewConfig("https://project.example.co", testServiceKey), nil},
		{"empty url", NewConfig("", testServiceKey), ErrRemoteURLEmpty},
		{"relative url", NewConfig("project.example.co", testServiceKey), ErrRemoteURLInvalid},
		{"wrong scheme", NewConfig("ftp://project.example.co", testServiceKey), ErrRemoteURLInvalid},
		{"missing key", NewConfig("https://project.example.co", " "), ErrServiceKeyEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("SEED_REMOTE_URL", "https://project.example.co/")
	t.Setenv("SEED_SERVICE_KEY", testServiceKey)

	cfg := LoadConfig()

	assert.Equal(t, "https://project.example.co", cfg.BaseURL)
	assert.Equal(t, defaultExecFunction, cfg.ExecFunction)
	assert.Equal(t, "***1234", cfg.MaskServiceKey())
	assert.NoError(t, cfg.Validate())
}
