package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phototrip/phototrip/internal/controller"
	"github.com/phototrip/phototrip/internal/dispatcher"
)

func TestNewClient(t *testing.T) {
	c := NewClient("http://localhost:8080/", "secret123")

	assert.Equal(t, "http://localhost:8080", c.baseURL)
	assert.Equal(t, "secret123", c.apiKey)
	assert.NotNil(t, c.httpClient)
}

func TestClient_Healthcheck(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	server := httptest.NewServer(r)
	defer server.Close()

	assert.NoError(t, NewClient(server.URL, "").Healthcheck())
}

func TestClient_HealthcheckServerDown(t *testing.T) {
	err := NewClient("http://127.0.0.1:1", "").Healthcheck()
	assert.Error(t, err)
}

func TestClient_HealthcheckServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	assert.Error(t, NewClient(server.URL, "").Healthcheck())
}

func TestClient_Command(t *testing.T) {
	r, d := newTestRouter(t, func(d *Dependencies) { d.APIKey = "k" })
	server := httptest.NewServer(r)
	defer server.Close()

	res, err := NewClient(server.URL, "k").Command(controller.CmdFilter, "2024")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(res, &got))
	assert.Equal(t, controller.CmdFilter, got["command"])
	assert.Equal(t, []string{"2024"}, d.last(t).Args)

	_, err = NewClient(server.URL, "wrong").Command(controller.CmdPlay)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_CommandError(t *testing.T) {
	r, d := newTestRouter(t, nil)
	d.err = dispatcher.ErrUnknownCommand
	server := httptest.NewServer(r)
	defer server.Close()

	_, err := NewClient(server.URL, "").Command("rewind")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
	assert.Contains(t, err.Error(), "404")
}

func TestClient_State(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	server := httptest.NewServer(r)
	defer server.Close()

	raw, err := NewClient(server.URL, "").State()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"phase":"idle"`)
}
