package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubPorts struct {
	leased []int
}

func (s *stubPorts) Leased() []int {
	return s.leased
}

func testRouter(t *testing.T, ports PortLister) http.Handler {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "admin.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewRouter(db, ports)
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter(t, &stubPorts{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestPortsEndpoint(t *testing.T) {
	router := testRouter(t, &stubPorts{leased: []int{5001, 6000, 12345}})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ports", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Leased []int `json:"leased"`
		Count  int   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []int{5001, 6000, 12345}, body.Leased)
	assert.Equal(t, 3, body.Count)
}
