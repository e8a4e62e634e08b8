package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsolatedRegistries(t *testing.T) {
	a := New()
	b := New()

	a.PostingsAddedTotal.Add(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(a.PostingsAddedTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PostingsAddedTotal))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.StoreKeys.Set(42)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body), "flatindex_store_keys 42")
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.DocumentsVisitedTotal.Add(5)

	path := filepath.Join(t.TempDir(), "flatindex.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "flatindex_documents_visited_total 5")
}
