package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

func testConfig() config.FetcherConfig {
	return config.FetcherConfig{
		Timeout:          time.Second,
		MaxAttempts:      3,
		InitialDelay:     time.Millisecond,
		FailureThreshold: 10,
		ResetTimeout:     time.Minute,
		MaxBodyBytes:     1024,
		UserAgent:        "docsearch-test",
	}
}

func TestHTMLToText(t *testing.T) {
	got := HTMLToText(`<p>The <b>quick</b> fox</p><script>var x;</script>&amp;`)
	assert.Equal(t, " The  quick  fox  var x; &amp;", got)
}

func TestFetchRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "docsearch-test", r.UserAgent())
		w.Write([]byte("<html>quick fox</html>"))
	}))
	defer srv.Close()

	m := metrics.New(prometheus.NewRegistry())
	f := New(testConfig(), srv.Client(), m)
	text, err := f.FetchText(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, " quick fox ", text)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchesTotal.WithLabelValues("ok")))
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(testConfig(), srv.Client(), nil)
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.EqualValues(t, 3, calls.Load())
}

func TestFetchClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := New(testConfig(), srv.Client(), nil)
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, apperrors.ErrFetch)
	assert.EqualValues(t, 1, calls.Load())
}

func TestFetchBodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	f := New(testConfig(), srv.Client(), nil)
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, apperrors.ErrFetch)
}

func TestFetchUnreachableOpensBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	cfg := testConfig()
	cfg.MaxAttempts = 1
	cfg.FailureThreshold = 2
	m := metrics.New(prometheus.NewRegistry())
	f := New(cfg, nil, m)

	for i := 0; i < 2; i++ {
		_, err := f.Fetch(context.Background(), url)
		assert.ErrorIs(t, err, apperrors.ErrFetch)
	}
	_, err := f.Fetch(context.Background(), url)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, float64(resilience.StateOpen), testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("fetcher")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.FetchesTotal.WithLabelValues("error")))
}

func TestFetchLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.html")
	require.NoError(t, os.WriteFile(path, []byte("<h1>brown fox</h1>"), 0o644))

	f := New(testConfig(), nil, nil).WithLocalFiles()
	text, err := f.FetchText(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, " brown fox ", text)

	_, err = f.Fetch(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, apperrors.ErrFetch)
}

func TestFetchRejectsLocalPathsByDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(path, []byte("private"), 0o644))

	f := New(testConfig(), nil, nil)
	for _, source := range []string{path, "file://" + path, "ftp://example.com/doc"} {
		body, err := f.Fetch(context.Background(), source)
		assert.Nil(t, body, source)
		assert.ErrorIs(t, err, apperrors.ErrFetch, source)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput, source)
	}
}
