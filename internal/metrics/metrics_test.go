package metrics

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/feedconv/internal/domain"
)

type stubOracle struct {
	answer *big.Int
	err    error
}

func (s stubOracle) LatestAnswer(context.Context, common.Address) (*big.Int, error) {
	return s.answer, s.err
}

func TestObserveConversion(t *testing.T) {
	m := New()

	m.ObserveConversion(domain.ConversionOK, 2, 10*time.Millisecond)
	m.ObserveConversion(domain.ConversionOK, 1, 5*time.Millisecond)
	m.ObserveConversion(domain.ConversionFailed, 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.conversions.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conversions.WithLabelValues("failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.conversionDuration))
}

func TestInstrumentOracle(t *testing.T) {
	m := New()
	ctx := context.Background()

	ok := m.InstrumentOracle(stubOracle{answer: big.NewInt(42)})
	answer, err := ok.LatestAnswer(ctx, common.Address{})
	require.NoError(t, err)
	assert.Equal(t, int64(42), answer.Int64())

	boom := errors.New("boom")
	failing := m.InstrumentOracle(stubOracle{err: boom})
	_, err = failing.LatestAnswer(ctx, common.Address{})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.oracleReads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.oracleReads.WithLabelValues("error")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/a", "/b", "/missing"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "404")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "feedconv_http_requests_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
