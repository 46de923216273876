package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/feedconv/internal/domain"
	"github.com/alanyoungcy/feedconv/internal/service"
)

type stubConversions struct {
	convert func(service.ConvertInput) (domain.Conversion, error)
	stored  map[string]domain.Conversion
	listErr error
	lastOpt domain.ListOpts
}

func (s *stubConversions) Convert(_ context.Context, in service.ConvertInput) (domain.Conversion, error) {
	return s.convert(in)
}

func (s *stubConversions) Get(_ context.Context, id string) (domain.Conversion, error) {
	c, ok := s.stored[id]
	if !ok {
		return domain.Conversion{}, fmt.Errorf("get %s: %w", id, domain.ErrNotFound)
	}
	return c, nil
}

func (s *stubConversions) Recent(_ context.Context, opts domain.ListOpts) ([]domain.Conversion, error) {
	s.lastOpt = opts
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.Conversion
	for _, c := range s.stored {
		out = append(out, c)
	}
	return out, nil
}

type stubFeeds struct {
	feeds []domain.Feed
	err   error
}

func (s stubFeeds) Feeds(context.Context) ([]domain.Feed, error) { return s.feeds, s.err }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func postConvert(t *testing.T, h *ConversionHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Convert(rec, req)
	return rec
}

func TestConvertOK(t *testing.T) {
	stub := &stubConversions{convert: func(in service.ConvertInput) (domain.Conversion, error) {
		assert.Equal(t, service.ConvertInput{Amount: "5", From: "A", To: "B"}, in)
		return domain.Conversion{ID: "c1", Result: "500", Route: []domain.AssetCode{"A", "B"}}, nil
	}}
	h := NewConversionHandler(stub, discardLogger())

	rec := postConvert(t, h, `{"amount":"5","from":"A","to":"B"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp convertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, convertResponse{ID: "c1", Result: "500", Route: []domain.AssetCode{"A", "B"}}, resp)
}

func TestConvertErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
		msg  string
	}{
		{fmt.Errorf("svc: %w", domain.ErrInvalidAmount), http.StatusBadRequest, "invalid amount"},
		{fmt.Errorf("svc: %w", domain.ErrInvalidAsset), http.StatusBadRequest, "invalid asset code"},
		{fmt.Errorf("svc: %w: from A to Z", domain.ErrNoRouteFound), http.StatusUnprocessableEntity, "no route found"},
		{fmt.Errorf("svc: %w", domain.ErrNonTerminating), http.StatusUnprocessableEntity, "result is not a terminating decimal"},
		{fmt.Errorf("svc: %w: dial tcp", domain.ErrOracleUnavailable), http.StatusBadGateway, "oracle unavailable"},
		{fmt.Errorf("svc: %w", domain.ErrInvalidAnswer), http.StatusBadGateway, "invalid oracle answer"},
		{domain.ErrTransportConfig, http.StatusInternalServerError, "Either 'provider' or 'endpoint' must be defined"},
		{errors.New("postgres: password=hunter2"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			stub := &stubConversions{convert: func(service.ConvertInput) (domain.Conversion, error) {
				return domain.Conversion{ID: "c2"}, tt.err
			}}
			rec := postConvert(t, NewConversionHandler(stub, discardLogger()), `{"amount":"1","from":"A","to":"B"}`)

			assert.Equal(t, tt.code, rec.Code)
			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.msg, resp.Error)
			assert.Equal(t, "c2", resp.ID)
		})
	}
}

func TestConvertBadBody(t *testing.T) {
	stub := &stubConversions{convert: func(service.ConvertInput) (domain.Conversion, error) {
		t.Fatal("service must not be called")
		return domain.Conversion{}, nil
	}}
	h := NewConversionHandler(stub, discardLogger())

	for _, body := range []string{`not json`, `{"amount":5}`, `{"amount":"1","from":"A","to":"B","extra":true}`} {
		rec := postConvert(t, h, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestGetConversion(t *testing.T) {
	stub := &stubConversions{stored: map[string]domain.Conversion{
		"c1": {ID: "c1", Result: "42", Status: domain.ConversionOK},
	}}
	h := NewConversionHandler(stub, discardLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/conversions/{id}", h.GetConversion)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversions/c1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Conversion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "42", got.Result)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversions/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListConversions(t *testing.T) {
	stub := &stubConversions{stored: map[string]domain.Conversion{"c1": {ID: "c1"}}}
	h := NewConversionHandler(stub, discardLogger())

	rec := httptest.NewRecorder()
	h.ListConversions(rec, httptest.NewRequest(http.MethodGet, "/api/conversions?limit=900&offset=3&since=2026-01-02T00:00:00Z", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 500, stub.lastOpt.Limit)
	assert.Equal(t, 3, stub.lastOpt.Offset)
	require.NotNil(t, stub.lastOpt.Since)
	assert.Nil(t, stub.lastOpt.Until)

	stub.listErr = fmt.Errorf("disabled: %w", domain.ErrNotFound)
	rec = httptest.NewRecorder()
	h.ListConversions(rec, httptest.NewRequest(http.MethodGet, "/api/conversions", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalog(t *testing.T) {
	feeds := []domain.Feed{{ID: 1, From: "ETH", To: "USD", Address: common.HexToAddress("0x01"), Decimals: 8}}
	h := NewCatalogHandler(stubFeeds{feeds: feeds}, nil, discardLogger())

	rec := httptest.NewRecorder()
	h.ListFeeds(rec, httptest.NewRequest(http.MethodGet, "/api/feeds", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var fr listFeedsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fr))
	assert.Equal(t, feeds, fr.Feeds)

	rec = httptest.NewRecorder()
	h.ListAssets(rec, httptest.NewRequest(http.MethodGet, "/api/assets", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var ar listAssetsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ar))
	assert.Contains(t, ar.Assets, domain.AssetCode("USD"))

	h = NewCatalogHandler(stubFeeds{err: errors.New("boom")}, nil, discardLogger())
	rec = httptest.NewRecorder()
	h.ListFeeds(rec, httptest.NewRequest(http.MethodGet, "/api/feeds", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{
		"postgres": PingFunc(func(context.Context) error { return nil }),
	}, discardLogger())
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	h = NewHealthHandler(map[string]Pinger{
		"redis": PingFunc(func(context.Context) error { return errors.New("refused") }),
	}, discardLogger())
	rec = httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"unavailable"`)
}

type memEditor struct {
	feeds map[int]domain.Feed
}

func (m *memEditor) Upsert(_ context.Context, f domain.Feed) error {
	m.feeds[f.ID] = f
	return nil
}

func (m *memEditor) Delete(_ context.Context, id int) error {
	if _, ok := m.feeds[id]; !ok {
		return fmt.Errorf("delete %d: %w", id, domain.ErrNotFound)
	}
	delete(m.feeds, id)
	return nil
}

func TestFeedEditing(t *testing.T) {
	editor := &memEditor{feeds: map[int]domain.Feed{}}
	h := NewCatalogHandler(stubFeeds{}, editor, discardLogger())
	require.True(t, h.Editable())

	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/feeds/{id}", h.PutFeed)
	mux.HandleFunc("DELETE /api/feeds/{id}", h.DeleteFeed)

	do := func(method, path, body string) int {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rec.Code
	}

	body := `{"from":"BTC","to":"USD","address":"0xF4030086522a5bEEa4988F8cA5B36dbC97BeE88c","decimals":8}`
	assert.Equal(t, http.StatusOK, do(http.MethodPut, "/api/feeds/7", body))
	require.Contains(t, editor.feeds, 7)
	assert.Equal(t, domain.AssetCode("BTC"), editor.feeds[7].From)

	assert.Equal(t, http.StatusBadRequest, do(http.MethodPut, "/api/feeds/x", body))
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPut, "/api/feeds/8", `{"from":"BTC","to":"USD","address":"nope","decimals":8}`))
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPut, "/api/feeds/8", `{"from":"USD","to":"USD","address":"0xF4030086522a5bEEa4988F8cA5B36dbC97BeE88c","decimals":8}`))

	assert.Equal(t, http.StatusNoContent, do(http.MethodDelete, "/api/feeds/7", ""))
	assert.Equal(t, http.StatusNotFound, do(http.MethodDelete, "/api/feeds/7", ""))
}
