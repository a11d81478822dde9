package beer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"BeerAPI/internal/beer"
	"BeerAPI/pkg/kit"
)

type testEnv struct {
	ts     *httptest.Server
	store  *beer.MemStore
	client *beer.Client
	seeded []beer.Beer
}

func newTestEnv(t *testing.T, configure func(s *beer.Server, deps *beer.HTTPDeps)) *testEnv {
	t.Helper()

	store := beer.NewMemStore()
	seeded := beer.DefaultSeed()
	require.NoError(t, beer.Seed(context.Background(), store, seeded))

	s := &beer.Server{
		Service: beer.NewService(store, zap.NewNop(), nil),
		Store:   store,
		Log:     zap.NewNop(),
	}
	deps := beer.HTTPDeps{
		Log:     zap.NewNop(),
		Service: "beer",
	}
	if configure != nil {
		configure(s, &deps)
	}

	h, err := beer.NewHandler(s, deps)
	require.NoError(t, err)

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, store: store, client: beer.NewClient(ts.URL), seeded: seeded}
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (e *testEnv) url(path string) string {
	return e.ts.URL + beer.BasePath + path
}

func TestHTTP_List(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, raw := doJSON(t, http.MethodGet, env.url(beer.PathList), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var beers []map[string]any
	require.NoError(t, json.Unmarshal(raw, &beers))
	require.Len(t, beers, 3)
	assert.Equal(t, "Galaxy Cat", beers[0]["beerName"])
	assert.Equal(t, "PALE_ALE", beers[0]["beerStyle"])
	assert.Equal(t, "12.99", beers[0]["price"])
}

func TestHTTP_GetByID(t *testing.T) {
	env := newTestEnv(t, nil)
	want := env.seeded[0]

	for _, path := range []string{
		"/" + want.ID.String(),
		beer.PathGetByID + "?beerId=" + want.ID.String(),
	} {
		t.Run(path, func(t *testing.T) {
			resp, raw := doJSON(t, http.MethodGet, env.url(path), nil, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

			var got map[string]any
			require.NoError(t, json.Unmarshal(raw, &got))
			assert.Equal(t, want.ID.String(), got["id"])
			assert.Equal(t, want.Name, got["beerName"])
		})
	}
}

func TestHTTP_GetByIDNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	id := uuid.NewString()

	for _, path := range []string{"/" + id, beer.PathGetByID + "?beerId=" + id} {
		resp, raw := doJSON(t, http.MethodGet, env.url(path), nil, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Empty(t, raw)
	}
}

func TestHTTP_BadID(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/not-a-uuid"},
		{http.MethodGet, beer.PathGetByID},
		{http.MethodGet, beer.PathGetByID + "?beerId=nope"},
		{http.MethodPut, beer.PathUpdate + "?beerId=nope"},
		{http.MethodDelete, beer.PathDelete},
		{http.MethodPatch, beer.PathPatch + "?beerId=nope"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp, raw := doJSON(t, tt.method, env.url(tt.path), "{}", nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var er kit.ErrorResponse
			require.NoError(t, json.Unmarshal(raw, &er))
			assert.NotEmpty(t, er.Error)
			assert.NotEmpty(t, er.RequestID)
		})
	}
}

func TestHTTP_Create(t *testing.T) {
	env := newTestEnv(t, nil)

	in := env.seeded[0]
	in.ID = uuid.Nil
	in.Version = 0

	resp, raw := doJSON(t, http.MethodPost, env.url(beer.PathCreate), in, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	assert.Empty(t, raw)

	loc := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(loc, beer.BasePath+"/"), loc)

	resp, raw = doJSON(t, http.MethodGet, env.ts.URL+loc, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got beer.Beer
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, in.Name, got.Name)
	assert.Equal(t, 1, got.Version)
	assert.NotEqual(t, env.seeded[0].ID, got.ID)
}

func TestHTTP_CreateRejectsBadBody(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, body := range []string{
		`{"beerName":`,
		`{"beerName":"x","unknown":1}`,
		`{"beerStyle":"CIDER"}`,
		`{"beerName":"a"}{"beerName":"b"}`,
	} {
		resp, _ := doJSON(t, http.MethodPost, env.url(beer.PathCreate), body, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestHTTP_Update(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.seeded[1].ID

	body := map[string]any{
		"beerName":       "Renamed",
		"beerStyle":      "STOUT",
		"upc":            "777",
		"quantityOnHand": 3,
		"price":          "4.20",
	}
	resp, raw := doJSON(t, http.MethodPut, env.url(beer.PathUpdate+"?beerId="+id.String()), body, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode, string(raw))

	got, found, err := env.store.Get(context.Background(), id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, beer.Stout, got.Style)
	assert.Equal(t, 1, got.Version)
	assert.True(t, decimal.RequireFromString("4.20").Equal(got.Price))
}

func TestHTTP_MutationsOnUnknownID(t *testing.T) {
	env := newTestEnv(t, nil)
	q := "?beerId=" + uuid.NewString()

	tests := []struct {
		method, path, body string
	}{
		{http.MethodPut, beer.PathUpdate, `{"beerName":"x"}`},
		{http.MethodDelete, beer.PathDelete, ""},
		{http.MethodPatch, beer.PathPatch, `{"beerName":"x"}`},
	}
	for _, tt := range tests {
		var body any
		if tt.body != "" {
			body = tt.body
		}
		resp, raw := doJSON(t, tt.method, env.url(tt.path+q), body, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, tt.method)
		assert.Empty(t, raw)
	}

	beers, err := env.store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, beers, 3)
}

func TestHTTP_Delete(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.seeded[2].ID

	resp, _ := doJSON(t, http.MethodDelete, env.url(beer.PathDelete+"?beerId="+id.String()), nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, env.url("/"+id.String()), nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTP_Patch(t *testing.T) {
	env := newTestEnv(t, nil)
	before := env.seeded[0]

	// beer-shaped bodies are accepted; only supplied fields change
	body := map[string]any{"beerName": "New Name", "id": uuid.NewString()}
	resp, raw := doJSON(t, http.MethodPatch, env.url(beer.PathPatch+"?beerId="+before.ID.String()), body, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode, string(raw))

	got, _, err := env.store.Get(context.Background(), before.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.Name)
	assert.Equal(t, before.ID, got.ID)
	assert.Equal(t, before.UPC, got.UPC)
	assert.Equal(t, before.QuantityOnHand, got.QuantityOnHand)
	assert.True(t, before.UpdateDate.Equal(got.UpdateDate))
}

func TestHTTP_Health(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, p := range []string{"/healthz", "/readyz"} {
		resp, _ := doJSON(t, http.MethodGet, env.ts.URL+p, nil, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, p)
	}
}

type downStore struct{ beer.Store }

func (downStore) Ping(context.Context) error { return context.DeadlineExceeded }

func TestHTTP_ReadyzStoreDown(t *testing.T) {
	env := newTestEnv(t, func(s *beer.Server, _ *beer.HTTPDeps) {
		s.Store = downStore{s.Store}
	})

	resp, _ := doJSON(t, http.MethodGet, env.ts.URL+"/readyz", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHTTP_RateLimitOnMutations(t *testing.T) {
	env := newTestEnv(t, func(s *beer.Server, _ *beer.HTTPDeps) {
		s.Limiter = kit.NewIPRateLimiter(2, time.Minute)
	})

	for i := 0; i < 2; i++ {
		resp, _ := doJSON(t, http.MethodPost, env.url(beer.PathCreate), `{"beerName":"x"}`, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, _ := doJSON(t, http.MethodPost, env.url(beer.PathCreate), `{"beerName":"x"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))

	resp, _ = doJSON(t, http.MethodGet, env.url(beer.PathList), nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "reads are not limited")
}

func TestHTTP_Metrics(t *testing.T) {
	env := newTestEnv(t, func(_ *beer.Server, deps *beer.HTTPDeps) {
		deps.Registry = prometheus.NewRegistry()
		deps.MetricsEnabled = true
		deps.MetricsToken = "scrape-token"
	})

	doJSON(t, http.MethodGet, env.url("/"+env.seeded[0].ID.String()), nil, nil)

	resp, _ := doJSON(t, http.MethodGet, env.ts.URL+"/metrics", nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw := doJSON(t, http.MethodGet, env.ts.URL+"/metrics", nil, map[string]string{
		"Authorization": "Bearer scrape-token",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `path="/api/v1/beer/{beerId}"`)
}

func TestClient_RoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	c := env.client

	id, err := c.Create(ctx, beer.Beer{
		Name:           "Client Ale",
		Style:          beer.Ale,
		UPC:            "42",
		QuantityOnHand: 10,
		Price:          decimal.RequireFromString("5.00"),
	})
	require.NoError(t, err)

	got, err := c.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Client Ale", got.Name)

	name := "Client Ale Reloaded"
	require.NoError(t, c.Patch(ctx, id, beer.Patch{Name: &name}))

	got.Name = "Replaced"
	require.NoError(t, c.Update(ctx, id, got))

	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 4)

	require.NoError(t, c.Delete(ctx, id))
	_, err = c.Get(ctx, id)
	assert.ErrorIs(t, err, beer.ErrNotFound)
	assert.ErrorIs(t, c.Delete(ctx, id), beer.ErrNotFound)
}

func TestClient_Unavailable(t *testing.T) {
	c := beer.NewClient("http://127.0.0.1:1")
	_, err := c.List(context.Background())
	assert.ErrorIs(t, err, beer.ErrUnavailable)
}
