package gedump

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchDumpParsesItemsAndSkipsMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Write([]byte(`{
			"%LAST_UPDATE%": 1735689600,
			"2": {"name": "Cannonball", "limit": 25000, "price": 300, "volume": 500000},
			"4151": {"name": "Abyssal whip", "price": 120000},
			"9999": {"name": "Broken entry"}
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, srv.URL, "test-agent", 5*time.Second)
	day := time.Date(2025, 1, 2, 13, 45, 0, 0, time.UTC)

	snaps, err := c.FetchDump(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	assert.Equal(t, int64(2), snaps[0].ItemID)
	assert.Equal(t, "Cannonball", snaps[0].Name)
	assert.Equal(t, int64(25000), snaps[0].GELimit)
	assert.Equal(t, int64(300), snaps[0].Price)
	assert.Equal(t, int64(500000), snaps[0].Volume)
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), snaps[0].Day)

	// missing limit falls back to the default, missing volume to zero
	assert.Equal(t, int64(4151), snaps[1].ItemID)
	assert.Equal(t, int64(10000), snaps[1].GELimit)
	assert.Zero(t, snaps[1].Volume)
}

func TestFetchItemHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "4151", r.URL.Query().Get("id"))
		w.Write([]byte(`{
			"4151": [
				{"timestamp": 1735689600000, "price": 119000, "volume": 1200},
				{"timestamp": 1735776000000, "price": 121000, "volume": null}
			]
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, srv.URL, "test-agent", 5*time.Second)

	snaps, err := c.FetchItemHistory(context.Background(), 4151)
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), snaps[0].Day)
	assert.Equal(t, int64(119000), snaps[0].Price)
	assert.Equal(t, int64(1200), snaps[0].Volume)
	assert.Zero(t, snaps[1].Volume)
}

func TestFetchDumpHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, srv.URL, "test-agent", 5*time.Second)
	_, err := c.FetchDump(context.Background(), time.Now())
	assert.Error(t, err)
}
