package yahoo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/tokyorisk/internal/domain"
	"github.com/aristath/tokyorisk/pkg/formulas"
)

var testNow = time.Date(2024, 3, 11, 5, 46, 0, 0, time.UTC)

type alwaysOpen bool

func (a alwaysOpen) IsMarketOpen(time.Time) bool { return bool(a) }

// chartJSON renders daily bars starting 2024-01-01 UTC. A nil close is
// rendered as JSON null.
func chartJSON(t *testing.T, closes []*float64) string {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	timestamps := make([]int64, len(closes))
	volumes := make([]*float64, len(closes))
	for i := range closes {
		timestamps[i] = start.AddDate(0, 0, i).Unix()
		v := float64(1000 * (i + 1))
		volumes[i] = &v
	}
	body := map[string]interface{}{
		"chart": map[string]interface{}{
			"result": []interface{}{
				map[string]interface{}{
					"timestamp": timestamps,
					"indicators": map[string]interface{}{
						"quote": []interface{}{
							map[string]interface{}{
								"close":  closes,
								"high":   closes,
								"low":    closes,
								"volume": volumes,
							},
						},
					},
				},
			},
			"error": nil,
		},
	}
	data, err := json.Marshal(body)
	require.NoError(t, err)
	return string(data)
}

func ptrs(values ...float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		v := values[i]
		out[i] = &v
	}
	return out
}

// walk produces n closes from a deterministic, non-constant return sequence
func walk(n int, start float64, sign float64) []float64 {
	closes := []float64{start}
	for i := 1; i < n; i++ {
		r := 0.01 * float64((i*7)%5-2) / 2
		closes = append(closes, closes[i-1]*(1+sign*r))
	}
	return closes
}

func newServer(t *testing.T, bodies map[string]string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		body, ok := bodies[strings.TrimPrefix(r.URL.Path, "/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(url string, tickers []Ticker) *Client {
	return NewClient(url, tickers, time.Second, alwaysOpen(true), domain.FixedClock{T: testNow}, zerolog.Nop())
}

func TestParseTickers(t *testing.T) {
	tickers, err := ParseTickers(" nikkei=^N225, jpy_usd = USDJPY=X ,")
	require.NoError(t, err)
	assert.Equal(t, []Ticker{{"nikkei", "^N225"}, {"jpy_usd", "USDJPY=X"}}, tickers)

	for _, bad := range []string{"", "nikkei", "=^N225", "a=b,a=c"} {
		_, err := ParseTickers(bad)
		assert.Error(t, err, bad)
	}
}

func TestSnapshot(t *testing.T) {
	h := History{Symbol: "^N225", Bars: []Bar{
		{Close: 100, High: 101, Low: 99, Volume: 1000},
		{Close: 102, High: 103, Low: 100, Volume: 3000},
	}}

	snap := Snapshot(h, testNow, true)

	assert.Equal(t, "^N225", snap.Symbol)
	assert.Equal(t, 102.0, snap.Price)
	assert.Equal(t, 100.0, snap.PreviousClose)
	assert.InDelta(t, 2.0, snap.ChangePercent, 1e-12)
	assert.Equal(t, DefaultVolatility, snap.Volatility)
	assert.Equal(t, 3000.0, snap.Volume)
	assert.Equal(t, 2000.0, snap.AvgVolume)
	assert.Equal(t, 103.0, snap.High)
	assert.True(t, snap.Live)
	assert.Equal(t, testNow, snap.Timestamp)
}

func TestVolatility(t *testing.T) {
	short := walk(MinVolatilityReturns, 100, 1)
	assert.Equal(t, DefaultVolatility, Volatility(short))

	long := walk(60, 100, 1)
	want := formulas.AnnualizedVolatility(formulas.CalculateReturns(long))
	assert.InDelta(t, want, Volatility(long), 1e-12)
	assert.NotEqual(t, DefaultVolatility, Volatility(long))
}

func TestFetchHistory_DropsNullClosesAndCaches(t *testing.T) {
	closes := ptrs(100, 101, 102)
	closes[1] = nil
	var calls atomic.Int32
	server := newServer(t, map[string]string{"^N225": chartJSON(t, closes)}, &calls)
	client := newTestClient(server.URL, nil)

	h, err := client.FetchHistory(context.Background(), "^N225", "")
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 102}, h.Closes())

	_, err = client.FetchHistory(context.Background(), "^N225", "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchSummary(t *testing.T) {
	server := newServer(t, map[string]string{
		"^N225":    chartJSON(t, ptrs(walk(40, 33000, 1)...)),
		"USDJPY=X": chartJSON(t, ptrs(150, 151.5)),
	}, nil)
	client := newTestClient(server.URL, []Ticker{
		{"nikkei", "^N225"},
		{"jpy_usd", "USDJPY=X"},
		{"sony", "SONY"},
	})

	summary, err := client.FetchSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, 2, summary.Available())

	nikkei, ok := summary.Get("nikkei")
	require.True(t, ok)
	assert.True(t, nikkei.Live)
	assert.NotEqual(t, DefaultVolatility, nikkei.Volatility)

	jpy, ok := summary.Get("jpy_usd")
	require.True(t, ok)
	assert.InDelta(t, 1.0, jpy.ChangePercent, 1e-9)

	_, ok = summary.Get("sony")
	assert.False(t, ok)
}

func TestFetchSummary_NothingAvailable(t *testing.T) {
	server := newServer(t, map[string]string{}, nil)
	client := newTestClient(server.URL, []Ticker{{"nikkei", "^N225"}})

	summary, err := client.FetchSummary(context.Background())
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, 0, summary.Available())
}

func TestFetchCorrelation(t *testing.T) {
	base := walk(30, 100, 1)
	scaled := make([]float64, len(base))
	for i, v := range base {
		scaled[i] = 2 * v
	}
	server := newServer(t, map[string]string{
		"A": chartJSON(t, ptrs(base...)),
		"B": chartJSON(t, ptrs(scaled...)),
		"C": chartJSON(t, ptrs(walk(30, 50, -1)...)),
	}, nil)
	client := newTestClient(server.URL, []Ticker{{"a", "A"}, {"b", "B"}, {"c", "C"}, {"missing", "X"}})

	m, err := client.FetchCorrelation(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, m.Labels)
	assert.Equal(t, 1.0, m.Values[0][0])
	assert.InDelta(t, 1.0, m.Values[0][1], 1e-9)
	assert.Less(t, m.Values[0][2], -0.9)
	assert.Equal(t, m.Values[0][2], m.Values[2][0])
	assert.NoError(t, m.Validate())
}

func TestCorrelationMatrix_AlignsDates(t *testing.T) {
	day := func(i int) time.Time { return time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC) }
	a := History{Bars: []Bar{{Time: day(0), Close: 100}, {Time: day(1), Close: 101}, {Time: day(2), Close: 99}, {Time: day(3), Close: 102}}}
	b := History{Bars: []Bar{{Time: day(0), Close: 10}, {Time: day(2), Close: 9.8}, {Time: day(3), Close: 10.1}}}

	m, err := CorrelationMatrix([]string{"a", "b"}, map[string]History{"a": a, "b": b})
	require.NoError(t, err)
	require.Equal(t, 2, m.Size())
	// Over the common dates both series fall then rise
	assert.InDelta(t, 1.0, m.Values[0][1], 1e-9)
}

func TestCorrelationMatrix_TooLittleData(t *testing.T) {
	m, err := CorrelationMatrix([]string{"a"}, map[string]History{"a": {}})
	require.NoError(t, err)
	assert.True(t, m.Empty())

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	short := History{Bars: []Bar{{Time: day, Close: 1}, {Time: day.AddDate(0, 0, 1), Close: 2}}}
	m, err = CorrelationMatrix([]string{"a", "b"}, map[string]History{"a": short, "b": short})
	require.NoError(t, err)
	assert.True(t, m.Empty())
}
