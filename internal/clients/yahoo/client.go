// Package yahoo provides a client for the Yahoo Finance v8 chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/aristath/tokyorisk/internal/clients/breaker"
	"github.com/aristath/tokyorisk/internal/domain"
	"github.com/aristath/tokyorisk/pkg/formulas"
)

const (
	// DefaultBaseURL is the public chart endpoint
	DefaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	// DefaultRange is the history window used for volatility and correlation
	DefaultRange = "3mo"
	// DefaultVolatility is reported when too few returns are available
	DefaultVolatility = 0.25
	// MinVolatilityReturns is the smallest sample accepted for volatility
	MinVolatilityReturns = 30
	// HistoryTTL bounds how long a fetched history is reused
	HistoryTTL = time.Minute
)

var (
	// ErrUnavailable wraps every transport or decode failure
	ErrUnavailable = errors.New("yahoo feed unavailable")
	// ErrNoData is returned when no instrument could be fetched
	ErrNoData = errors.New("no market data available")
)

// Ticker maps an instrument key to its Yahoo symbol
type Ticker struct {
	Key    string
	Symbol string
}

// DefaultTickers is the Tokyo instrument set
var DefaultTickers = []Ticker{
	{"nikkei", "^N225"},
	{"topix", "1306.T"},
	{"jpy_usd", "USDJPY=X"},
	{"jpy_eur", "EURJPY=X"},
	{"sony", "SONY"},
	{"toyota", "TM"},
	{"softbank", "9984.T"},
	{"nintendo", "NTDOY"},
	{"mitsubishi", "8306.T"},
}

// ParseTickers reads a "key=symbol,key=symbol" list
func ParseTickers(s string) ([]Ticker, error) {
	var out []Ticker
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, symbol, ok := strings.Cut(part, "=")
		key, symbol = strings.TrimSpace(key), strings.TrimSpace(symbol)
		if !ok || key == "" || symbol == "" {
			return nil, fmt.Errorf("invalid ticker %q, want key=symbol", part)
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate ticker key %q", key)
		}
		seen[key] = true
		out = append(out, Ticker{Key: key, Symbol: symbol})
	}
	if len(out) == 0 {
		return nil, errors.New("no tickers configured")
	}
	return out, nil
}

// Bar is one daily observation
type Bar struct {
	Time   time.Time
	Close  float64
	High   float64
	Low    float64
	Volume float64
}

// History is a symbol's daily bars, oldest first
type History struct {
	Symbol string
	Bars   []Bar
}

// Closes returns the close prices in order
func (h History) Closes() []float64 {
	out := make([]float64, len(h.Bars))
	for i, b := range h.Bars {
		out[i] = b.Close
	}
	return out
}

// SessionChecker reports whether the exchange is trading
type SessionChecker interface {
	IsMarketOpen(t time.Time) bool
}

type cachedHistory struct {
	history   History
	fetchedAt time.Time
}

// Client fetches instrument histories and derives snapshots and correlations.
// It implements domain.MarketFeed for its configured tickers.
type Client struct {
	baseURL    string
	tickers    []Ticker
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	session    SessionChecker
	clock      domain.Clock
	cache      map[string]cachedHistory
	mu         sync.Mutex
	log        zerolog.Logger
}

// NewClient creates a new Yahoo chart client. session may be nil, in which
// case snapshots are never tagged live.
func NewClient(baseURL string, tickers []Ticker, timeout time.Duration, session SessionChecker, clock domain.Clock, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if len(tickers) == 0 {
		tickers = DefaultTickers
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tickers: tickers,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: breaker.New("yahoo", log),
		session: session,
		clock:   clock,
		cache:   make(map[string]cachedHistory),
		log:     log.With().Str("component", "yahoo").Logger(),
	}
}

// Tickers returns the configured instrument set
func (c *Client) Tickers() []Ticker {
	return c.tickers
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close  []*float64 `json:"close"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchHistory returns the daily bars of symbol over rangeStr (e.g. "3mo").
// Bars without a close are dropped.
func (c *Client) FetchHistory(ctx context.Context, symbol, rangeStr string) (History, error) {
	if rangeStr == "" {
		rangeStr = DefaultRange
	}
	cacheKey := symbol + "|" + rangeStr
	now := c.clock.Now()

	c.mu.Lock()
	if cached, ok := c.cache[cacheKey]; ok && now.Sub(cached.fetchedAt) < HistoryTTL {
		c.mu.Unlock()
		return cached.history, nil
	}
	c.mu.Unlock()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, symbol, rangeStr)
	})
	if err != nil {
		return History{}, fmt.Errorf("%w: %s: %v", ErrUnavailable, symbol, err)
	}
	history := result.(History)

	c.mu.Lock()
	c.cache[cacheKey] = cachedHistory{history: history, fetchedAt: now}
	c.mu.Unlock()

	return history, nil
}

func (c *Client) doRequest(ctx context.Context, symbol, rangeStr string) (History, error) {
	q := url.Values{}
	q.Set("range", rangeStr)
	q.Set("interval", "1d")
	endpoint := c.baseURL + "/" + url.PathEscape(symbol) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return History{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "tokyorisk/1.0")

	c.log.Debug().Str("symbol", symbol).Str("range", rangeStr).Msg("Making chart request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return History{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return History{}, fmt.Errorf("Yahoo API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return History{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if chart.Chart.Error != nil {
		return History{}, fmt.Errorf("Yahoo API error: %s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return History{}, errors.New("empty chart result")
	}

	res := chart.Chart.Result[0]
	quote := res.Indicators.Quote[0]
	history := History{Symbol: symbol, Bars: make([]Bar, 0, len(res.Timestamp))}
	for i, ts := range res.Timestamp {
		closePrice, ok := at(quote.Close, i)
		if !ok || closePrice <= 0 {
			continue
		}
		high, ok := at(quote.High, i)
		if !ok {
			high = closePrice
		}
		low, ok := at(quote.Low, i)
		if !ok {
			low = closePrice
		}
		volume, _ := at(quote.Volume, i)
		history.Bars = append(history.Bars, Bar{
			Time:   time.Unix(ts, 0).UTC(),
			Close:  closePrice,
			High:   high,
			Low:    low,
			Volume: volume,
		})
	}
	if len(history.Bars) == 0 {
		return History{}, errors.New("chart has no closes")
	}
	return history, nil
}

func at(values []*float64, i int) (float64, bool) {
	if i >= len(values) || values[i] == nil || !formulas.IsFinite(*values[i]) {
		return 0, false
	}
	return *values[i], true
}

// Snapshot derives an instrument snapshot from a history
func Snapshot(h History, asOf time.Time, live bool) domain.InstrumentSnapshot {
	bars := h.Bars
	last := bars[len(bars)-1]
	prev := last.Close
	if len(bars) > 1 {
		prev = bars[len(bars)-2].Close
	}

	change := 0.0
	if prev != 0 {
		change = (last.Close - prev) / prev * 100
	}

	volumes := make([]float64, len(bars))
	for i, b := range bars {
		volumes[i] = b.Volume
	}

	return domain.InstrumentSnapshot{
		Symbol:        h.Symbol,
		Price:         last.Close,
		PreviousClose: prev,
		ChangePercent: change,
		Volatility:    Volatility(h.Closes()),
		Volume:        last.Volume,
		AvgVolume:     formulas.Mean(volumes),
		High:          last.High,
		Low:           last.Low,
		Timestamp:     asOf,
		Live:          live,
	}
}

// Volatility is the annualised standard deviation of daily returns, or
// DefaultVolatility when fewer than MinVolatilityReturns returns exist
func Volatility(closes []float64) float64 {
	returns := formulas.CalculateReturns(closes)
	if len(returns) < MinVolatilityReturns {
		return DefaultVolatility
	}
	v := formulas.AnnualizedVolatility(returns)
	if !formulas.IsFinite(v) {
		return DefaultVolatility
	}
	return v
}

// FetchSummary fetches every configured ticker. Instruments that fail are
// reported with a nil snapshot; the call fails only when none succeed.
func (c *Client) FetchSummary(ctx context.Context) (domain.MarketSummary, error) {
	now := c.clock.Now()
	live := c.session != nil && c.session.IsMarketOpen(now)

	summary := make(domain.MarketSummary, 0, len(c.tickers))
	var lastErr error
	for _, t := range c.tickers {
		h, err := c.FetchHistory(ctx, t.Symbol, DefaultRange)
		if err != nil {
			c.log.Warn().Err(err).Str("key", t.Key).Msg("Instrument unavailable")
			summary = append(summary, domain.MarketEntry{Key: t.Key})
			lastErr = err
			continue
		}
		snap := Snapshot(h, now, live)
		summary = append(summary, domain.MarketEntry{Key: t.Key, Snapshot: &snap})
	}

	if summary.Available() == 0 {
		return summary, fmt.Errorf("%w: %v", ErrNoData, lastErr)
	}
	return summary, nil
}

// FetchCorrelation builds the Pearson correlation matrix of daily returns
// over the dates every fetched instrument traded. Instruments that fail are
// left out of the matrix.
func (c *Client) FetchCorrelation(ctx context.Context) (domain.CorrelationMatrix, error) {
	histories := make(map[string]History, len(c.tickers))
	var keys []string
	for _, t := range c.tickers {
		h, err := c.FetchHistory(ctx, t.Symbol, DefaultRange)
		if err != nil {
			c.log.Warn().Err(err).Str("key", t.Key).Msg("Instrument left out of correlation")
			continue
		}
		histories[t.Key] = h
		keys = append(keys, t.Key)
	}
	return CorrelationMatrix(keys, histories)
}

// CorrelationMatrix aligns histories on common dates and correlates their
// daily returns. Fewer than two instruments, or fewer than three common
// dates, gives an empty matrix.
func CorrelationMatrix(keys []string, histories map[string]History) (domain.CorrelationMatrix, error) {
	if len(keys) < 2 {
		return domain.CorrelationMatrix{}, nil
	}

	common := make(map[string]int)
	for _, k := range keys {
		for _, b := range histories[k].Bars {
			common[b.Time.Format("2006-01-02")]++
		}
	}
	var dates []string
	for d, n := range common {
		if n == len(keys) {
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)
	if len(dates) < 3 {
		return domain.CorrelationMatrix{}, nil
	}

	returns := make([][]float64, len(keys))
	for i, k := range keys {
		byDate := make(map[string]float64, len(histories[k].Bars))
		for _, b := range histories[k].Bars {
			byDate[b.Time.Format("2006-01-02")] = b.Close
		}
		closes := make([]float64, len(dates))
		for j, d := range dates {
			closes[j] = byDate[d]
		}
		returns[i] = formulas.CalculateReturns(closes)
	}

	values := make([][]float64, len(keys))
	for i := range keys {
		values[i] = make([]float64, len(keys))
		values[i][i] = 1
	}
	for i := range keys {
		for j := i + 1; j < len(keys); j++ {
			r := formulas.Correlation(returns[i], returns[j])
			r = math.Max(-1, math.Min(1, r))
			values[i][j] = r
			values[j][i] = r
		}
	}

	labels := append([]string(nil), keys...)
	return domain.NewCorrelationMatrix(labels, values)
}
