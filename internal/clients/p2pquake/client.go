// Package p2pquake provides a client for the P2PQuake earthquake history API.
// Code 551 records are JMA earthquake information bulletins.
package p2pquake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/aristath/tokyorisk/internal/clients/breaker"
	"github.com/aristath/tokyorisk/internal/domain"
	"github.com/aristath/tokyorisk/internal/modules/market_hours"
)

const (
	// DefaultBaseURL is the public history endpoint
	DefaultBaseURL = "https://api.p2pquake.net/v2/history"
	// EarthquakeCode selects earthquake information records
	EarthquakeCode = 551
	// DefaultLimit is used when a non-positive limit is requested
	DefaultLimit = 100
	// MaxLimit is the largest page the API serves
	MaxLimit = 100

	timeLayout       = "2006/01/02 15:04:05"
	timeLayoutMillis = "2006/01/02 15:04:05.000"
)

// ErrUnavailable wraps every transport or decode failure
var ErrUnavailable = errors.New("p2pquake feed unavailable")

type hypocenter struct {
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Depth     *float64 `json:"depth"`
	Magnitude *float64 `json:"magnitude"`
}

type earthquake struct {
	Time            string      `json:"time"`
	MaxScale        *int        `json:"maxScale"`
	DomesticTsunami string      `json:"domesticTsunami"`
	Hypocenter      *hypocenter `json:"hypocenter"`
}

type record struct {
	ID         json.RawMessage `json:"id"`
	Code       int             `json:"code"`
	Time       string          `json:"time"`
	Earthquake *earthquake     `json:"earthquake"`
}

// Client fetches earthquake bulletins
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        zerolog.Logger
}

// NewClient creates a new P2PQuake client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: breaker.New("p2pquake", log),
		log:     log.With().Str("component", "p2pquake").Logger(),
	}
}

// FetchRecent returns up to limit recent earthquakes, newest first. When the
// feed cannot be reached the synthetic fallback set is returned together
// with an error wrapping ErrUnavailable.
func (c *Client) FetchRecent(ctx context.Context, limit int) ([]domain.SeismicEvent, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, limit)
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("Earthquake feed failed, using synthetic fallback")
		return Fallback(), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	records := result.([]json.RawMessage)
	events := make([]domain.SeismicEvent, 0, len(records))
	for _, raw := range records {
		event, ok := c.parse(raw)
		if ok {
			events = append(events, event)
		}
	}

	c.log.Debug().
		Int("received", len(records)).
		Int("parsed", len(events)).
		Msg("Fetched earthquake history")

	return events, nil
}

func (c *Client) doRequest(ctx context.Context, limit int) ([]json.RawMessage, error) {
	q := url.Values{}
	q.Set("codes", strconv.Itoa(EarthquakeCode))
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("P2PQuake API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var records []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return records, nil
}

func (c *Client) parse(raw json.RawMessage) (domain.SeismicEvent, bool) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		c.log.Debug().Err(err).Msg("Skipping malformed record")
		return domain.SeismicEvent{}, false
	}
	if rec.Code != EarthquakeCode {
		return domain.SeismicEvent{}, false
	}
	if rec.Earthquake == nil {
		c.log.Debug().Msg("Skipping record without earthquake body")
		return domain.SeismicEvent{}, false
	}
	return toEvent(rec), true
}

func toEvent(rec record) domain.SeismicEvent {
	eq := rec.Earthquake
	hypo := eq.Hypocenter
	if hypo == nil {
		hypo = &hypocenter{}
	}

	intensity := 0.0
	if eq.MaxScale != nil && *eq.MaxScale > 0 {
		intensity = float64(*eq.MaxScale)
		if *eq.MaxScale >= 10 {
			intensity /= 10
		}
	}

	magnitude := 0.0
	quality := domain.QualityIncomplete
	if hypo.Magnitude != nil && *hypo.Magnitude > 0 {
		magnitude = *hypo.Magnitude
		quality = domain.QualityParsed
	} else if intensity > 0 {
		magnitude = max(2.0, intensity+1.0)
	} else {
		magnitude = 2.0
	}

	event := domain.SeismicEvent{
		ID:             strings.Trim(string(rec.ID), `"`),
		Time:           parseTime(eq.Time, rec.Time),
		Magnitude:      magnitude,
		Location:       "Unknown",
		Intensity:      intensity,
		TsunamiWarning: eq.DomesticTsunami != "" && eq.DomesticTsunami != "None",
		Quality:        quality,
	}
	if hypo.Name != "" {
		event.Location = hypo.Name
	}
	if hypo.Depth != nil && *hypo.Depth >= 0 {
		event.DepthKm = *hypo.Depth
	}
	// Unknown epicenters are reported as -200
	if hypo.Latitude != nil && hypo.Longitude != nil &&
		*hypo.Latitude >= -90 && *hypo.Latitude <= 90 &&
		*hypo.Longitude >= -180 && *hypo.Longitude <= 180 {
		lat, lon := *hypo.Latitude, *hypo.Longitude
		event.Latitude = &lat
		event.Longitude = &lon
	}
	return event
}

// parseTime reads the first parseable JST timestamp. A zero time marks an unknown time.
func parseTime(candidates ...string) time.Time {
	for _, s := range candidates {
		for _, layout := range []string{timeLayout, timeLayoutMillis} {
			if t, err := time.ParseInLocation(layout, s, market_hours.Tokyo); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

func ptr(v float64) *float64 { return &v }

// Fallback is the fixed event set served while the feed is unreachable
func Fallback() []domain.SeismicEvent {
	return []domain.SeismicEvent{
		{
			ID:        "synthetic_1",
			Time:      time.Date(2024, 1, 15, 14, 32, 0, 0, market_hours.Tokyo),
			Magnitude: 4.2,
			Intensity: 3.0,
			DepthKm:   45,
			Latitude:  ptr(35.5),
			Longitude: ptr(139.8),
			Location:  "Tokyo Bay",
			Quality:   domain.QualitySynthetic,
		},
		{
			ID:        "synthetic_2",
			Time:      time.Date(2024, 1, 14, 9, 15, 0, 0, market_hours.Tokyo),
			Magnitude: 3.8,
			Intensity: 2.5,
			DepthKm:   32,
			Latitude:  ptr(35.7),
			Longitude: ptr(140.1),
			Location:  "Chiba Prefecture",
			Quality:   domain.QualitySynthetic,
		},
		{
			ID:        "synthetic_3",
			Time:      time.Date(2024, 1, 13, 22, 45, 0, 0, market_hours.Tokyo),
			Magnitude: 5.1,
			Intensity: 4.0,
			DepthKm:   25,
			Latitude:  ptr(36.1),
			Longitude: ptr(139.4),
			Location:  "Southern Saitama",
			Quality:   domain.QualitySynthetic,
		},
	}
}
