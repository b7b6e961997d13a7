package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roruizf/yahoo-finance-stock-db/pkg/config"
	"github.com/roruizf/yahoo-finance-stock-db/pkg/models"
)

// YahooClient handles REST API calls to the Yahoo Finance chart endpoint
type YahooClient struct {
	client    *http.Client
	baseURL   string
	userAgent string
	logger    *logrus.Entry
	rateLimit time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

// NewYahooClient creates a new Yahoo Finance REST API client
func NewYahooClient(cfg *config.ProviderConfig, logger *logrus.Logger) *YahooClient {
	return &YahooClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		logger:    logger.WithField("component", "yahoo-rest"),
		rateLimit: cfg.RateLimit,
	}
}

// GetBars fetches bars for one series over the given window, one external
// call per series per cycle. Bars come back in ascending key order with
// timestamps in the instrument's exchange timezone. An empty result is
// not an error.
func (y *YahooClient) GetBars(ctx context.Context, symbol string, interval models.Interval, window models.FetchWindow) ([]models.Bar, error) {
	y.enforceRateLimit()

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s", y.baseURL, url.PathEscape(symbol))
	params := url.Values{}
	params.Add("interval", string(interval))
	params.Add("period1", strconv.FormatInt(window.Start.Unix(), 10))
	params.Add("period2", strconv.FormatInt(window.End.Unix(), 10))
	params.Add("includeAdjustedClose", "true")
	params.Add("events", "div,split")

	y.logger.WithFields(logrus.Fields{
		"symbol":   symbol,
		"interval": interval,
		"start":    window.Start.Format(time.RFC3339),
		"end":      window.End.Format(time.RFC3339),
	}).Debug("Fetching bars")

	result, err := y.doChartRequest(ctx, fmt.Sprintf("%s?%s", endpoint, params.Encode()), symbol)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	return convertChartResult(result, interval), nil
}

// HasSymbol reports whether the provider knows the symbol. Used by the
// optional availability pre-filter stage.
func (y *YahooClient) HasSymbol(ctx context.Context, symbol string) (bool, error) {
	y.enforceRateLimit()

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1d", y.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", y.userAgent)

	resp, err := y.client.Do(req)
	if err != nil {
		return false, &models.ProviderError{Symbol: symbol, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, &models.ProviderError{
			Symbol: symbol,
			Err:    fmt.Errorf("availability check returned status %d", resp.StatusCode),
		}
	}
}

// doChartRequest executes one chart call and unwraps the envelope. A nil
// result with nil error means the provider had no data for the window.
func (y *YahooClient) doChartRequest(ctx context.Context, fullURL, symbol string) (*chartResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", y.userAgent)

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, &models.ProviderError{Symbol: symbol, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.ProviderError{Symbol: symbol, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &models.ProviderError{
			Symbol: symbol,
			Err:    fmt.Errorf("chart request returned status %d: %s", resp.StatusCode, truncate(string(body), 200)),
		}
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, &models.ProviderError{Symbol: symbol, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if chart.Chart.Error != nil {
		return nil, &models.ProviderError{
			Symbol: symbol,
			Err:    fmt.Errorf("%s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description),
		}
	}

	if len(chart.Chart.Result) == 0 {
		return nil, nil
	}

	return &chart.Chart.Result[0], nil
}

// convertChartResult flattens the column-oriented chart payload into bars,
// dropping slots where the provider printed no quote.
func convertChartResult(result *chartResult, interval models.Interval) []models.Bar {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}
	q := result.Indicators.Quote[0]

	var adj []*float64
	if len(result.Indicators.Adjclose) > 0 {
		adj = result.Indicators.Adjclose[0].Adjclose
	}

	// The meta gmtoffset is only the offset at fetch time; rendering
	// through the tz database keeps a bar's key identical on both sides
	// of a DST transition.
	loc := time.UTC
	if name := result.Meta.ExchangeTimezoneName; name != "" {
		if l, err := time.LoadLocation(name); err == nil {
			loc = l
		} else {
			loc = time.FixedZone(name, int(result.Meta.Gmtoffset))
		}
	}

	bars := make([]models.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(q.Open) || i >= len(q.High) || i >= len(q.Low) || i >= len(q.Close) {
			break
		}
		if q.Open[i] == nil || q.High[i] == nil || q.Low[i] == nil || q.Close[i] == nil {
			continue
		}

		bar := models.Bar{
			Timestamp: time.Unix(ts, 0).In(loc),
			Open:      *q.Open[i],
			High:      *q.High[i],
			Low:       *q.Low[i],
			Close:     *q.Close[i],
			AdjClose:  *q.Close[i],
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		if i < len(adj) && adj[i] != nil {
			bar.AdjClose = *adj[i]
		}

		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})

	return bars
}

// enforceRateLimit spaces out calls to respect the provider's limits.
func (y *YahooClient) enforceRateLimit() {
	y.mu.Lock()
	defer y.mu.Unlock()

	if elapsed := time.Since(y.lastCall); elapsed < y.rateLimit {
		time.Sleep(y.rateLimit - elapsed)
	}
	y.lastCall = time.Now()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
