package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options configures the Yahoo client.
type Options struct {
	BaseURL    string        // default https://query1.finance.yahoo.com
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// RatePerSec throttles all requests to the quote host. Yahoo tolerates
	// roughly 2 requests per 5 seconds for unauthenticated clients.
	RatePerSec float64
}

// Client fetches quotes and fundamentals over HTTP with retry and rate
// limiting.
type Client struct {
	client  *http.Client
	opts    Options
	limiter *rate.Limiter
}

// NewClient creates a Client with the given options.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://query1.finance.yahoo.com"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "fairval/1.0"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.RatePerSec == 0 {
		opts.RatePerSec = 0.4
	}
	return &Client{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), 1),
	}
}

// chartResponse is the subset of the v8 chart payload we read.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				ShortName          string  `json:"shortName"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				PreviousClose      float64 `json:"previousClose"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// timeseriesResponse is the subset of the fundamentals timeseries payload
// we read. Each result carries one metric type with its annual values.
type timeseriesResponse struct {
	Timeseries struct {
		Result []struct {
			Meta struct {
				Type []string `json:"type"`
			} `json:"meta"`
			AnnualTotalRevenue         []*timeseriesValue `json:"annualTotalRevenue"`
			AnnualFreeCashFlow         []*timeseriesValue `json:"annualFreeCashFlow"`
			AnnualDilutedAverageShares []*timeseriesValue `json:"annualDilutedAverageShares"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"timeseries"`
}

type timeseriesValue struct {
	AsOfDate      string `json:"asOfDate"` // "2023-12-31"
	ReportedValue struct {
		Raw float64 `json:"raw"`
	} `json:"reportedValue"`
}

// Fetch retrieves price, shares, and revenue/FCF history for one ticker.
func (c *Client) Fetch(ctx context.Context, ticker string) (*Snapshot, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, eris.New("provider: empty ticker")
	}

	snap := &Snapshot{Ticker: ticker, FetchedAt: time.Now().UTC()}

	if err := c.fetchChart(ctx, ticker, snap); err != nil {
		return nil, err
	}
	if err := c.fetchFundamentals(ctx, ticker, snap); err != nil {
		return nil, err
	}

	if len(snap.Shares) > 0 {
		snap.SharesOutstanding = snap.Shares[0].Value
	}

	zap.L().Info("provider: snapshot fetched",
		zap.String("ticker", ticker),
		zap.Float64("price", snap.Price),
		zap.Int("revenue_years", len(snap.Revenue)),
		zap.Int("fcf_years", len(snap.FreeCashFlow)),
	)
	return snap, nil
}

func (c *Client) fetchChart(ctx context.Context, ticker string, snap *Snapshot) error {
	var out chartResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/v8/finance/chart/%s", c.opts.BaseURL, url.PathEscape(ticker)), &out); err != nil {
		return eris.Wrapf(err, "provider: chart %s", ticker)
	}

	if out.Chart.Error != nil {
		if out.Chart.Error.Code == "Not Found" {
			return eris.Wrapf(ErrNotFound, "chart: %s", out.Chart.Error.Description)
		}
		return eris.Errorf("provider: chart %s: %s", ticker, out.Chart.Error.Description)
	}
	if len(out.Chart.Result) == 0 {
		return eris.Wrapf(ErrNotFound, "chart: empty result for %s", ticker)
	}

	meta := out.Chart.Result[0].Meta
	snap.Name = meta.ShortName
	snap.Currency = meta.Currency
	snap.Price = meta.PreviousClose
	if snap.Price == 0 {
		snap.Price = meta.RegularMarketPrice
	}
	return nil
}

func (c *Client) fetchFundamentals(ctx context.Context, ticker string, snap *Snapshot) error {
	now := time.Now()
	q := url.Values{}
	q.Set("type", "annualTotalRevenue,annualFreeCashFlow,annualDilutedAverageShares")
	q.Set("period1", strconv.FormatInt(now.AddDate(-5, 0, 0).Unix(), 10))
	q.Set("period2", strconv.FormatInt(now.Unix(), 10))

	var out timeseriesResponse
	u := fmt.Sprintf("%s/ws/fundamentals-timeseries/v1/finance/timeseries/%s?%s",
		c.opts.BaseURL, url.PathEscape(ticker), q.Encode())
	if err := c.getJSON(ctx, u, &out); err != nil {
		return eris.Wrapf(err, "provider: fundamentals %s", ticker)
	}

	if out.Timeseries.Error != nil {
		return eris.Errorf("provider: fundamentals %s: %s", ticker, out.Timeseries.Error.Description)
	}

	for _, res := range out.Timeseries.Result {
		switch {
		case res.AnnualTotalRevenue != nil:
			snap.Revenue = annualValues(res.AnnualTotalRevenue)
		case res.AnnualFreeCashFlow != nil:
			snap.FreeCashFlow = annualValues(res.AnnualFreeCashFlow)
		case res.AnnualDilutedAverageShares != nil:
			snap.Shares = annualValues(res.AnnualDilutedAverageShares)
		}
	}

	if len(snap.Revenue) == 0 {
		return eris.Wrapf(ErrNotFound, "fundamentals: no revenue history for %s", ticker)
	}
	return nil
}

// annualValues converts timeseries points to newest-first AnnualValues,
// skipping null entries Yahoo pads short histories with.
func annualValues(vals []*timeseriesValue) []AnnualValue {
	out := make([]AnnualValue, 0, len(vals))
	for _, v := range vals {
		if v == nil || v.AsOfDate == "" {
			continue
		}
		year, err := strconv.Atoi(v.AsOfDate[:4])
		if err != nil {
			continue
		}
		out = append(out, AnnualValue{Year: year, Value: v.ReportedValue.Raw})
	}
	// API returns oldest first; histories are consumed newest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// getJSON performs a rate-limited GET with retries and decodes the body.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	var lastErr error
	for attempt := range c.opts.MaxRetries {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return eris.Wrap(err, "create request")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			zap.L().Warn("provider: request failed, retrying",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			c.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			_ = resp.Body.Close()
			return eris.Wrapf(ErrNotFound, "http 404 from %s", rawURL)
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http %d from %s", resp.StatusCode, rawURL)
			zap.L().Warn("provider: retryable status",
				zap.String("url", rawURL),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			c.backoff(ctx, attempt)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return eris.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		_ = resp.Body.Close()
		if err != nil {
			return eris.Wrapf(err, "decode response from %s", rawURL)
		}
		return nil
	}
	return eris.Wrap(lastErr, "all retries exhausted")
}

func (c *Client) backoff(ctx context.Context, attempt int) {
	base := time.Second
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if d > 15*time.Second {
		d = 15 * time.Second
	}
	d += time.Duration(rand.Int64N(int64(d) / 2))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
