// Package alpaca wraps the Alpaca market-data API behind a small
// fetcher interface: one symbol, one date range, one granularity in,
// one chronologically sorted BarSeries out.
package alpaca

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/rustyeddy/marketdash/pricing"
)

// DefaultTimeout bounds each bar request. The upstream API does not
// enforce a client-side deadline, so we set one explicitly.
const DefaultTimeout = 30 * time.Second

// Granularity represents the bar interval for fetches.
type Granularity string

const (
	Minute         Granularity = "1Min"
	FifteenMinutes Granularity = "15Min"
	Hour           Granularity = "1Hour"
	Day            Granularity = "1Day"
)

// ParseGranularity maps user-facing spellings to a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minute", "min", "1min", "1m":
		return Minute, nil
	case "15min", "15m", "15minutes", "fifteenminutes":
		return FifteenMinutes, nil
	case "hour", "1hour", "1h":
		return Hour, nil
	case "day", "1day", "1d", "daily":
		return Day, nil
	default:
		return "", fmt.Errorf("unknown granularity %q (supported: minute, 15min, hour, day)", s)
	}
}

// Valid reports whether g is one of the supported intervals.
func (g Granularity) Valid() error {
	_, err := g.timeFrame()
	return err
}

func (g Granularity) timeFrame() (marketdata.TimeFrame, error) {
	switch g {
	case Minute:
		return marketdata.OneMin, nil
	case FifteenMinutes:
		return marketdata.NewTimeFrame(15, marketdata.Min), nil
	case Hour:
		return marketdata.OneHour, nil
	case Day:
		return marketdata.OneDay, nil
	default:
		return marketdata.TimeFrame{}, fmt.Errorf("unknown granularity %q", string(g))
	}
}

// BarsRequest holds the parameters for fetching one symbol's history.
type BarsRequest struct {
	Symbol      string // case-insensitive, normalized to upper
	Start       time.Time
	End         time.Time
	Granularity Granularity
}

// Validate checks the request before any network work happens.
func (r BarsRequest) Validate() error {
	if strings.TrimSpace(r.Symbol) == "" {
		return fmt.Errorf("symbol is required")
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("start and end are required")
	}
	if !r.Start.Before(r.End) {
		return fmt.Errorf("start must be before end")
	}
	if err := r.Granularity.Valid(); err != nil {
		return err
	}
	return nil
}

// Fetcher retrieves the bar history for one symbol. Both *Client and
// *Cache implement it; consumers should accept the interface.
type Fetcher interface {
	GetBars(ctx context.Context, req BarsRequest) (pricing.BarSeries, error)
}

// Options configures a Client beyond the credential pair.
type Options struct {
	BaseURL string        // override the market-data base URL (for testing)
	Feed    string        // "iex" (default) or "sip"
	Timeout time.Duration // per-request HTTP timeout, default DefaultTimeout
}

// Client fetches historical stock bars from Alpaca's data API.
type Client struct {
	md   *marketdata.Client
	feed marketdata.Feed
}

// NewClient creates a client for the given API key pair. The client is
// constructed once and passed by reference into whatever needs it;
// there is no process-global instance.
func NewClient(key, secret string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	feed := marketdata.IEX
	if opts.Feed != "" {
		feed = marketdata.Feed(opts.Feed)
	}

	return &Client{
		md: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:     key,
			APISecret:  secret,
			BaseURL:    opts.BaseURL,
			HTTPClient: &http.Client{Timeout: timeout},
		}),
		feed: feed,
	}
}

// GetBars fetches one symbol's bars and returns them sorted
// chronologically. Failures are returned to the caller; converting
// them into an empty series is the aggregation layer's job, so a batch
// never dies on one bad symbol.
func (c *Client) GetBars(ctx context.Context, req BarsRequest) (pricing.BarSeries, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))

	if err := req.Validate(); err != nil {
		return pricing.BarSeries{Symbol: symbol}, err
	}
	if err := ctx.Err(); err != nil {
		return pricing.BarSeries{Symbol: symbol}, err
	}

	tf, err := req.Granularity.timeFrame()
	if err != nil {
		return pricing.BarSeries{Symbol: symbol}, err
	}

	end := req.End
	if req.Granularity == Day {
		// The daily-bars endpoint treats End as exclusive; extend it so
		// bars on the end date itself are included.
		end = end.AddDate(0, 0, 1)
	}

	bars, err := c.md.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: tf,
		Start:     req.Start,
		End:       end,
		Feed:      c.feed,
	})
	if err != nil {
		return pricing.BarSeries{Symbol: symbol}, fmt.Errorf("get bars %s: %w", symbol, err)
	}

	series := pricing.BarSeries{
		Symbol: symbol,
		Bars:   make([]pricing.Bar, 0, len(bars)),
	}
	for _, b := range bars {
		series.Bars = append(series.Bars, pricing.Bar{
			Time:       b.Timestamp,
			Open:       b.Open,
			High:       b.High,
			Low:        b.Low,
			Close:      b.Close,
			Volume:     int64(b.Volume),
			TradeCount: int64(b.TradeCount),
			VWAP:       b.VWAP,
		})
	}
	series.Sort()

	return series, nil
}
