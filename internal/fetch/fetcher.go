// Package fetch turns one FetchRequest into one FetchResult, whatever
// happens on the wire. Errors are converted into Failed results at this
// boundary; callers above it never see them as error returns.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jcleary/barharvest/internal/broker"
	"github.com/jcleary/barharvest/internal/econ"
	"github.com/jcleary/barharvest/internal/model"
	"github.com/jcleary/barharvest/internal/retry"
)

// MarketSource is the slice of the gateway session a fetcher uses. It
// deliberately omits Connect and Close: the session is borrowed from the
// connection manager, which alone owns its lifecycle.
type MarketSource interface {
	ResolveContract(ctx context.Context, spec broker.ContractSpec) (broker.Contract, error)
	HistoricalBars(ctx context.Context, contract broker.Contract, req broker.BarRequest) ([]broker.Bar, error)
}

// EconSource provides the two economic feeds. *econ.Client satisfies it.
type EconSource interface {
	GetForecast(ctx context.Context, frequency string) (*econ.ForecastResponse, error)
	GetObservations(ctx context.Context, seriesID string) (*econ.ObservationsResponse, error)
}

// Fetcher acquires series data for every instrument kind.
type Fetcher struct {
	market MarketSource
	econ   EconSource
	logger *slog.Logger
}

// New creates a Fetcher over a borrowed gateway session and an economic
// feed client.
func New(market MarketSource, econSrc EconSource, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		market: market,
		econ:   econSrc,
		logger: logger,
	}
}

// Fetch acquires the rows for one request. The four kinds map to two
// call shapes: brokered instruments resolve a contract and pull bars
// from the gateway, economic series hit their REST feed.
func (f *Fetcher) Fetch(ctx context.Context, req model.FetchRequest) model.FetchResult {
	switch req.Source.Kind {
	case model.KindEquity, model.KindFuture, model.KindForex:
		return f.fetchBars(ctx, req)
	case model.KindEconomic:
		return f.fetchEconomic(ctx, req)
	default:
		return model.Failure(req.Source.Symbol, fmt.Errorf("unknown source kind %q", req.Source.Kind), 0)
	}
}

// fetchBars pulls historical bars for a brokered instrument. Contract
// resolution and the history call each get the request's retry budget.
func (f *Fetcher) fetchBars(ctx context.Context, req model.FetchRequest) model.FetchResult {
	src := req.Source
	pol := retry.Fixed(req.MaxAttempts, req.Backoff)

	spec, err := contractSpec(src)
	if err != nil {
		return model.Failure(src.Symbol, err, 0)
	}

	contract, resolveAttempts, err := retry.DoValue(ctx, f.logger, pol, retry.Transient,
		func(ctx context.Context) (broker.Contract, error) {
			return f.market.ResolveContract(ctx, spec)
		})
	if err != nil {
		f.logger.Warn("contract resolution failed",
			"symbol", src.Symbol,
			"attempts", resolveAttempts,
			"error", err,
		)
		return model.Failure(src.Symbol, fmt.Errorf("resolve %s: %w", src.Symbol, err), resolveAttempts)
	}

	barReq := broker.BarRequest{
		Duration:   src.Duration,
		BarSize:    src.BarSize,
		WhatToShow: quoteType(src),
		UseRTH:     src.UseRTH,
	}

	bars, historyAttempts, err := retry.DoValue(ctx, f.logger, pol, retry.Transient,
		func(ctx context.Context) ([]broker.Bar, error) {
			return f.market.HistoricalBars(ctx, contract, barReq)
		})
	attempts := resolveAttempts + historyAttempts
	if err != nil {
		f.logger.Warn("historical bars failed",
			"symbol", src.Symbol,
			"attempts", attempts,
			"error", err,
		)
		return model.Failure(src.Symbol, fmt.Errorf("history %s: %w", src.Symbol, err), attempts)
	}

	if len(bars) == 0 {
		f.logger.Warn("no bars returned",
			"symbol", src.Symbol,
			"duration", src.Duration,
			"bar_size", src.BarSize,
		)
		return model.Empty(src.Symbol, attempts)
	}

	f.logger.Debug("bars fetched",
		"symbol", src.Symbol,
		"rows", len(bars),
		"attempts", attempts,
	)
	return model.Success(src.Symbol, barPoints(bars), attempts)
}

// fetchEconomic pulls an economic series from its REST feed. A missing
// API key is a skip, not a failure: the source contributes an Empty
// result and the run moves on.
func (f *Fetcher) fetchEconomic(ctx context.Context, req model.FetchRequest) model.FetchResult {
	src := req.Source

	var (
		points []model.DataPoint
		err    error
	)

	switch src.Feed {
	case model.FeedInterestRates:
		var resp *econ.ObservationsResponse
		resp, err = f.econ.GetObservations(ctx, src.Symbol)
		if err == nil {
			var skipped int
			points, skipped, err = econ.ObservationPoints(resp)
			if skipped > 0 {
				f.logger.Debug("observations without values skipped",
					"symbol", src.Symbol,
					"skipped", skipped,
				)
			}
		}
	case model.FeedForecast:
		var resp *econ.ForecastResponse
		resp, err = f.econ.GetForecast(ctx, src.Frequency)
		if err == nil {
			points = econ.ForecastPoints(resp)
		}
	default:
		return model.Failure(src.Symbol, fmt.Errorf("economic source %s has no feed", src.Symbol), 0)
	}

	if err != nil {
		if errors.Is(err, econ.ErrMissingAPIKey) {
			f.logger.Warn("skipping economic source, api key not configured", "symbol", src.Symbol)
			return model.Empty(src.Symbol, 0)
		}
		f.logger.Warn("economic fetch failed",
			"symbol", src.Symbol,
			"feed", src.Feed,
			"error", err,
		)
		return model.Failure(src.Symbol, err, attemptsFrom(err))
	}

	if len(points) == 0 {
		f.logger.Warn("no observations returned", "symbol", src.Symbol, "feed", src.Feed)
		return model.Empty(src.Symbol, 1)
	}

	f.logger.Debug("observations fetched", "symbol", src.Symbol, "rows", len(points))
	return model.Success(src.Symbol, points, 1)
}

// contractSpec maps a source onto the gateway's instrument description.
func contractSpec(src model.DataSource) (broker.ContractSpec, error) {
	switch src.Kind {
	case model.KindEquity:
		return broker.ContractSpec{
			Symbol:   src.Symbol,
			SecType:  "STK",
			Exchange: "SMART",
			Currency: "USD",
		}, nil
	case model.KindFuture:
		exchange := src.Exchange
		if exchange == "" {
			exchange = "CME"
		}
		return broker.ContractSpec{
			Symbol:   src.Symbol,
			SecType:  "FUT",
			Exchange: exchange,
			Currency: "USD",
			Expiry:   src.Expiry,
		}, nil
	case model.KindForex:
		base, quote, err := forexPair(src.Symbol)
		if err != nil {
			return broker.ContractSpec{}, err
		}
		return broker.ContractSpec{
			Symbol:   base,
			SecType:  "CASH",
			Exchange: "IDEALPRO",
			Currency: quote,
		}, nil
	}
	return broker.ContractSpec{}, fmt.Errorf("kind %s has no contract form", src.Kind)
}

// forexPair splits a pair symbol ("EURUSD", "EUR.USD", "EUR/USD") into
// base and quote currencies.
func forexPair(symbol string) (string, string, error) {
	pair := strings.NewReplacer(".", "", "/", "").Replace(symbol)
	if len(pair) != 6 {
		return "", "", fmt.Errorf("forex symbol %q is not a six-letter pair", symbol)
	}
	pair = strings.ToUpper(pair)
	return pair[:3], pair[3:], nil
}

// quoteType falls back to the per-kind default when the source carries
// none. Forex has no trade tape, so it quotes the midpoint.
func quoteType(src model.DataSource) string {
	if src.WhatToShow != "" {
		return src.WhatToShow
	}
	if src.Kind == model.KindForex {
		return "MIDPOINT"
	}
	return "TRADES"
}

// barPoints converts gateway bars into data points. The gateway reports
// volume -1 for instruments without one; those become nil.
func barPoints(bars []broker.Bar) []model.DataPoint {
	points := make([]model.DataPoint, 0, len(bars))
	for _, b := range bars {
		p := model.DataPoint{Date: b.Date, Close: b.Close}
		if b.Volume >= 0 {
			v := b.Volume
			p.Volume = &v
		}
		points = append(points, p)
	}
	return points
}

// attemptsFrom recovers the attempt count from an exhausted retry budget;
// any other error consumed a single attempt.
func attemptsFrom(err error) int {
	var ex *retry.ExhaustedError
	if errors.As(err, &ex) {
		return ex.Attempts
	}
	return 1
}
