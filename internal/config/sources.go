package config

import (
	"fmt"

	"github.com/jcleary/barharvest/internal/model"
)

// DataSources expands the configured source lists into the run's source
// set, stamping each entry with the shared fetch parameters and the
// per-kind quote type. Symbols key results and stored rows, so they must
// be unique across every list; a duplicate or structurally incomplete
// entry fails the whole build.
func (c *HarvesterConfig) DataSources() ([]model.DataSource, error) {
	total := len(c.Sources.Equities) + len(c.Sources.Futures) + len(c.Sources.Forex) +
		len(c.Sources.Economic.RateSeries) + len(c.Sources.Economic.Forecasts)

	out := make([]model.DataSource, 0, total)
	seen := make(map[string]struct{}, total)

	add := func(src model.DataSource) error {
		if src.Symbol == "" {
			return fmt.Errorf("%s source with empty symbol", src.Kind)
		}
		if _, dup := seen[src.Symbol]; dup {
			return fmt.Errorf("duplicate source symbol %q", src.Symbol)
		}
		seen[src.Symbol] = struct{}{}
		out = append(out, src)
		return nil
	}

	for _, sym := range c.Sources.Equities {
		err := add(model.DataSource{
			Symbol:     sym,
			Kind:       model.KindEquity,
			Duration:   c.Fetch.Duration,
			BarSize:    c.Fetch.BarSize,
			WhatToShow: c.Fetch.QuoteTypes.Equities,
			UseRTH:     c.Fetch.UseRTH,
		})
		if err != nil {
			return nil, err
		}
	}

	for _, fut := range c.Sources.Futures {
		err := add(model.DataSource{
			Symbol:     fut.Symbol,
			Kind:       model.KindFuture,
			Duration:   c.Fetch.Duration,
			BarSize:    c.Fetch.BarSize,
			WhatToShow: c.Fetch.QuoteTypes.Futures,
			UseRTH:     c.Fetch.UseRTH,
			Expiry:     fut.Expiry,
			Exchange:   fut.Exchange,
		})
		if err != nil {
			return nil, err
		}
	}

	for _, sym := range c.Sources.Forex {
		err := add(model.DataSource{
			Symbol:     sym,
			Kind:       model.KindForex,
			Duration:   c.Fetch.Duration,
			BarSize:    c.Fetch.BarSize,
			WhatToShow: c.Fetch.QuoteTypes.Forex,
			UseRTH:     c.Fetch.UseRTH,
		})
		if err != nil {
			return nil, err
		}
	}

	for _, id := range c.Sources.Economic.RateSeries {
		err := add(model.DataSource{
			Symbol: id,
			Kind:   model.KindEconomic,
			Feed:   model.FeedInterestRates,
		})
		if err != nil {
			return nil, err
		}
	}

	for _, fc := range c.Sources.Economic.Forecasts {
		if fc.Frequency == "" {
			return nil, fmt.Errorf("forecast source %q has no frequency", fc.Name)
		}
		err := add(model.DataSource{
			Symbol:    fc.Name,
			Kind:      model.KindEconomic,
			Feed:      model.FeedForecast,
			Frequency: fc.Frequency,
		})
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}
