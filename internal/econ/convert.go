package econ

import (
	"fmt"
	"strconv"

	"github.com/jcleary/barharvest/internal/model"
)

// ForecastPoints converts a forecast response into data points. Forecast
// series carry no volume.
func ForecastPoints(resp *ForecastResponse) []model.DataPoint {
	points := make([]model.DataPoint, 0, len(resp.Forecasts))
	for _, f := range resp.Forecasts {
		points = append(points, model.DataPoint{
			Date:  f.Date,
			Close: f.Value,
		})
	}
	return points
}

// ObservationPoints converts an observations response into data points.
// The feed publishes "." for dates with no value; those entries are
// dropped and counted. Any other non-numeric value is a malformed feed.
func ObservationPoints(resp *ObservationsResponse) ([]model.DataPoint, int, error) {
	points := make([]model.DataPoint, 0, len(resp.Observations))
	skipped := 0

	for _, obs := range resp.Observations {
		if obs.Value == "." {
			skipped++
			continue
		}

		v, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("parse observation %s value %q: %w", obs.Date, obs.Value, err)
		}

		points = append(points, model.DataPoint{
			Date:  obs.Date,
			Close: v,
		})
	}

	return points, skipped, nil
}
