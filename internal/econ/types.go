package econ

// ForecastResponse is the payload of the forecast endpoint.
type ForecastResponse struct {
	Forecasts []Forecast `json:"forecasts"`
}

// Forecast is a single forecast entry.
type Forecast struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Value float64 `json:"value"`
}

// ObservationsResponse is the payload of the interest rate endpoint.
type ObservationsResponse struct {
	Observations []Observation `json:"observations"`
}

// Observation is a single rate observation. Value is a numeric string;
// the feed reports "." for dates with no published value.
type Observation struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Value string `json:"value"`
}
