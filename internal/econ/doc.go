// Package econ implements the REST clients for the two economic data
// feeds.
//
// The econ client:
//   - Fetches rate forecasts (api_key + frequency query parameters)
//   - Fetches interest rate observations (series_id + api_key + file_type)
//   - Retries transient failures with exponential backoff
//   - Reports a missing API key without issuing any request
package econ
