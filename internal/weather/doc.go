// Package weather enriches telemetry with external rainfall and forecast
// data.
//
// Two upstreams are consulted:
//   - Open-Meteo for observed rainfall (today's total and the previous
//     calendar month's archive total); no API key required
//   - OpenWeather for the 5-day / 3-hour forecast, aggregated per day
//
// All calls use a bounded HTTP client. Failures return an error and the
// zero value; callers degrade gracefully (a reading without rainfall is
// still a reading) rather than blocking the ingest or snapshot paths.
package weather
