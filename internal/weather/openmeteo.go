package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// openMeteoDaily is the subset of the Open-Meteo daily response we read.
type openMeteoDaily struct {
	Daily struct {
		Time             []string  `json:"time"`
		PrecipitationSum []float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

// TodayRainfall returns today's total precipitation in millimetres at the
// site, per the site timezone.
func (s *Service) TodayRainfall(ctx context.Context) (float64, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", s.cfg.Latitude))
	q.Set("longitude", fmt.Sprintf("%.4f", s.cfg.Longitude))
	q.Set("daily", "precipitation_sum")
	q.Set("timezone", s.cfg.Timezone)
	q.Set("forecast_days", "1")

	var body openMeteoDaily
	err := s.get(ctx, s.openMeteoBase+"?"+q.Encode(), func(resp *http.Response) error {
		return json.NewDecoder(resp.Body).Decode(&body)
	})
	if err != nil {
		return 0, err
	}
	if len(body.Daily.PrecipitationSum) == 0 {
		return 0, fmt.Errorf("%w: no daily precipitation data", ErrBadResponse)
	}

	return body.Daily.PrecipitationSum[0], nil
}

// LastMonthRainfall returns the total precipitation over the previous
// calendar month in millimetres, from the Open-Meteo archive.
func (s *Service) LastMonthRainfall(ctx context.Context) (float64, error) {
	loc := s.location()
	now := time.Now().In(loc)
	firstOfThisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	firstOfLastMonth := firstOfThisMonth.AddDate(0, -1, 0)
	lastOfLastMonth := firstOfThisMonth.AddDate(0, 0, -1)

	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", s.cfg.Latitude))
	q.Set("longitude", fmt.Sprintf("%.4f", s.cfg.Longitude))
	q.Set("daily", "precipitation_sum")
	q.Set("timezone", s.cfg.Timezone)
	q.Set("start_date", firstOfLastMonth.Format("2006-01-02"))
	q.Set("end_date", lastOfLastMonth.Format("2006-01-02"))

	var body openMeteoDaily
	err := s.get(ctx, s.archiveBase+"?"+q.Encode(), func(resp *http.Response) error {
		return json.NewDecoder(resp.Body).Decode(&body)
	})
	if err != nil {
		return 0, err
	}

	var total float64
	for _, mm := range body.Daily.PrecipitationSum {
		total += mm
	}
	return total, nil
}

// location resolves the configured site timezone, falling back to UTC.
func (s *Service) location() *time.Location {
	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		s.logger.Warn("unknown site timezone, using UTC", "timezone", s.cfg.Timezone)
		return time.UTC
	}
	return loc
}
