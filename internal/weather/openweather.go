package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"
)

// DaySummary is one day of aggregated forecast.
type DaySummary struct {
	Date        string  `json:"date"`
	TempMin     float64 `json:"temp_min"`
	TempMax     float64 `json:"temp_max"`
	TempAvg     float64 `json:"temp_avg"`
	Humidity    float64 `json:"humidity"`
	Rain        float64 `json:"rain"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
}

// Forecast is the OpenWeather 5-day outlook aggregated per day, newest
// slot descriptions winning within a day.
type Forecast struct {
	City string       `json:"city"`
	Days []DaySummary `json:"days"`
}

// openWeatherResponse is the subset of the 5-day/3-hour response we read.
type openWeatherResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp     float64 `json:"temp"`
			TempMin  float64 `json:"temp_min"`
			TempMax  float64 `json:"temp_max"`
			Humidity float64 `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
			Icon        string `json:"icon"`
		} `json:"weather"`
		Rain struct {
			ThreeHour float64 `json:"3h"`
		} `json:"rain"`
	} `json:"list"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
}

// FiveDayForecast fetches the 5-day / 3-hour forecast and collapses the
// 3-hour slots into per-day summaries in the site timezone.
func (s *Service) FiveDayForecast(ctx context.Context) (Forecast, error) {
	if s.cfg.OpenWeatherKey == "" {
		return Forecast{}, ErrNoAPIKey
	}

	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.4f", s.cfg.Latitude))
	q.Set("lon", fmt.Sprintf("%.4f", s.cfg.Longitude))
	q.Set("appid", s.cfg.OpenWeatherKey)
	q.Set("units", "metric")

	var body openWeatherResponse
	err := s.get(ctx, s.openWeatherBase+"?"+q.Encode(), func(resp *http.Response) error {
		return json.NewDecoder(resp.Body).Decode(&body)
	})
	if err != nil {
		return Forecast{}, err
	}
	if len(body.List) == 0 {
		return Forecast{}, fmt.Errorf("%w: empty forecast list", ErrBadResponse)
	}

	loc := s.location()

	type dayAccum struct {
		tempSum  float64
		tempMin  float64
		tempMax  float64
		humSum   float64
		rain     float64
		slots    int
		desc     string
		icon     string
	}
	days := make(map[string]*dayAccum)

	for _, slot := range body.List {
		date := time.Unix(slot.Dt, 0).In(loc).Format("2006-01-02")
		acc, ok := days[date]
		if !ok {
			acc = &dayAccum{tempMin: slot.Main.TempMin, tempMax: slot.Main.TempMax}
			days[date] = acc
		}
		acc.tempSum += slot.Main.Temp
		acc.humSum += slot.Main.Humidity
		acc.rain += slot.Rain.ThreeHour
		acc.slots++
		if slot.Main.TempMin < acc.tempMin {
			acc.tempMin = slot.Main.TempMin
		}
		if slot.Main.TempMax > acc.tempMax {
			acc.tempMax = slot.Main.TempMax
		}
		if len(slot.Weather) > 0 {
			acc.desc = slot.Weather[0].Description
			acc.icon = slot.Weather[0].Icon
		}
	}

	dates := make([]string, 0, len(days))
	for date := range days {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	if len(dates) > 5 {
		dates = dates[:5]
	}

	city := s.cfg.City
	if body.City.Name != "" {
		city = body.City.Name
	}

	forecast := Forecast{City: city, Days: make([]DaySummary, 0, len(dates))}
	for _, date := range dates {
		acc := days[date]
		forecast.Days = append(forecast.Days, DaySummary{
			Date:        date,
			TempMin:     acc.tempMin,
			TempMax:     acc.tempMax,
			TempAvg:     acc.tempSum / float64(acc.slots),
			Humidity:    acc.humSum / float64(acc.slots),
			Rain:        acc.rain,
			Description: acc.desc,
			Icon:        acc.icon,
		})
	}
	return forecast, nil
}
