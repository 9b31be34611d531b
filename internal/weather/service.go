package weather

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/agrisense/agrisense-core/internal/infrastructure/config"
)

const defaultTimeout = 10 * time.Second

// Logger is the minimal logging interface this package needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Warn(msg string, args ...any)  {}

// Service answers rainfall and forecast queries for the configured site.
type Service struct {
	cfg    config.WeatherConfig
	http   *http.Client
	logger Logger

	openMeteoBase   string
	archiveBase     string
	openWeatherBase string
}

// NewService creates a weather service for the configured coordinates.
func NewService(cfg config.WeatherConfig, logger Logger) *Service {
	if logger == nil {
		logger = noopLogger{}
	}
	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}
	return &Service{
		cfg:             cfg,
		http:            &http.Client{Timeout: timeout},
		logger:          logger,
		openMeteoBase:   "https://api.open-meteo.com/v1/forecast",
		archiveBase:     "https://archive-api.open-meteo.com/v1/archive",
		openWeatherBase: "https://api.openweathermap.org/data/2.5/forecast",
	}
}

// get performs one bounded GET and hands the live body to decode.
// decode must fully consume what it needs before returning.
func (s *Service) get(ctx context.Context, url string, decode func(*http.Response) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	return decode(resp)
}
