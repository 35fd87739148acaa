package postgrest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/abgdnv/smartstock/pkg/config"
	"github.com/sony/gobreaker/v2"
)

// newBreaker trips on consecutive failures or on a failure rate above the
// configured percentage. Only transport errors and 5xx answers are failures;
// a 4xx such as a schema mismatch is the store working as intended.
func newBreaker(cfg config.CircuitBreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[[]byte] {
	st := gobreaker.Settings{
		Name:        "postgrest",
		MaxRequests: max(cfg.HalfOpenRequests, 1),
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= cfg.ConsecutiveFailures {
				return true
			}
			total := counts.TotalSuccesses + counts.TotalFailures
			return cfg.ErrorRatePercent > 0 && total >= cfg.ConsecutiveFailures &&
				float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.ErrorRatePercent)
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return gobreaker.NewCircuitBreaker[[]byte](st)
}

func isSuccessful(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.StatusCode < http.StatusInternalServerError
	}
	return false
}
