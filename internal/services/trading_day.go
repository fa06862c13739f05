package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/codyseavey/basket-tracker/internal/calendar"
	"github.com/codyseavey/basket-tracker/internal/metrics"
	"github.com/codyseavey/basket-tracker/internal/models"
)

// Calendar reports how many trading sessions an exchange holds on a date
type Calendar interface {
	Sessions(ctx context.Context, d models.Date) (int, error)
}

// holidayNamer is implemented by calendars that can name a closure
type holidayNamer interface {
	HolidayName(d models.Date) (string, bool)
}

// TradingDayGate decides whether the batch run should record a date
type TradingDayGate struct {
	calendar Calendar
	log      zerolog.Logger
}

// NewTradingDayGate creates a gate. A nil calendar means weekday-only checks.
func NewTradingDayGate(cal Calendar, log zerolog.Logger) *TradingDayGate {
	return &TradingDayGate{
		calendar: cal,
		log:      log.With().Str("component", "trading_day").Logger(),
	}
}

// IsTradingDay reports whether date has at least one session. When the
// calendar is missing or fails, Monday through Friday count as trading days.
func (g *TradingDayGate) IsTradingDay(ctx context.Context, date models.Date) bool {
	if g.calendar != nil {
		sessions, err := g.calendar.Sessions(ctx, date)
		if err == nil {
			if sessions == 0 {
				g.logClosure(date)
			}
			return sessions > 0
		}
		if errors.Is(err, calendar.ErrNotCovered) {
			g.log.Error().Err(err).Str("date", date.String()).Msg("Trading calendar does not cover this year, falling back to weekday rule")
		} else {
			g.log.Warn().Err(err).Str("date", date.String()).Msg("Calendar lookup failed, falling back to weekday rule")
		}
	} else {
		g.log.Warn().Str("date", date.String()).Msg("No trading calendar configured, using weekday rule")
	}

	metrics.CalendarFallbacksTotal.Inc()
	return isWeekday(date)
}

func (g *TradingDayGate) logClosure(date models.Date) {
	namer, ok := g.calendar.(holidayNamer)
	if !ok {
		return
	}
	if name, ok := namer.HolidayName(date); ok {
		g.log.Info().Str("date", date.String()).Str("holiday", name).Msg("Exchange closed for holiday")
	}
}

func isWeekday(date models.Date) bool {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}
