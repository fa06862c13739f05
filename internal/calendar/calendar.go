// Package calendar answers whether an exchange holds a session on a date.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // exchange zones on hosts without a zoneinfo database

	"gopkg.in/yaml.v3"

	"github.com/codyseavey/basket-tracker/internal/models"
)

// ErrNotCovered is returned for dates outside the years a calendar describes
var ErrNotCovered = errors.New("date not covered by calendar")

// File is the YAML form of an exchange calendar
type File struct {
	Exchange        string `yaml:"exchange"`
	Name            string `yaml:"name"`
	Timezone        string `yaml:"timezone"`
	Years           []int  `yaml:"years"`
	Holidays        []Day  `yaml:"holidays"`
	SpecialSessions []Day  `yaml:"special_sessions"` // sessions held on a weekend or holiday
}

// Day is a dated calendar entry
type Day struct {
	Date string `yaml:"date"`
	Name string `yaml:"name"`
}

// Holiday is a calendar built from an explicit holiday list: weekdays are
// sessions unless listed as holidays, weekends are closed unless listed as
// special sessions.
type Holiday struct {
	exchange string
	location *time.Location
	years    map[int]bool
	closed   map[models.Date]string
	special  map[models.Date]string
}

// LoadFile reads a calendar from a YAML file
func LoadFile(path string) (*Holiday, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a calendar from YAML
func Parse(data []byte) (*Holiday, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse calendar: %w", err)
	}
	return New(f)
}

// New validates f and builds the calendar
func New(f File) (*Holiday, error) {
	if strings.TrimSpace(f.Exchange) == "" {
		return nil, fmt.Errorf("calendar has no exchange")
	}
	if len(f.Years) == 0 {
		return nil, fmt.Errorf("calendar %s covers no years", f.Exchange)
	}

	loc := time.UTC
	if f.Timezone != "" {
		l, err := time.LoadLocation(f.Timezone)
		if err != nil {
			return nil, fmt.Errorf("calendar %s: bad timezone: %w", f.Exchange, err)
		}
		loc = l
	}

	c := &Holiday{
		exchange: f.Exchange,
		location: loc,
		years:    make(map[int]bool, len(f.Years)),
		closed:   make(map[models.Date]string, len(f.Holidays)),
		special:  make(map[models.Date]string, len(f.SpecialSessions)),
	}
	for _, y := range f.Years {
		c.years[y] = true
	}

	for _, h := range f.Holidays {
		d, err := models.ParseDate(h.Date)
		if err != nil {
			return nil, fmt.Errorf("calendar %s: holiday %q: %w", f.Exchange, h.Name, err)
		}
		if !c.years[d.Year] {
			return nil, fmt.Errorf("calendar %s: holiday %s outside covered years", f.Exchange, d)
		}
		c.closed[d] = h.Name
	}
	for _, s := range f.SpecialSessions {
		d, err := models.ParseDate(s.Date)
		if err != nil {
			return nil, fmt.Errorf("calendar %s: special session %q: %w", f.Exchange, s.Name, err)
		}
		if !c.years[d.Year] {
			return nil, fmt.Errorf("calendar %s: special session %s outside covered years", f.Exchange, d)
		}
		c.special[d] = s.Name
	}

	return c, nil
}

// Exchange returns the exchange code
func (c *Holiday) Exchange() string {
	return c.exchange
}

// Location returns the exchange's timezone
func (c *Holiday) Location() *time.Location {
	return c.location
}

// Sessions returns the number of sessions scheduled on d
func (c *Holiday) Sessions(ctx context.Context, d models.Date) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !c.years[d.Year] {
		return 0, fmt.Errorf("%s %s: %w", c.exchange, d, ErrNotCovered)
	}

	if _, ok := c.special[d]; ok {
		return 1, nil
	}
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return 0, nil
	}
	if _, ok := c.closed[d]; ok {
		return 0, nil
	}
	return 1, nil
}

// HolidayName returns the listed holiday for d, if any
func (c *Holiday) HolidayName(d models.Date) (string, bool) {
	name, ok := c.closed[d]
	return name, ok
}
