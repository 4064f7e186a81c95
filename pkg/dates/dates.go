// Package dates parses the free-form date strings submitted by the
// certificate forms.
//
// Two formats are recognised. A value of three slash-separated parts whose
// first two parts are exactly two characters long is read as DD/MM/YYYY.
// Everything else goes through a lenient parser that accepts ISO-8601 and
// the usual US/English layouts (month first for slash dates). The split is
// a heuristic: "05/06/07" is read as 5 June 1907, and "06/15/2023" as
// day 6 of month 15, which rolls over into March 2024.
package dates

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ErrInvalidDate is returned when a value matches neither format.
var ErrInvalidDate = errors.New("invalid date")

// Parser converts form values into instants in a fixed location.
type Parser struct {
	loc *time.Location
	now func() time.Time
}

// NewParser builds a parser anchored to loc (UTC when nil).
func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{loc: loc, now: time.Now}
}

// WithClock returns a copy of the parser using now as its clock.
func (p *Parser) WithClock(now func() time.Time) *Parser {
	clone := *p
	clone.now = now
	return &clone
}

// Parse interprets raw. An empty value yields the current time.
func (p *Parser) Parse(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return p.now().In(p.loc), nil
	}

	parts := strings.Split(raw, "/")
	if len(parts) == 3 && parts[2] != "" && len(parts[0]) == 2 && len(parts[1]) == 2 {
		return p.dayMonthYear(raw, parts[0], parts[1], parts[2])
	}

	t, err := dateparse.ParseIn(raw, p.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return t, nil
}

// dayMonthYear mirrors calendar arithmetic: out of range days and months
// roll over, and years below 100 land in the 1900s.
func (p *Parser) dayMonthYear(raw, d, m, y string) (time.Time, error) {
	day, errD := strconv.Atoi(strings.TrimSpace(d))
	month, errM := strconv.Atoi(strings.TrimSpace(m))
	year, errY := strconv.Atoi(strings.TrimSpace(y))
	if errD != nil || errM != nil || errY != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	if year >= 0 && year <= 99 {
		year += 1900
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, p.loc), nil
}
