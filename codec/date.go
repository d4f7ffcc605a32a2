package codec

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/dustin/go-humanize"

	"github.com/reoring/materia"
)

// DefaultDisplayLayout renders day/month/year with a 24h clock.
const DefaultDisplayLayout = "02/01/2006 15:04:05"

// Date converts between textual dates and time.Time. Decoding tries, in
// order: RFC3339 (with or without fractional seconds), the configured
// layouts, then a permissive parse of common formats. Strings without an
// explicit offset are read in Location.
type Date struct {
	Layouts       []string
	Location      *time.Location
	DisplayLayout string

	now func() time.Time
}

// DateOption configures a Date codec.
type DateOption func(*Date)

// WithLayouts appends layouts tried after RFC3339.
func WithLayouts(layouts ...string) DateOption {
	return func(d *Date) { d.Layouts = append(d.Layouts, layouts...) }
}

// WithLocation sets the zone used for strings without an offset.
func WithLocation(loc *time.Location) DateOption {
	return func(d *Date) {
		if loc != nil {
			d.Location = loc
		}
	}
}

// WithDisplayLayout sets the layout of the "formatted" and "local" bundle keys.
func WithDisplayLayout(layout string) DateOption {
	return func(d *Date) {
		if layout != "" {
			d.DisplayLayout = layout
		}
	}
}

// WithClock overrides the clock used for relative descriptions.
func WithClock(now func() time.Time) DateOption {
	return func(d *Date) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDate returns a Date codec (UTC, DefaultDisplayLayout unless configured).
func NewDate(opts ...DateOption) *Date {
	d := &Date{Location: time.UTC, DisplayLayout: DefaultDisplayLayout, now: time.Now}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Decode parses s. layout, when non-empty, is tried right after RFC3339.
func (d *Date) Decode(ctx context.Context, s string, layout string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, materia.Issues{{Path: "/", Code: materia.CodeInvalidFormat, Message: "empty date"}}
	}
	if t, err := parseRFC3339(s); err == nil {
		return t, nil
	}
	loc := d.location()
	layouts := d.Layouts
	if layout != "" {
		layouts = append([]string{layout}, layouts...)
	}
	for _, l := range layouts {
		if t, err := time.ParseInLocation(l, s, loc); err == nil {
			return t, nil
		}
	}
	t, err := dateparse.ParseIn(s, loc)
	if err != nil {
		return time.Time{}, materia.Issues{{Path: "/", Code: materia.CodeInvalidFormat, Message: fmt.Sprintf("invalid date %q: %v", s, err)}}
	}
	return t, nil
}

// Encode renders t as canonical RFC3339 in UTC.
func (d *Date) Encode(ctx context.Context, t time.Time) (string, error) {
	if t.IsZero() {
		return "", materia.Issues{{Path: "/", Code: materia.CodeInvalidType, Message: "cannot encode zero time"}}
	}
	return formatRFC3339Canonical(t), nil
}

// FromUnix interprets n as seconds since the Unix epoch.
func (d *Date) FromUnix(n int64) time.Time { return time.Unix(n, 0).In(d.location()) }

// FromUnixFloat interprets f as fractional seconds since the Unix epoch.
func (d *Date) FromUnixFloat(f float64) time.Time {
	sec := int64(f)
	nsec := int64((f - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).In(d.location())
}

// Bundle renders t in every externalized form: iso, diff_from_now, utc,
// formatted, timestamp, timezone and local. tz names the display zone; an
// empty tz uses the codec location.
func (d *Date) Bundle(t time.Time, tz string) (map[string]any, error) {
	loc := d.location()
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("codec: timezone %q: %w", tz, err)
		}
		loc = l
	}
	return map[string]any{
		"iso":           t.Format(time.RFC3339Nano),
		"diff_from_now": humanize.RelTime(t, d.now(), "ago", "from now"),
		"utc":           t.UTC().Format(time.RFC3339),
		"formatted":     t.Format(d.DisplayLayout),
		"timestamp":     t.Unix(),
		"timezone":      loc.String(),
		"local":         t.In(loc).Format(d.DisplayLayout),
	}, nil
}

// In returns a copy of d that reads offset-less strings in loc.
func (d *Date) In(loc *time.Location) *Date {
	cp := *d
	if loc != nil {
		cp.Location = loc
	}
	return &cp
}

func (d *Date) location() *time.Location {
	if d.Location == nil {
		return time.UTC
	}
	return d.Location
}

func parseRFC3339(s string) (time.Time, error) {
	// Accept RFC3339Nano (trailing zeros optional)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		if t2, err2 := time.Parse(time.RFC3339, s); err2 == nil {
			return t2, nil
		}
		return time.Time{}, err
	}
	return t, nil
}

func formatRFC3339Canonical(t time.Time) string {
	// Normalize to UTC and format using RFC3339Nano (Go trims trailing zeros)
	return t.UTC().Format(time.RFC3339Nano)
}
