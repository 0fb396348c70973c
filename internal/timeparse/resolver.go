// Package timeparse resolves natural-language time phrases against a
// reference instant in a fixed timezone.
//
// The resolver is deliberately strict: a phrase either maps to exactly
// one timestamp or fails with a [ResolutionError]. Ambiguous input is
// never guessed at — the agent surfaces the error to the model, which
// asks the user for clarification. Future-dated phrases are rejected
// because the logger only records events that already occurred.
package timeparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Default clock hours for vague day-part phrases.
const (
	DefaultMorningHour   = 8
	DefaultAfternoonHour = 14
	DefaultEveningHour   = 20
)

// ResolutionError indicates a phrase could not be resolved to a single
// past timestamp.
type ResolutionError struct {
	Phrase string
	Reason string
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve time %q: %s", e.Phrase, e.Reason)
}

// Resolver maps time phrases to absolute timestamps. The zero value is
// not usable; construct with [NewResolver].
type Resolver struct {
	loc         *time.Location
	morningHour int
}

// NewResolver creates a resolver for the given IANA timezone.
// morningHour is the clock hour used for "this morning"; pass 0 for
// [DefaultMorningHour].
func NewResolver(timezone string, morningHour int) (*Resolver, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	if morningHour <= 0 || morningHour > 23 {
		morningHour = DefaultMorningHour
	}
	return &Resolver{loc: loc, morningHour: morningHour}, nil
}

// Location returns the resolver's timezone.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Resolve maps phrase to an absolute timestamp relative to ref.
// An empty phrase (or "now") resolves to ref itself. Any phrase that
// resolves strictly after ref fails with a [ResolutionError].
func (r *Resolver) Resolve(phrase string, ref time.Time) (time.Time, error) {
	ref = ref.In(r.loc)

	norm := normalize(phrase)
	if norm == "" || norm == "now" {
		return ref, nil
	}

	t, err := r.resolve(norm, phrase, ref)
	if err != nil {
		return time.Time{}, err
	}
	if t.After(ref) {
		return time.Time{}, &ResolutionError{Phrase: phrase, Reason: "resolves to a future time; only past events can be logged"}
	}
	return t, nil
}

func (r *Resolver) resolve(norm, orig string, ref time.Time) (time.Time, error) {
	// "<something> ago" — relative offsets.
	if strings.HasSuffix(norm, " ago") {
		return r.resolveAgo(norm, orig, ref)
	}

	// "<clock> on <date>" — explicit absolute form.
	if clock, date, ok := strings.Cut(norm, " on "); ok {
		day, err := parseDate(date)
		if err != nil {
			return time.Time{}, &ResolutionError{Phrase: orig, Reason: err.Error()}
		}
		hh, mm, err := parseClock(clock)
		if err != nil {
			return time.Time{}, &ResolutionError{Phrase: orig, Reason: err.Error()}
		}
		return time.Date(day.Year(), day.Month(), day.Day(), hh, mm, 0, 0, r.loc), nil
	}

	// "<day qualifier> at <clock>" — e.g. "yesterday at 3pm".
	if day, clock, ok := strings.Cut(norm, " at "); ok {
		base, known, err := r.resolveDay(day, orig, ref)
		if !known {
			// Allow an explicit date on the left: "2025-07-28 at 10:12am".
			d, derr := parseDate(day)
			if derr != nil {
				return time.Time{}, &ResolutionError{Phrase: orig, Reason: fmt.Sprintf("unrecognized day qualifier %q", day)}
			}
			base = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, r.loc)
		} else if err != nil {
			return time.Time{}, err
		}
		hh, mm, err := parseClock(clock)
		if err != nil {
			return time.Time{}, &ResolutionError{Phrase: orig, Reason: err.Error()}
		}
		return time.Date(base.Year(), base.Month(), base.Day(), hh, mm, 0, 0, r.loc), nil
	}

	// Bare day qualifier.
	if t, known, err := r.resolveDay(norm, orig, ref); known {
		return t, err
	}

	// Bare clock time — today at that time.
	if hh, mm, err := parseClock(norm); err == nil {
		return time.Date(ref.Year(), ref.Month(), ref.Day(), hh, mm, 0, 0, r.loc), nil
	}

	// ISO-like date and datetime forms.
	for _, format := range []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
	} {
		if t, err := time.ParseInLocation(format, norm, r.loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, norm); err == nil {
		return t.In(r.loc), nil
	}
	if day, err := parseDate(norm); err == nil {
		return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, r.loc), nil
	}

	return time.Time{}, &ResolutionError{Phrase: orig, Reason: "unrecognized time expression"}
}

// resolveDay maps a day-level qualifier to a timestamp. known reports
// whether day is a recognized qualifier at all; err is set for
// qualifiers that are recognized but unloggable ("tomorrow").
// Qualifiers without an inherent clock time keep ref's wall-clock time
// so that "today" stays on today's calendar date.
func (r *Resolver) resolveDay(day, orig string, ref time.Time) (t time.Time, known bool, err error) {
	switch day {
	case "today":
		return ref, true, nil
	case "yesterday":
		return time.Date(ref.Year(), ref.Month(), ref.Day()-1, ref.Hour(), ref.Minute(), ref.Second(), 0, r.loc), true, nil
	case "this morning":
		return time.Date(ref.Year(), ref.Month(), ref.Day(), r.morningHour, 0, 0, 0, r.loc), true, nil
	case "this afternoon":
		return time.Date(ref.Year(), ref.Month(), ref.Day(), DefaultAfternoonHour, 0, 0, 0, r.loc), true, nil
	case "this evening", "tonight":
		return time.Date(ref.Year(), ref.Month(), ref.Day(), DefaultEveningHour, 0, 0, 0, r.loc), true, nil
	case "last night":
		return time.Date(ref.Year(), ref.Month(), ref.Day()-1, DefaultEveningHour, 0, 0, 0, r.loc), true, nil
	case "tomorrow":
		return time.Time{}, true, &ResolutionError{Phrase: orig, Reason: "future dates cannot be logged"}
	}
	return time.Time{}, false, nil
}

// resolveAgo handles "N minutes ago", "2 hours ago", "an hour ago".
func (r *Resolver) resolveAgo(norm, orig string, ref time.Time) (time.Time, error) {
	fields := strings.Fields(strings.TrimSuffix(norm, " ago"))
	if len(fields) != 2 {
		return time.Time{}, &ResolutionError{Phrase: orig, Reason: "expected '<number> <unit> ago'"}
	}

	var n int
	switch fields[0] {
	case "an", "a", "one":
		n = 1
	default:
		v, err := strconv.Atoi(fields[0])
		if err != nil || v < 0 {
			return time.Time{}, &ResolutionError{Phrase: orig, Reason: "expected '<number> <unit> ago'"}
		}
		n = v
	}

	var unit time.Duration
	switch {
	case strings.HasPrefix(fields[1], "second"):
		unit = time.Second
	case strings.HasPrefix(fields[1], "minute"):
		unit = time.Minute
	case strings.HasPrefix(fields[1], "hour"):
		unit = time.Hour
	case strings.HasPrefix(fields[1], "day"):
		unit = 24 * time.Hour
	default:
		return time.Time{}, &ResolutionError{Phrase: orig, Reason: fmt.Sprintf("unknown unit %q", fields[1])}
	}

	return ref.Add(-time.Duration(n) * unit), nil
}

// parseClock parses clock-time fragments: "3pm", "3 pm", "3:04pm",
// "10:12 am", "15:04".
func parseClock(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	for _, format := range []string{
		"3:04pm",
		"3:04 pm",
		"3pm",
		"3 pm",
		"15:04",
		"15:04:05",
	} {
		if t, perr := time.Parse(format, s); perr == nil {
			return t.Hour(), t.Minute(), nil
		}
	}
	return 0, 0, fmt.Errorf("unrecognized clock time %q", s)
}

// parseDate parses calendar-date fragments: "2025-07-28", "07/28/2025".
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, format := range []string{
		"2006-01-02",
		"01/02/2006",
		"January 2, 2006",
		"January 2 2006",
		"Jan 2, 2006",
	} {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// normalize lowercases, trims, strips a leading "at ", and collapses
// internal whitespace so phrase matching can be exact.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "at ")
	return strings.Join(strings.Fields(s), " ")
}
