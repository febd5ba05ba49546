package txdate

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Layout is the canonical encoding of transaction dates.
const Layout = "2006-01-02"

// FormatError reports a date string that does not match the canonical
// YYYY-MM-DD layout. Low-level parsing fails loudly; feature-level callers
// catch this and substitute a neutral default instead of propagating.
type FormatError struct {
	Input string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("txdate: invalid date %q: %v", e.Input, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Parser parses canonical transaction date strings. The same date strings
// recur heavily across a user's history, so Parse results are memoized in an
// injectable cache. A nil cache disables memoization; correctness does not
// depend on it, only performance. The cache is safe for concurrent use, so a
// single Parser may be shared across batch workers.
type Parser struct {
	cache *gocache.Cache
}

// NewParser returns a Parser with a fresh memoization cache. Entries never
// expire: a date string always parses to the same instant.
func NewParser() *Parser {
	return &Parser{cache: gocache.New(gocache.NoExpiration, 0)}
}

// NewParserWithCache returns a Parser using the given cache, or no
// memoization at all when cache is nil. Tests use this to run in isolation.
func NewParserWithCache(cache *gocache.Cache) *Parser {
	return &Parser{cache: cache}
}

// Parse converts a "YYYY-MM-DD" string into a UTC calendar date.
// It returns a *FormatError for anything that does not match the layout.
func (p *Parser) Parse(s string) (time.Time, error) {
	if p.cache != nil {
		if v, ok := p.cache.Get(s); ok {
			return v.(time.Time), nil
		}
	}

	t, err := time.ParseInLocation(Layout, s, time.UTC)
	if err != nil {
		return time.Time{}, &FormatError{Input: s, Err: err}
	}

	if p.cache != nil {
		p.cache.Set(s, t, gocache.NoExpiration)
	}
	return t, nil
}

// DayOfMonth returns the day-of-month component of a canonical date string
// without building a time.Time. It is the fast path for day-of-month
// consistency features, which only ever look at the last two characters.
func (p *Parser) DayOfMonth(s string) (int, error) {
	if len(s) != len(Layout) || s[4] != '-' || s[7] != '-' {
		return 0, &FormatError{Input: s, Err: fmt.Errorf("want layout %s", Layout)}
	}

	d0, d1 := s[8], s[9]
	if d0 < '0' || d0 > '9' || d1 < '0' || d1 > '9' {
		return 0, &FormatError{Input: s, Err: fmt.Errorf("non-numeric day component")}
	}

	day := int(d0-'0')*10 + int(d1-'0')
	if day < 1 || day > 31 {
		return 0, &FormatError{Input: s, Err: fmt.Errorf("day %d out of range", day)}
	}
	return day, nil
}
