package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
)

const dateLayout = "2006-01-02"

// InvalidationMode selects how a period invalidation matches cached keys.
type InvalidationMode string

const (
	// InvalidateRange compares the parsed calculation date against the period bounds.
	InvalidateRange InvalidationMode = "range"
	// InvalidateSubstring evicts keys whose text contains either bound date string.
	InvalidateSubstring InvalidationMode = "substring"
)

func (m InvalidationMode) IsValid() bool {
	return m == InvalidateRange || m == InvalidateSubstring
}

var ErrInvalidKey = errors.New("invalid cache key")

// Key identifies one cached social insurance result.
type Key struct {
	EmployeeID      string
	PeriodID        string
	CalculationDate time.Time
}

func NewKey(employeeID, periodID string, calculationDate time.Time) Key {
	return Key{EmployeeID: employeeID, PeriodID: periodID, CalculationDate: truncateDay(calculationDate)}
}

func (k Key) String() string {
	return k.EmployeeID + ":" + k.PeriodID + ":" + k.CalculationDate.Format(dateLayout)
}

// ParseKey reverses Key.String.
func ParseKey(s string) (Key, error) {
	last := strings.LastIndex(s, ":")
	if last < 0 {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	head, datePart := s[:last], s[last+1:]
	sep := strings.Index(head, ":")
	if sep <= 0 || sep == len(head)-1 {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	day, err := time.Parse(dateLayout, datePart)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return Key{EmployeeID: head[:sep], PeriodID: head[sep+1:], CalculationDate: day}, nil
}

// Matcher selects keys for eviction.
type Matcher func(Key) bool

// PeriodMatcher matches every key calculated within [start, end] under the given mode.
func PeriodMatcher(mode InvalidationMode, start, end time.Time) Matcher {
	from, to := truncateDay(start), truncateDay(end)
	if mode == InvalidateSubstring {
		startStr, endStr := from.Format(dateLayout), to.Format(dateLayout)
		return func(k Key) bool {
			s := k.String()
			return strings.Contains(s, startStr) || strings.Contains(s, endStr)
		}
	}
	return func(k Key) bool {
		d := truncateDay(k.CalculationDate)
		return !d.Before(from) && !d.After(to)
	}
}

// Store keeps read-only copies of computed results. Entries are replaced or evicted, never mutated.
type Store interface {
	Get(ctx context.Context, key Key) (*insurance.SocialInsuranceResult, bool, error)
	Set(ctx context.Context, key Key, result *insurance.SocialInsuranceResult) error
	Delete(ctx context.Context, key Key) error
	DeleteMatching(ctx context.Context, match Matcher) (int, error)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
