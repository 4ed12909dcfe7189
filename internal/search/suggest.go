package search

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gearvn/storefront/internal/domain"
	"github.com/gearvn/storefront/pkg/debounce"
)

// ErrSuperseded is returned to a suggestion request overtaken by a newer
// keystroke from the same session.
var ErrSuperseded = errors.New("suggestion request superseded by a newer one")

// Suggestion is a compact product entry for the header dropdown.
type Suggestion struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Code   string          `json:"code"`
	Price  domain.Money    `json:"price"`
	Images json.RawMessage `json:"images,omitempty"`
}

// Navigation is where the header sends the shopper.
type Navigation struct {
	Redirect   string `json:"redirect"`
	ClearQuery bool   `json:"clearQuery,omitempty"`
}

// SelectPath is the navigation after picking a suggestion.
func SelectPath(productID string) Navigation {
	return Navigation{Redirect: "/products/" + url.PathEscape(productID), ClearQuery: true}
}

// SubmitPath is the navigation after submitting the raw query.
func SubmitPath(query string) Navigation {
	return Navigation{Redirect: "/products?search=" + url.QueryEscape(strings.TrimSpace(query))}
}

type waiter struct {
	// fired receives true when the debounce timer fires for this request and
	// false when a newer request replaced it. It is sent to at most once.
	fired chan bool
}

type sessionState struct {
	debouncer *debounce.Debouncer
	waiter    *waiter
	lastSeen  time.Time
}

// Suggester computes suggestions once a session's keystrokes have been quiet
// for the debounce delay. Only the latest request of a burst is answered.
type Suggester struct {
	catalog *Catalog
	delay   time.Duration
	limit   int
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*sessionState
}

// NewSuggester creates a suggester over catalog returning at most limit
// entries.
func NewSuggester(catalog *Catalog, delay time.Duration, limit int, logger *slog.Logger) *Suggester {
	return &Suggester{
		catalog:  catalog,
		delay:    delay,
		limit:    limit,
		logger:   logger,
		sessions: make(map[string]*sessionState),
	}
}

// Suggest registers one keystroke for sessionID and blocks until the
// debounce delay has passed without a newer keystroke. A request replaced by
// a newer one returns ErrSuperseded. A blank query cancels any pending
// request and returns no suggestions immediately.
func (s *Suggester) Suggest(ctx context.Context, sessionID, query string) ([]Suggestion, error) {
	q := strings.TrimSpace(query)

	s.mu.Lock()
	st, ok := s.sessions[sessionID]
	if !ok {
		st = &sessionState{debouncer: debounce.New(s.delay)}
		s.sessions[sessionID] = st
	}
	st.lastSeen = time.Now()
	if st.waiter != nil {
		st.waiter.fired <- false
		st.waiter = nil
	}

	if q == "" {
		st.debouncer.Cancel()
		s.mu.Unlock()
		return []Suggestion{}, nil
	}

	w := &waiter{fired: make(chan bool, 1)}
	st.waiter = w
	st.debouncer.Trigger(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if st.waiter == w {
			st.waiter = nil
			w.fired <- true
		}
	})
	s.mu.Unlock()

	select {
	case fired := <-w.fired:
		if !fired {
			return nil, ErrSuperseded
		}
	case <-ctx.Done():
		s.mu.Lock()
		if st.waiter == w {
			st.waiter = nil
			st.debouncer.Cancel()
		}
		s.mu.Unlock()
		return nil, ctx.Err()
	}

	products, err := s.catalog.Products(ctx)
	if err != nil {
		return nil, err
	}
	return s.match(products, q), nil
}

func (s *Suggester) match(products []domain.Product, q string) []Suggestion {
	lower := strings.ToLower(q)
	out := make([]Suggestion, 0, s.limit)
	for _, p := range products {
		if !Matches(p, lower) {
			continue
		}
		out = append(out, Suggestion{
			ID:     p.ID,
			Name:   p.Name,
			Code:   p.Code,
			Price:  p.Price(),
			Images: p.Images,
		})
		if len(out) == s.limit {
			break
		}
	}
	return out
}

// Sweep forgets sessions without a pending request that have been quiet for
// longer than idle, and returns how many were removed.
func (s *Suggester) Sweep(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-idle)
	removed := 0
	for id, st := range s.sessions {
		if st.waiter == nil && st.lastSeen.Before(cutoff) {
			st.debouncer.Cancel()
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Sessions returns the number of sessions tracked.
func (s *Suggester) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
