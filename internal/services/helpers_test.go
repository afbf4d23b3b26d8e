package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"numislive/internal/domain"
	"numislive/internal/repository/memory"
	"numislive/pkg/logger"
	"numislive/pkg/utils"
)

// fakeClock is a settable clock shared by the services under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// capturePublisher records published events and can be told to fail.
type capturePublisher struct {
	mu     sync.Mutex
	events []*domain.Event
	fail   bool
}

func (p *capturePublisher) PublishEvent(_ context.Context, event *domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("publish failed")
	}
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) Events() []*domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*domain.Event(nil), p.events...)
}

func (p *capturePublisher) EventsOfType(t domain.EventType) []*domain.Event {
	var matched []*domain.Event
	for _, event := range p.Events() {
		if event.Type == t {
			matched = append(matched, event)
		}
	}
	return matched
}

// captureMailer records sent mail; failFor addresses error out.
type captureMailer struct {
	mu      sync.Mutex
	sent    []sentMail
	failFor map[string]bool
}

type sentMail struct {
	to      string
	subject string
	body    string
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{failFor: make(map[string]bool)}
}

func (m *captureMailer) SendEmail(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[to] {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (m *captureMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

// fakeStateCache is the advisory closed-flag cache backed by a map.
type fakeStateCache struct {
	mu     sync.Mutex
	closed map[string]bool
}

func newFakeStateCache() *fakeStateCache {
	return &fakeStateCache{closed: make(map[string]bool)}
}

func (c *fakeStateCache) SetClosed(_ context.Context, listingID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed[listingID] = true
	return nil
}

func (c *fakeStateCache) IsClosed(_ context.Context, listingID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed[listingID], nil
}

// engine bundles the full service stack over the in-memory store.
type engine struct {
	store      *memory.Store
	clock      *fakeClock
	publisher  *capturePublisher
	mailer     *captureMailer
	stateCache *fakeStateCache
	locks      *ListingLocks

	bids     *BidService
	closer   *Closer
	listings *ListingService
	payments *PaymentService
}

func newEngine(now time.Time) *engine {
	store := memory.NewStore()
	clock := newFakeClock(now)
	publisher := &capturePublisher{}
	mailer := newCaptureMailer()
	stateCache := newFakeStateCache()
	locks := NewListingLocks()
	log := logger.NewNop()

	return &engine{
		store:      store,
		clock:      clock,
		publisher:  publisher,
		mailer:     mailer,
		stateCache: stateCache,
		locks:      locks,
		bids:       NewBidService(store, store, locks, publisher, clock, log),
		closer:     NewCloser(store, store, store, locks, publisher, stateCache, mailer, clock, log),
		listings:   NewListingService(store, store, store, locks, publisher, clock, log),
		payments:   NewPaymentService(store, store, store, locks, clock, log),
	}
}

// addListing seeds an open listing closing at the given instant.
func (e *engine) addListing(sellerID string, startingPrice string, closingTime time.Time) *domain.Listing {
	now := e.clock.Now()
	listing := &domain.Listing{
		ID:            utils.GenerateID("listing"),
		Title:         "1921 Morgan Dollar",
		Description:   "Uncirculated",
		SellerID:      sellerID,
		StartingPrice: decimal.RequireFromString(startingPrice),
		CurrentPrice:  decimal.RequireFromString(startingPrice),
		ClosingTime:   closingTime,
		Year:          1921,
		Country:       "USA",
		Denomination:  "Dollar",
		Grade:         "MS-63",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.store.CreateListing(context.Background(), listing); err != nil {
		panic(err)
	}
	return listing
}

func (e *engine) addUser(id, username, email string) {
	e.store.AddUser(domain.User{ID: id, Username: username, Email: email, Role: "user"})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
