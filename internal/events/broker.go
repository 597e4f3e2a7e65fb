package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/superplace/rosterd/internal/domain"
)

// AccountCreated is published once per completed signup
type AccountCreated struct {
	AccountID string    `json:"accountId"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	TenantID  string    `json:"academyId,omitempty"`
	At        time.Time `json:"at"`
}

// NewAccountCreated builds the event for a stored account
func NewAccountCreated(account *domain.Account) AccountCreated {
	return AccountCreated{
		AccountID: account.ID,
		Name:      account.Name,
		Role:      string(account.Role),
		TenantID:  account.TenantID,
		At:        account.CreatedAt,
	}
}

type subscriber struct {
	ch       chan AccountCreated
	tenantID string // empty subscribes to every tenant
}

// Broker fans account events out to in-process consumers. Observers run
// synchronously on the publishing goroutine (cache invalidation must
// complete before the signup response is written); subscribers receive on
// buffered channels and slow ones drop events rather than block signups.
type Broker struct {
	mu        sync.RWMutex
	observers []func(AccountCreated)
	subs      map[int]subscriber
	nextID    int
	logger    *slog.Logger
}

// NewBroker creates an empty broker
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{subs: map[int]subscriber{}, logger: logger}
}

// Observe registers a synchronous observer
func (b *Broker) Observe(fn func(AccountCreated)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, fn)
}

// Subscribe registers a channel consumer, optionally filtered to one tenant
func (b *Broker) Subscribe(tenantID string) (int, <-chan AccountCreated) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	ch := make(chan AccountCreated, 16)
	b.subs[id] = subscriber{ch: ch, tenantID: tenantID}
	return id, ch
}

// Unsubscribe removes a channel consumer and closes its channel
func (b *Broker) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// Publish delivers an event to all observers and matching subscribers
func (b *Broker) Publish(e AccountCreated) {
	b.mu.RLock()
	observers := b.observers
	subs := make([]subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, fn := range observers {
		fn(e)
	}
	for _, s := range subs {
		if s.tenantID != "" && s.tenantID != e.TenantID {
			continue
		}
		select {
		case s.ch <- e:
		default:
			b.logger.Warn("dropping account event for slow subscriber",
				slog.String("account_id", e.AccountID),
			)
		}
	}
}
