package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/superplace/rosterd/internal/domain"
	"github.com/superplace/rosterd/internal/events"
	redisinfra "github.com/superplace/rosterd/internal/infrastructure/redis"
	"github.com/superplace/rosterd/internal/observability/metrics"
	"github.com/superplace/rosterd/internal/reliability/circuitbreaker"
	"github.com/superplace/rosterd/internal/reliability/retry"
	"github.com/superplace/rosterd/internal/security"
	"github.com/superplace/rosterd/pkg/cache"
)

const rosterCacheTTL = 30 * time.Second

// RosterService answers "list accounts visible to this caller". It composes
// the access scoper's predicate with the account directory and caches scope
// lists in Redis (or an in-process cache when Redis is absent). The cache is
// invalidated synchronously on every account creation, so reads observe all
// completed writes.
type RosterService struct {
	accountRepo domain.AccountRepository
	scoper      *security.Scoper
	redisClient *redisinfra.Client // nil when not configured
	local       *cache.Cache[[]*domain.Account]
	breaker     *circuitbreaker.CircuitBreaker
	retryCfg    *retry.Config
	logger      *slog.Logger
}

// NewRosterService creates a roster query service. The broker is used for
// cache invalidation; pass nil to disable caching hooks (tests).
func NewRosterService(
	accountRepo domain.AccountRepository,
	scoper *security.Scoper,
	redisClient *redisinfra.Client,
	broker *events.Broker,
	logger *slog.Logger,
) *RosterService {
	if logger == nil {
		logger = slog.Default()
	}

	s := &RosterService{
		accountRepo: accountRepo,
		scoper:      scoper,
		redisClient: redisClient,
		local:       cache.New[[]*domain.Account](),
		breaker:     circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second),
		retryCfg:    retry.DefaultConfig(),
		logger:      logger,
	}
	s.breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		logger.Warn("roster cache breaker state change",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	if broker != nil {
		broker.Observe(s.invalidateOnAccountCreated)
	}
	return s
}

// ListVisible applies the caller's visibility predicate and then the role
// filter. Results keep creation order. An unscoped non-administrator gets an
// empty roster, never an error and never cross-tenant data.
func (s *RosterService) ListVisible(ctx context.Context, caller domain.Caller, roleFilter domain.Role) ([]*domain.Account, error) {
	visibility := s.scoper.ComputeVisibility(caller)
	if visibility.Empty() {
		metrics.ObserveRosterQuery("none", "ok")
		return []*domain.Account{}, nil
	}

	scope := "tenant"
	if visibility.All() {
		scope = "all"
	}

	accounts, err := s.scopeAccounts(ctx, visibility)
	if err != nil {
		metrics.ObserveRosterQuery(scope, "error")
		return nil, err
	}

	out := make([]*domain.Account, 0, len(accounts))
	for _, a := range accounts {
		if roleFilter != "" && a.Role != roleFilter {
			continue
		}
		out = append(out, a)
	}

	metrics.ObserveRosterQuery(scope, "ok")
	return out, nil
}

func (s *RosterService) scopeAccounts(ctx context.Context, v security.Visibility) ([]*domain.Account, error) {
	key := s.cacheKey(v)
	if accounts, ok := s.cacheGet(ctx, key); ok {
		return accounts, nil
	}

	accounts, err := retry.Do(ctx, s.retryCfg, s.logger, "roster_scope_fetch", func(ctx context.Context) ([]*domain.Account, error) {
		if v.All() {
			return s.accountRepo.ListAll()
		}
		return s.accountRepo.ListByTenant(v.TenantID())
	})
	if err != nil {
		if domain.KindOf(err) == "" {
			err = domain.StorageError(err)
		}
		return nil, err
	}
	if accounts == nil {
		accounts = []*domain.Account{}
	}

	s.cacheSet(ctx, key, accounts)
	return accounts, nil
}

func (s *RosterService) cacheKey(v security.Visibility) string {
	if v.All() {
		return "roster:all"
	}
	return "roster:tenant:" + v.TenantID()
}

func (s *RosterService) cacheGet(ctx context.Context, key string) ([]*domain.Account, bool) {
	if s.redisClient == nil {
		return s.local.Get(key)
	}
	if !s.breaker.AllowRequest() {
		return nil, false
	}

	raw, err := s.redisClient.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.breaker.RecordFailure()
		}
		return nil, false
	}
	s.breaker.RecordSuccess()

	var accounts []*domain.Account
	if err := json.Unmarshal([]byte(raw), &accounts); err != nil {
		s.logger.Warn("dropping corrupt roster cache entry", slog.String("key", key))
		return nil, false
	}
	return accounts, true
}

func (s *RosterService) cacheSet(ctx context.Context, key string, accounts []*domain.Account) {
	if s.redisClient == nil {
		s.local.Set(key, accounts, rosterCacheTTL)
		return
	}
	if !s.breaker.AllowRequest() {
		return
	}

	raw, err := json.Marshal(accounts)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, key, string(raw), rosterCacheTTL); err != nil {
		s.breaker.RecordFailure()
		return
	}
	s.breaker.RecordSuccess()
}

// invalidateOnAccountCreated runs synchronously on the signup path
func (s *RosterService) invalidateOnAccountCreated(e events.AccountCreated) {
	keys := []string{"roster:all"}
	if e.TenantID != "" {
		keys = append(keys, "roster:tenant:"+e.TenantID)
	}

	if s.redisClient == nil {
		for _, key := range keys {
			s.local.Delete(key)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, key := range keys {
		if err := s.redisClient.Delete(ctx, key); err != nil {
			s.logger.Warn("roster cache invalidation failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}
