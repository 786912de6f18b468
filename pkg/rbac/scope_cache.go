package rbac

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/brightclass/reportcard/pkg/identity"
	"github.com/brightclass/reportcard/pkg/observability"
)

const (
	defaultScopeTTL   = time.Minute
	defaultScopeL1Cap = 1024
)

// CachedScopeResolver layers a two-tier cache (in-process LRU in front
// of Redis) over a ScopeResolver. Only the join-derived scopes
// (faculty and guardian) are cached; admin and student scopes are
// answered directly since they never touch the relationship tables.
//
// Cached entries expire after a short TTL, so results may lag
// relationship-edge writes by at most that window. Callers that write
// edges should call InvalidateUser to shorten the window.
type CachedScopeResolver struct {
	resolver *ScopeResolver
	redis    *redis.Client
	l1       *lru.Cache[string, scopeEntry]
	group    singleflight.Group
	ttl      time.Duration
	metrics  *observability.Metrics
}

type scopeEntry struct {
	StudentIDs []string  `json:"student_ids"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// NewCachedScopeResolver wraps resolver with caching. client may be
// nil, in which case only the in-process tier is used. A zero ttl
// falls back to one minute.
func NewCachedScopeResolver(resolver *ScopeResolver, client *redis.Client, ttl time.Duration, metrics *observability.Metrics) (*CachedScopeResolver, error) {
	if ttl <= 0 {
		ttl = defaultScopeTTL
	}

	l1, err := lru.New[string, scopeEntry](defaultScopeL1Cap)
	if err != nil {
		return nil, fmt.Errorf("failed to create scope cache: %w", err)
	}

	return &CachedScopeResolver{
		resolver: resolver,
		redis:    client,
		l1:       l1,
		ttl:      ttl,
		metrics:  metrics,
	}, nil
}

// CanAccessStudent answers membership from the cached scope for
// faculty and guardians, and delegates directly for everyone else.
func (c *CachedScopeResolver) CanAccessStudent(ctx context.Context, user *identity.Profile, studentID string) (bool, error) {
	if user == nil || studentID == "" {
		return false, nil
	}

	switch user.Role {
	case identity.RoleFaculty, identity.RoleGuardian:
		ids, err := c.AccessibleStudents(ctx, user)
		if err != nil {
			return false, err
		}
		for _, id := range ids {
			if id == studentID {
				return true, nil
			}
		}
		return false, nil
	default:
		return c.resolver.CanAccessStudent(ctx, user, studentID)
	}
}

// AccessibleStudents returns the user's student scope, consulting the
// L1 and L2 caches before recomputing the relationship join.
// Concurrent misses for the same user collapse into a single join.
func (c *CachedScopeResolver) AccessibleStudents(ctx context.Context, user *identity.Profile) ([]string, error) {
	if user == nil {
		return nil, nil
	}

	switch user.Role {
	case identity.RoleFaculty, identity.RoleGuardian:
	default:
		return c.resolver.AccessibleStudents(ctx, user)
	}

	key := scopeKey(user.ID)

	if entry, ok := c.l1.Get(key); ok && time.Now().Before(entry.ExpiresAt) {
		c.countCache("l1", true)
		return entry.StudentIDs, nil
	}
	c.countCache("l1", false)

	if ids, ok := c.fromRedis(ctx, key); ok {
		c.countCache("l2", true)
		return ids, nil
	}
	c.countCache("l2", false)

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		ids, err := c.resolver.AccessibleStudents(ctx, user)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, ids)
		return ids, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]string), nil
}

// InvalidateUser drops the cached scope for a user. Called after a
// relationship edge involving the user is written.
func (c *CachedScopeResolver) InvalidateUser(ctx context.Context, userID string) error {
	key := scopeKey(userID)
	c.l1.Remove(key)
	if c.redis != nil {
		return c.redis.Del(ctx, key).Err()
	}
	return nil
}

func (c *CachedScopeResolver) fromRedis(ctx context.Context, key string) ([]string, bool) {
	if c.redis == nil {
		return nil, false
	}

	data, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		// Treat any Redis failure as a miss; the join still answers.
		return nil, false
	}

	var entry scopeEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		c.redis.Del(ctx, key)
		return nil, false
	}

	c.l1.Add(key, entry)
	return entry.StudentIDs, true
}

func (c *CachedScopeResolver) store(ctx context.Context, key string, ids []string) {
	entry := scopeEntry{StudentIDs: ids, ExpiresAt: time.Now().Add(c.ttl)}
	c.l1.Add(key, entry)

	if c.redis == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	c.redis.Set(ctx, key, data, c.ttl)
}

func (c *CachedScopeResolver) countCache(tier string, hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.ScopeCacheHitsTotal.WithLabelValues(tier).Inc()
	} else {
		c.metrics.ScopeCacheMissesTotal.WithLabelValues(tier).Inc()
	}
}

func scopeKey(userID string) string {
	return "scope:user:" + userID
}
