package pricechanges

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tavola-backend/pkg/enums"
	pkgredis "github.com/angelmondragon/tavola-backend/pkg/redis"
)

const lockScope = "pricing"

// LockProvider builds the serializing lock for one (business, target) population.
type LockProvider interface {
	NewLock(businessID uuid.UUID, target enums.PriceChangeTarget) (pkgredis.Lock, error)
}

// RedisLocks hands out Redis locks keyed by business and target.
type RedisLocks struct {
	client *pkgredis.Client
	ttl    time.Duration
}

func NewRedisLocks(client *pkgredis.Client, ttl time.Duration) *RedisLocks {
	return &RedisLocks{client: client, ttl: ttl}
}

func (l *RedisLocks) NewLock(businessID uuid.UUID, target enums.PriceChangeTarget) (pkgredis.Lock, error) {
	key := l.client.LockKey(lockScope, businessID.String(), string(target))
	return pkgredis.NewRedisLock(l.client, key, l.ttl)
}
