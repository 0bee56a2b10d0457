package repositories

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sbilibin2017/task-tracker/internal/logger"
	"github.com/sbilibin2017/task-tracker/internal/models"
)

// AccountCacheRepository maps API keys to account ids in Redis.
// Keys are stored as SHA-256 digests and no account fields other than the id
// are cached, so accounts themselves are always read from the directory.
type AccountCacheRepository struct {
	client *redis.Client
	exp    time.Duration // expiration duration for cached entries
}

// NewAccountCacheRepository creates a new cache repository with the given TTL.
func NewAccountCacheRepository(client *redis.Client, expiration time.Duration) *AccountCacheRepository {
	return &AccountCacheRepository{
		client: client,
		exp:    expiration,
	}
}

// API keys are stored hashed so a cache dump does not leak credentials.
func accountAPIKeyKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return "account:api_key:" + hex.EncodeToString(sum[:])
}

// GetIDByAPIKey returns the cached id of the account owning apiKey.
// found is false on a cache miss.
func (r *AccountCacheRepository) GetIDByAPIKey(ctx context.Context, apiKey string) (id int64, found bool, err error) {
	key := accountAPIKeyKey(apiKey)

	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		logger.Log.Debugw("cache get", "key", key, "error", err)
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}

	id, err = strconv.ParseInt(val, 10, 64)
	if err != nil {
		logger.Log.Warnw("cache decode", "key", key, "error", err)
		return 0, false, err
	}

	logger.Log.Debugw("cache get", "key", key, "result", id)
	return id, true, nil
}

// SetIDByAPIKey caches the id of the account owning apiKey.
func (r *AccountCacheRepository) SetIDByAPIKey(ctx context.Context, apiKey string, id int64) error {
	key := accountAPIKeyKey(apiKey)
	err := r.client.Set(ctx, key, strconv.FormatInt(id, 10), r.exp).Err()
	logger.Log.Debugw("cache set", "key", key, "result", id, "error", err)
	return err
}

// DeleteByAPIKey evicts the entry for apiKey.
func (r *AccountCacheRepository) DeleteByAPIKey(ctx context.Context, apiKey string) error {
	key := accountAPIKeyKey(apiKey)
	err := r.client.Del(ctx, key).Err()
	logger.Log.Debugw("cache delete", "key", key, "error", err)
	return err
}

// accountLookup is the read side of the account directory.
type accountLookup interface {
	GetByID(ctx context.Context, id int64) (*models.AccountDB, error)
	GetByUsername(ctx context.Context, username string) (*models.AccountDB, error)
	GetByEmail(ctx context.Context, email string) (*models.AccountDB, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*models.AccountDB, error)
}

// CachedAccountReadRepository resolves API keys through the Redis id cache.
// Every account it returns is read from the underlying repository: GetByID
// is never cached, and a cached id is only trusted when the account it names
// still exists and still holds the presented key. Cache failures are logged
// and never fail a lookup.
type CachedAccountReadRepository struct {
	accountLookup
	cache *AccountCacheRepository
}

// NewCachedAccountReadRepository wraps reader with cache.
func NewCachedAccountReadRepository(reader accountLookup, cache *AccountCacheRepository) *CachedAccountReadRepository {
	return &CachedAccountReadRepository{accountLookup: reader, cache: cache}
}

func (r *CachedAccountReadRepository) GetByAPIKey(ctx context.Context, apiKey string) (*models.AccountDB, error) {
	id, found, err := r.cache.GetIDByAPIKey(ctx, apiKey)
	if err != nil {
		logger.Log.Warnw("account cache unavailable", "api_key", logger.Mask(apiKey), "error", err)
	}

	if found {
		account, err := r.accountLookup.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if account != nil && account.APIKey == apiKey {
			return account, nil
		}
		// stale: account deleted or re-keyed
		if err := r.cache.DeleteByAPIKey(ctx, apiKey); err != nil {
			logger.Log.Warnw("failed to evict account cache entry", "api_key", logger.Mask(apiKey), "error", err)
		}
	}

	account, err := r.accountLookup.GetByAPIKey(ctx, apiKey)
	if err != nil || account == nil {
		return account, err
	}

	if err := r.cache.SetIDByAPIKey(ctx, apiKey, account.UserID); err != nil {
		logger.Log.Warnw("failed to cache account", "api_key", logger.Mask(apiKey), "error", err)
	}
	return account, nil
}
