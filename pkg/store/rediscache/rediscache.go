package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/kgtext/backend/pkg/common"
	"github.com/kgtext/backend/pkg/logger"
	"github.com/kgtext/backend/pkg/store"
)

const (
	CatalogKey = "kg:catalog"
	// GenerationKey is incremented on every invalidation. A catalog load
	// only writes back when the generation it started with is still
	// current, so a load racing a save cannot cache the older catalog.
	GenerationKey = "kg:catalog:gen"
	DefaultTTL    = 5 * time.Minute
)

var errStaleCatalog = errors.New("catalog changed while loading")

// NewClient parses a redis:// URL and pings the server.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// CachedGraphStore caches the graph catalog in Redis in front of another
// store. Graph contents are never cached, and the cache is dropped after
// every save.
type CachedGraphStore struct {
	store.GraphStore

	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

func New(next store.GraphStore, client *redis.Client, ttl time.Duration) *CachedGraphStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedGraphStore{GraphStore: next, client: client, ttl: ttl}
}

func (c *CachedGraphStore) SaveGraph(
	ctx context.Context,
	graphID string,
	name string,
	entities []common.Entity,
	relations []common.Relationship,
) error {
	err := c.GraphStore.SaveGraph(ctx, graphID, name, entities, relations)
	// A failed save may still have written the catalog record.
	c.invalidate(context.WithoutCancel(ctx))
	return err
}

func (c *CachedGraphStore) ListGraphs(ctx context.Context) ([]common.GraphMeta, error) {
	data, err := c.client.Get(ctx, CatalogKey).Bytes()
	switch {
	case err == nil:
		var metas []common.GraphMeta
		uerr := json.Unmarshal(data, &metas)
		if uerr == nil {
			return metas, nil
		}
		logger.Warn("[Cache] Dropping unreadable catalog entry", "err", uerr)
	case !errors.Is(err, redis.Nil):
		logger.Warn("[Cache] Catalog read failed, using store", "err", err)
		return c.GraphStore.ListGraphs(ctx)
	}

	result, err, _ := c.group.Do(CatalogKey, func() (any, error) {
		gen, genErr := c.generation(ctx)
		metas, err := c.GraphStore.ListGraphs(ctx)
		if err != nil {
			return nil, err
		}
		if genErr != nil {
			logger.Warn("[Cache] Catalog generation read failed, not caching", "err", genErr)
			return metas, nil
		}
		c.storeCatalog(ctx, gen, metas)
		return metas, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]common.GraphMeta), nil
}

func (c *CachedGraphStore) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, GenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// storeCatalog caches metas unless the catalog was invalidated after gen
// was read.
func (c *CachedGraphStore) storeCatalog(ctx context.Context, gen int64, metas []common.GraphMeta) {
	data, err := json.Marshal(metas)
	if err != nil {
		return
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, GenerationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleCatalog
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, CatalogKey, data, c.ttl)
			return nil
		})
		return err
	}, GenerationKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleCatalog), errors.Is(err, redis.TxFailedErr):
		logger.Debug("[Cache] Catalog changed during load, not caching")
	default:
		logger.Warn("[Cache] Catalog write failed", "err", err)
	}
}

func (c *CachedGraphStore) Close(ctx context.Context) error {
	return errors.Join(c.GraphStore.Close(ctx), c.client.Close())
}

func (c *CachedGraphStore) invalidate(ctx context.Context) {
	// Loads started before this point must not join or overwrite later ones.
	c.group.Forget(CatalogKey)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, GenerationKey)
		pipe.Del(ctx, CatalogKey)
		return nil
	})
	if err != nil {
		logger.Warn("[Cache] Catalog invalidation failed", "err", err)
	}
}
