// Package directory resolves user ids into display names through the
// profile service, caching answers in Redis.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"defensebook/pkg/client"
	"defensebook/pkg/logger"
	"defensebook/pkg/model"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

var ErrUserNotFound = errors.New("user not found")

const (
	cacheKeyPrefix = "directory:user:"
	maxParallel    = 8
)

type Directory interface {
	DisplayName(ctx context.Context, userID string) (*model.DisplayName, error)
	// Resolve looks up every id; ids that fail are left out of the result.
	Resolve(ctx context.Context, userIDs []string) map[string]*model.DisplayName
}

// Cache is the byte store behind the directory. A miss is reported as
// (nil, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type redisCache struct {
	rdb *redis.Client
}

// NewRedisCache returns nil when rdb is nil so callers run uncached.
func NewRedisCache(rdb *redis.Client) Cache {
	if rdb == nil {
		return nil
	}
	return &redisCache{rdb: rdb}
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	bs, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return bs, err
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.SetEx(ctx, key, value, ttl).Err()
}

type httpDirectory struct {
	http  *client.HttpClient
	cache Cache
	ttl   time.Duration
	log   *logger.Logger
}

func New(httpClient *client.HttpClient, cache Cache, ttl time.Duration, log *logger.Logger) Directory {
	return &httpDirectory{
		http:  httpClient,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

func (d *httpDirectory) DisplayName(ctx context.Context, userID string) (*model.DisplayName, error) {
	if userID == "" {
		return nil, ErrUserNotFound
	}

	if name, ok := d.fromCache(ctx, userID); ok {
		return name, nil
	}

	resp, err := d.http.GET(ctx, "/api/v1/users/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %s: %w", userID, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("failed to fetch user %s: %s", userID, client.GetErrorMessage(resp))
	}

	name, err := decodeUser(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", userID, err)
	}
	if name.Empty() {
		return nil, fmt.Errorf("%w: %s has no name", ErrUserNotFound, userID)
	}

	d.toCache(ctx, userID, name)
	return name, nil
}

func (d *httpDirectory) Resolve(ctx context.Context, userIDs []string) map[string]*model.DisplayName {
	unique := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id != "" {
			unique[id] = struct{}{}
		}
	}

	names := make(map[string]*model.DisplayName, len(unique))
	results := make(chan struct {
		id   string
		name *model.DisplayName
	}, len(unique))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for id := range unique {
		g.Go(func() error {
			name, err := d.DisplayName(gctx, id)
			if err != nil {
				d.log.Warn("Failed to resolve display name", "user_id", id, "error", err)
				return nil
			}
			results <- struct {
				id   string
				name *model.DisplayName
			}{id, name}
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	for r := range results {
		names[r.id] = r.name
	}
	return names
}

// decodeUser accepts both a bare profile and one wrapped in a data envelope.
func decodeUser(resp *client.Response) (*model.DisplayName, error) {
	var envelope struct {
		Data *model.DisplayName `json:"data"`
		model.DisplayName
	}
	if err := resp.DecodeJSON(&envelope); err != nil {
		return nil, err
	}
	if envelope.Data != nil {
		return envelope.Data, nil
	}
	name := envelope.DisplayName
	return &name, nil
}

func (d *httpDirectory) fromCache(ctx context.Context, userID string) (*model.DisplayName, bool) {
	if d.cache == nil {
		return nil, false
	}
	bs, err := d.cache.Get(ctx, cacheKeyPrefix+userID)
	if err != nil {
		d.log.Debug("Directory cache read failed", "user_id", userID, "error", err)
		return nil, false
	}
	if bs == nil {
		return nil, false
	}
	var name model.DisplayName
	if err := json.Unmarshal(bs, &name); err != nil {
		return nil, false
	}
	return &name, true
}

func (d *httpDirectory) toCache(ctx context.Context, userID string, name *model.DisplayName) {
	if d.cache == nil || d.ttl <= 0 {
		return
	}
	bs, err := json.Marshal(name)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, cacheKeyPrefix+userID, bs, d.ttl); err != nil {
		d.log.Debug("Directory cache write failed", "user_id", userID, "error", err)
	}
}
