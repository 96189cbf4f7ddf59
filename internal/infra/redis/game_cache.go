package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizgen/internal/domain"
)

// GameLoader fetches games from the backing store.
type GameLoader interface {
	LoadGame(ctx context.Context, gameID string) (domain.Game, error)
}

// GameCache caches games in Redis as JSON and falls back to a loader on cache miss.
// Games are stored as: SET game:{gameID} {json} EX ttl
type GameCache struct {
	client *redis.Client
	loader GameLoader
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewGameCache(client *redis.Client, loader GameLoader, ttl time.Duration) *GameCache {
	return &GameCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *GameCache) GetGame(ctx context.Context, gameID string) (domain.Game, error) {
	if game, ok := c.cached(ctx, gameID); ok {
		return game, nil
	}

	result, err, _ := c.sf.Do(gameID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if game, ok := c.cached(ctx, gameID); ok {
			return game, nil
		}

		game, err := c.loader.LoadGame(ctx, gameID)
		if err != nil {
			return domain.Game{}, err
		}

		data, err := json.Marshal(game)
		if err != nil {
			return game, nil
		}
		if err := c.client.Set(ctx, c.key(gameID), data, c.ttlWithJitter()).Err(); err != nil {
			log.Printf("[WARN] cache game %s: %v", gameID, err)
		}
		return game, nil
	})
	if err != nil {
		return domain.Game{}, err
	}
	return result.(domain.Game), nil
}

func (c *GameCache) cached(ctx context.Context, gameID string) (domain.Game, bool) {
	data, err := c.client.Get(ctx, c.key(gameID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[WARN] read cached game %s: %v", gameID, err)
		}
		return domain.Game{}, false
	}
	var game domain.Game
	if err := json.Unmarshal(data, &game); err != nil {
		return domain.Game{}, false
	}
	return game, true
}

func (c *GameCache) key(gameID string) string {
	return "game:" + gameID
}

func (c *GameCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
