package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizgen/internal/domain"
)

// GameLoader fetches games from the backing store.
type GameLoader interface {
	LoadGame(ctx context.Context, gameID string) (domain.Game, error)
}

// GameCache caches games with TTL to avoid repeated store hits. Games never change
// after creation, so a hit is always safe to serve.
type GameCache struct {
	loader GameLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedGame
}

type cachedGame struct {
	game      domain.Game
	expiresAt time.Time
}

func NewGameCache(loader GameLoader, ttl time.Duration) *GameCache {
	return &GameCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedGame),
	}
}

func (c *GameCache) GetGame(ctx context.Context, gameID string) (domain.Game, error) {
	if game, ok := c.lookup(gameID); ok {
		return game, nil
	}

	result, err, _ := c.sf.Do(gameID, func() (interface{}, error) {
		if game, ok := c.lookup(gameID); ok {
			return game, nil
		}

		game, err := c.loader.LoadGame(ctx, gameID)
		if err != nil {
			return domain.Game{}, err
		}

		now := c.clock()
		c.mu.Lock()
		c.pruneLocked(now)
		c.cache[gameID] = cachedGame{
			game:      game,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return game, nil
	})
	if err != nil {
		return domain.Game{}, err
	}
	return result.(domain.Game), nil
}

func (c *GameCache) lookup(gameID string) (domain.Game, bool) {
	now := c.clock()
	c.mu.RLock()
	entry, ok := c.cache[gameID]
	c.mu.RUnlock()
	if !ok {
		return domain.Game{}, false
	}
	if entry.expiresAt.After(now) {
		return entry.game, true
	}

	c.mu.Lock()
	if current, ok := c.cache[gameID]; ok && !current.expiresAt.After(now) {
		delete(c.cache, gameID)
	}
	c.mu.Unlock()
	return domain.Game{}, false
}

// pruneLocked drops every expired entry. Caller holds c.mu.
func (c *GameCache) pruneLocked(now time.Time) {
	for id, entry := range c.cache {
		if !entry.expiresAt.After(now) {
			delete(c.cache, id)
		}
	}
}

func (c *GameCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
