package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/solicitudes-service/internal/domain"
)

// TravelCache is a read-through cache for travel ticket detail keyed by
// código. Mutating operations invalidate; a stale hit at worst re-reads.
type TravelCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTravelCache builds a cache. A nil client disables caching.
func NewTravelCache(client *redis.Client, ttl time.Duration) *TravelCache {
	return &TravelCache{client: client, ttl: ttl}
}

func key(codigo string) string {
	return "solicitud:viaje:" + codigo
}

// Get returns the cached ticket or nil on miss/error.
func (c *TravelCache) Get(ctx context.Context, codigo string) *domain.SolicitudViaje {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := c.client.Get(ctx, key(codigo)).Bytes()
	if err != nil {
		return nil
	}
	var s domain.SolicitudViaje
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

// Set stores the ticket; failures are ignored, Postgres stays authoritative.
func (c *TravelCache) Set(ctx context.Context, s *domain.SolicitudViaje) {
	if c == nil || c.client == nil || s == nil {
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key(s.Codigo), raw, c.ttl).Err()
}

// Invalidate drops the cached entry for a ticket.
func (c *TravelCache) Invalidate(ctx context.Context, codigo string) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, key(codigo)).Err()
}
