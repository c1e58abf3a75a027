// Package cache keeps terminal call payloads in Redis so repeated status
// checks of a finished call do not go back to the calling platform.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"oilcall-go/internal/logger"
	"oilcall-go/internal/types"
)

const keyPrefix = "oilcall:call:"

type CallCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	log    *logger.Logger
}

// New connects to addr and verifies the connection.
func New(ctx context.Context, addr string, ttl time.Duration, log *logger.Logger) (*CallCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.WithField("address", addr).WithField("ttl", ttl).Info("redis call cache initialized")
	return NewWithClient(client, ttl, log), nil
}

func NewWithClient(client redis.UniversalClient, ttl time.Duration, log *logger.Logger) *CallCache {
	return &CallCache{client: client, ttl: ttl, log: log.Component("cache")}
}

// Get returns the cached call, or ok=false on a miss.
func (c *CallCache) Get(ctx context.Context, callID string) (*types.CallResponse, bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+callID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	var call types.CallResponse
	if err := json.Unmarshal(data, &call); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}
	return &call, true, nil
}

// Put stores a call. Non-terminal calls, and ended calls still waiting on their
// post-call analysis, are ignored since their state still changes.
func (c *CallCache) Put(ctx context.Context, call *types.CallResponse) error {
	if call == nil || !types.IsTerminal(call.CallStatus) {
		return nil
	}
	if call.CallStatus == types.CallStatusEnded && call.CallAnalysis == nil {
		return nil
	}
	data, err := json.Marshal(call)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+call.CallID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	c.log.WithField("call_id", call.CallID).Debug("terminal call cached")
	return nil
}

func (c *CallCache) Close() error {
	return c.client.Close()
}
