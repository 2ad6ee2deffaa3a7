package caching

import (
	"bytes"
	"compress/flate"
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type Engine interface {
	Store(ctx context.Context, key string, value any, ttl time.Duration) error
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// Cacher stores JSON-encoded, deflate-compressed values under a namespace
// prefix. Tour catalog payloads compress well and the prefix keeps catalog
// keys apart from anything else sharing the Redis database.
type Cacher struct {
	engine Engine
	prefix string
}

func NewRedisCache(redisClient *redis.Client, prefix string) *Cacher {
	return &Cacher{
		engine: &redisCache{
			redis: redisClient,
		},
		prefix: prefix,
	}
}

// NewWithEngine is used by tests to substitute the Redis engine.
func NewWithEngine(engine Engine, prefix string) *Cacher {
	return &Cacher{engine: engine, prefix: prefix}
}

func (c *Cacher) key(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

func deflate(uncompressed []byte) ([]byte, error) {
	var buffer bytes.Buffer
	writer, _ := flate.NewWriter(&buffer, flate.BestSpeed)

	_, err := writer.Write(uncompressed)
	if err != nil {
		return nil, err
	}

	err = writer.Close()
	if err != nil {
		return nil, err
	}

	return buffer.Bytes(), nil
}

func inflate(compressed []byte) ([]byte, error) {
	buffer := bytes.NewReader(compressed)
	reader := flate.NewReader(buffer)
	defer reader.Close()

	var out bytes.Buffer
	_, err := out.ReadFrom(reader)
	if err != nil {
		return []byte{}, err
	}

	return out.Bytes(), nil
}

func (c *Cacher) Store(ctx context.Context, key string, value any, ttl time.Duration) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}

	compressed, err := deflate(encoded)
	if err != nil {
		return err
	}

	return c.engine.Store(ctx, c.key(key), compressed, ttl)
}

// Fetch reports whether the key was present and decoded into destination.
// Any engine or decode failure is treated as a miss.
func (c *Cacher) Fetch(ctx context.Context, key string, destination any) bool {
	value, err := c.engine.Fetch(ctx, c.key(key))
	if err != nil {
		return false
	}

	if value == nil {
		return false
	}

	uncompressed, err := inflate(value)
	if err != nil {
		return false
	}

	err = json.Unmarshal(uncompressed, destination)
	return err == nil
}
