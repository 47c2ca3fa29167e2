package alias

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"seedhttpd/api/internal/identity"
)

const defaultKey = "aliases"

// RedisDirectory keeps aliases in a single Redis hash keyed by node id.
type RedisDirectory struct {
	client *redis.Client
	key    string
}

func NewRedisDirectory(redisURL string) (*RedisDirectory, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisDirectoryWithClient(client), nil
}

func NewRedisDirectoryWithClient(client *redis.Client) *RedisDirectory {
	return &RedisDirectory{client: client, key: defaultKey}
}

// All loads the whole directory. Entries with an unparsable node id are
// skipped.
func (d *RedisDirectory) All(ctx context.Context) (Map, error) {
	raw, err := d.client.HGetAll(ctx, d.key).Result()
	if err != nil {
		return nil, fmt.Errorf("read aliases: %w", err)
	}
	out := make(Map, len(raw))
	for encoded, name := range raw {
		nid, err := identity.ParsePublicKey(encoded)
		if err != nil || name == "" {
			continue
		}
		out[nid] = name
	}
	return out, nil
}

func (d *RedisDirectory) Set(ctx context.Context, nid identity.PublicKey, name string) error {
	if err := d.client.HSet(ctx, d.key, nid.String(), name).Err(); err != nil {
		return fmt.Errorf("set alias: %w", err)
	}
	return nil
}

func (d *RedisDirectory) Close() error {
	return d.client.Close()
}

func (d *RedisDirectory) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}
