package roster

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"
)

// RedisRoster keeps the online-membership set per room in a redis SET,
// keyed auction:{roomID}:online. Sets cannot hold duplicates, which is what
// makes duplicate joins harmless.
type RedisRoster struct {
	client *redis.Client
}

func NewRedisRoster(client *redis.Client) *RedisRoster {
	return &RedisRoster{client: client}
}

func key(roomID string) string {
	return fmt.Sprintf("auction:%s:online", roomID)
}

func (r *RedisRoster) Add(ctx context.Context, roomID, username string) error {
	return r.client.SAdd(ctx, key(roomID), username).Err()
}

func (r *RedisRoster) Remove(ctx context.Context, roomID, username string) error {
	return r.client.SRem(ctx, key(roomID), username).Err()
}

func (r *RedisRoster) Members(ctx context.Context, roomID string) ([]string, error) {
	members, err := r.client.SMembers(ctx, key(roomID)).Result()
	if err != nil {
		return nil, err
	}
	// SMEMBERS order is unspecified; sort so broadcasts are stable.
	sort.Strings(members)
	return members, nil
}

func (r *RedisRoster) Clear(ctx context.Context, roomID string) error {
	return r.client.Del(ctx, key(roomID)).Err()
}
