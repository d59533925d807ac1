package lib

import (
	"log"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient parses a redis:// URL and returns a client, or nil when the
// URL is empty or malformed. A nil client disables caching; nothing in the
// service hard-depends on redis being reachable.
func NewRedisClient(url string) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	return redis.NewClient(opt)
}
