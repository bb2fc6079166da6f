package storage

import (
	"log"
	"os"

	"github.com/go-redis/redis/v8"
)

// NewRedis builds the client used for refresh-token allowlisting and typing
// indicators. Falls back to localhost for development.
func NewRedis() *redis.Client {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "localhost:6379"
		log.Println("REDIS_URL not set, using localhost:6379 (development mode)")
	}

	return redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: "",
		DB:       0,
	})
}
