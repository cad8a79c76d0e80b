package redis_client

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var Client *redis.Client

const defaultConnectionPassword = ""
const defaultDatabase = 0

type Config struct {
	Address  string
	Password string
	Database string
}

// Connect sets up the shared client. Redis is optional, with no address configured it is skipped
// and Client stays nil.
func Connect(config Config) error {
	if config.Address == "" {
		log.Info().Msg("Skipping Redis setup")
		return nil
	}

	password := defaultConnectionPassword
	database := defaultDatabase

	if config.Password != "" {
		password = config.Password
	}

	if config.Database != "" {
		if n, err := strconv.Atoi(config.Database); err == nil {
			database = n
		} else {
			return err
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: password,
		DB:       database,
	})

	statusCmd := client.Ping(context.Background())
	if err := statusCmd.Err(); err != nil {
		return err
	}

	Client = client
	log.Info().Str("address", config.Address).Msg("Redis client setup")

	return nil
}

// Ping reports the health of the shared client, nil when Redis is not configured
func Ping(ctx context.Context) error {
	if Client == nil {
		return nil
	}

	return Client.Ping(ctx).Err()
}
