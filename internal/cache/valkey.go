package cache

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const slotAvailabilityTTL = 15 * time.Second

type ValkeyClient struct {
	client       *redis.Client
	usersHashKey string
}

func NewValkeyClient() (*ValkeyClient, error) {
	addr := os.Getenv("VALKEY_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	password := os.Getenv("VALKEY_PASSWORD")
	usersHashKey := os.Getenv("VALKEY_USERS_HASH_KEY")
	if usersHashKey == "" {
		usersHashKey = "users:auth"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return &ValkeyClient{
		client:       rdb,
		usersHashKey: usersHashKey,
	}, nil
}

func (v *ValkeyClient) GetUserIDByAuth(ctx context.Context, email, passwordHash string) (int64, error) {
	authString := fmt.Sprintf("%s:%s", email, passwordHash)
	cacheKey := base64.StdEncoding.EncodeToString([]byte(authString))

	userIDStr, err := v.client.HGet(ctx, v.usersHashKey, cacheKey).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, fmt.Errorf("user not found in cache")
		}
		return 0, fmt.Errorf("cache lookup error: %w", err)
	}

	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user ID in cache: %w", err)
	}

	return userID, nil
}

// SetUserAuth caches an email+hash pair after a successful DB lookup
func (v *ValkeyClient) SetUserAuth(ctx context.Context, email, passwordHash string, userID int64) error {
	authString := fmt.Sprintf("%s:%s", email, passwordHash)
	cacheKey := base64.StdEncoding.EncodeToString([]byte(authString))
	return v.client.HSet(ctx, v.usersHashKey, cacheKey, strconv.FormatInt(userID, 10)).Err()
}

func slotAvailabilityKey(activityID int64) string {
	return fmt.Sprintf("slots:availability:%d", activityID)
}

// GetSlotAvailabilityRaw returns the cached availability list as raw JSON to
// avoid an unmarshal/marshal round trip on the hot path
func (v *ValkeyClient) GetSlotAvailabilityRaw(ctx context.Context, activityID int64) ([]byte, error) {
	data, err := v.client.Get(ctx, slotAvailabilityKey(activityID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("availability not cached")
		}
		return nil, fmt.Errorf("cache lookup error: %w", err)
	}
	return data, nil
}

// SetSlotAvailability caches the availability list with a short TTL
func (v *ValkeyClient) SetSlotAvailability(ctx context.Context, activityID int64, response interface{}) error {
	payload, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal availability: %w", err)
	}
	return v.client.Set(ctx, slotAvailabilityKey(activityID), payload, slotAvailabilityTTL).Err()
}

// InvalidateSlotAvailability drops the cached list after a booking mutation
func (v *ValkeyClient) InvalidateSlotAvailability(ctx context.Context, activityID int64) error {
	return v.client.Del(ctx, slotAvailabilityKey(activityID)).Err()
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}
