package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Manager handles session management with Redis
type Manager struct {
	client  *redis.Client
	ctx     context.Context
	timeout time.Duration
	ttl     time.Duration
}

// Data represents session information stored in Redis
type Data struct {
	UserID       uint      `json:"user_id"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	IPAddress    string    `json:"ip_address"`
}

// Global session manager. Nil when Redis is unavailable; callers must
// treat sessions as best-effort in that case.
var GlobalManager *Manager

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (sm *Manager) withTimeout() (context.Context, context.CancelFunc) {
	timeout := sm.timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return context.WithTimeout(sm.ctx, timeout)
}

func wrapRedisError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s redis operation timed out: %w", operation, err)
	}
	return fmt.Errorf("%s redis operation failed: %w", operation, err)
}

// InitManager initializes the Redis session manager
func InitManager() error {
	timeoutMS := getEnvInt("SESSION_REDIS_TIMEOUT_MS", 1500)
	if timeoutMS <= 0 {
		timeoutMS = 1500
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s",
			getEnvWithDefault("REDIS_HOST", "localhost"),
			getEnvWithDefault("REDIS_PORT", "6379")),
		Password: getEnvWithDefault("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	})

	// Test connection
	ctx := context.Background()
	timeout := time.Duration(timeoutMS) * time.Millisecond
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := rdb.Ping(pingCtx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	GlobalManager = &Manager{
		client:  rdb,
		ctx:     ctx,
		timeout: timeout,
		ttl:     time.Duration(getEnvInt("SESSION_TTL_HOURS", 24)) * time.Hour,
	}

	log.Println("✅ Redis session manager initialized")
	return nil
}

// CreateSession stores a new session in Redis with the configured TTL
func (sm *Manager) CreateSession(sessionID string, userID uint, role, ipAddress string) error {
	sessionData := Data{
		UserID:       userID,
		Role:         role,
		CreatedAt:    time.Now(),
		LastAccessed: time.Now(),
		IPAddress:    ipAddress,
	}

	data, err := json.Marshal(sessionData)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %v", err)
	}

	ctx, cancel := sm.withTimeout()
	err = sm.client.Set(ctx, "session:"+sessionID, data, sm.ttl).Err()
	cancel()
	if err != nil {
		return wrapRedisError("store session", err)
	}

	userSessionKey := fmt.Sprintf("user_sessions:%d", userID)
	ctx, cancel = sm.withTimeout()
	err = sm.client.SAdd(ctx, userSessionKey, sessionID).Err()
	cancel()
	if err != nil {
		log.Printf("Warning: failed to store user session mapping: %v", wrapRedisError("store user session mapping", err))
	}

	ctx, cancel = sm.withTimeout()
	err = sm.client.Expire(ctx, userSessionKey, sm.ttl).Err()
	cancel()
	if err != nil {
		log.Printf("Warning: failed to set TTL for user session mapping: %v", wrapRedisError("expire user session mapping", err))
	}

	return nil
}

// GetSession retrieves session data from Redis and refreshes its TTL
func (sm *Manager) GetSession(sessionID string) (*Data, error) {
	ctx, cancel := sm.withTimeout()
	data, err := sm.client.Get(ctx, "session:"+sessionID).Result()
	cancel()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("session not found")
		}
		return nil, wrapRedisError("get session", err)
	}

	var sessionData Data
	if err := json.Unmarshal([]byte(data), &sessionData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %v", err)
	}

	sessionData.LastAccessed = time.Now()
	refreshed, err := json.Marshal(sessionData)
	if err == nil {
		ctx, cancel = sm.withTimeout()
		if err := sm.client.Set(ctx, "session:"+sessionID, refreshed, sm.ttl).Err(); err != nil {
			log.Printf("Warning: failed to refresh session %s: %v", sessionID, err)
		}
		cancel()
	}

	return &sessionData, nil
}

// DeleteSession removes a session from Redis
func (sm *Manager) DeleteSession(sessionID string) error {
	ctx, cancel := sm.withTimeout()
	err := sm.client.Del(ctx, "session:"+sessionID).Err()
	cancel()
	if err != nil {
		return wrapRedisError("delete session", err)
	}
	return nil
}

// DeleteAllUserSessions deletes every session belonging to a user
func (sm *Manager) DeleteAllUserSessions(userID uint) error {
	userSessionKey := fmt.Sprintf("user_sessions:%d", userID)
	ctx, cancel := sm.withTimeout()
	sessionIDs, err := sm.client.SMembers(ctx, userSessionKey).Result()
	cancel()
	if err != nil {
		return wrapRedisError("get user sessions", err)
	}

	for _, sessionID := range sessionIDs {
		if err := sm.DeleteSession(sessionID); err != nil {
			log.Printf("Warning: failed to delete session %s: %v", sessionID, err)
		}
	}

	ctx, cancel = sm.withTimeout()
	err = sm.client.Del(ctx, userSessionKey).Err()
	cancel()
	if err != nil {
		return wrapRedisError("delete user session mapping", err)
	}

	return nil
}
