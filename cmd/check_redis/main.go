package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"tradepulse/backend/internal/config"
	"tradepulse/backend/internal/model"
	"tradepulse/backend/pkg/redis"

	"github.com/joho/godotenv"
)

// Inspects the stored sync session, for debugging a backend that refuses
// to resume after a restart.
func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	ctx := context.Background()

	activeKey := redis.ActiveSessionKey()
	sessionID, err := redisClient.Get(ctx, activeKey)
	if err != nil {
		fmt.Printf("No active session marker (%s): %v\n", activeKey, err)
		return
	}
	fmt.Printf("Active session id: %s\n", sessionID)

	sessionKey := redis.SessionKey(sessionID)
	var session model.Session
	if err := redisClient.GetJSON(ctx, sessionKey, &session); err != nil {
		fmt.Printf("Session record (%s) missing or unreadable: %v\n", sessionKey, err)
		return
	}

	fmt.Printf("User:       %s\n", session.UserID)
	fmt.Printf("Account:    %s\n", session.AccountID)
	fmt.Printf("Created at: %s\n", session.CreatedAt)
	fmt.Printf("Has engine token: %v\n", session.EngineToken != "")

	if ttl, err := redisClient.TTL(ctx, sessionKey); err == nil {
		fmt.Printf("Record TTL: %s\n", ttl)
	}
}
