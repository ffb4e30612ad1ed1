/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"eco-loop-rewards-go/internal/models"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	busyTimeout, err := getEnvDuration("DB_BUSY_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	sweepInterval, err := getEnvDuration("AUCTION_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}

	publishTimeout, err := getEnvDuration("RABBITMQ_PUBLISH_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	rateLimit, err := getEnvFloat("RATE_LIMIT_PER_SECOND", 20)
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:             getEnvString("DATABASE_PATH", "ecopoints.db"),
			MaxOpenConns:     getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  connMaxLifetime,
			ConnMaxIdleTime:  connMaxIdleTime,
			PingTimeout:      pingTimeout,
			BusyTimeout:      busyTimeout,
			CreateDummyUsers: getEnvBool("CREATE_DUMMY_USERS", false),
		},
		Catalog: models.CatalogConfig{
			Path: getEnvString("CATALOG_DATABASE_PATH", "loopify.db"),
		},
		Server: models.ServerConfig{
			Addr:               getEnvString("SERVER_ADDR", ":3000"),
			AllowedOrigins:     getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			RateLimitPerSecond: rateLimit,
			RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 40),
			ShutdownTimeout:    shutdownTimeout,
			ReleaseMode:        getEnvBool("GIN_RELEASE_MODE", true),
		},
		Sweeper: models.SweeperConfig{
			Enabled:  getEnvBool("AUCTION_SWEEPER_ENABLED", true),
			Interval: sweepInterval,
		},
		Formance: models.FormanceConfig{
			Enabled:      getEnvBool("FORMANCE_ENABLED", false),
			StackURL:     getEnvString("FORMANCE_STACK_URL", ""),
			ClientID:     getEnvString("FORMANCE_CLIENT_ID", ""),
			ClientSecret: getEnvString("FORMANCE_CLIENT_SECRET", ""),
			LedgerName:   getEnvString("FORMANCE_LEDGER", "eco-loop-rewards"),
		},
		Events: models.EventsConfig{
			Enabled:        getEnvBool("RABBITMQ_ENABLED", false),
			Host:           getEnvString("RABBITMQ_HOST", "localhost"),
			Port:           getEnvInt("RABBITMQ_PORT", 5672),
			User:           getEnvString("RABBITMQ_USER", "guest"),
			Password:       getEnvString("RABBITMQ_PASSWORD", "guest"),
			VHost:          getEnvString("RABBITMQ_VHOST", "/"),
			Exchange:       getEnvString("RABBITMQ_EXCHANGE", "eco-loop.events"),
			PublishTimeout: publishTimeout,
		},
		ProgramFile: getEnvString("PROGRAM_FILE", "program.yaml"),
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number for %s: %q (%w)", key, value, err)
		}
		return f, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping empty entries.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	if len(list) == 0 {
		return defaultValue
	}
	return list
}
