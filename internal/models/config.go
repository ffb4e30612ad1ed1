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

package models

import "time"

// Config holds all application configuration
type Config struct {
	Database    DatabaseConfig
	Catalog     CatalogConfig
	Server      ServerConfig
	Sweeper     SweeperConfig
	Formance    FormanceConfig
	Events      EventsConfig
	ProgramFile string
}

// DatabaseConfig holds points subledger settings
type DatabaseConfig struct {
	Path             string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	PingTimeout      time.Duration
	BusyTimeout      time.Duration
	CreateDummyUsers bool
}

// CatalogConfig holds settings for the catalog store (messages, items, hubs, impact)
type CatalogConfig struct {
	Path string
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Addr               string
	AllowedOrigins     []string
	RateLimitPerSecond float64
	RateLimitBurst     int
	ShutdownTimeout    time.Duration
	ReleaseMode        bool
}

// SweeperConfig controls the scheduled auction sweep
type SweeperConfig struct {
	Enabled  bool
	Interval time.Duration
}

// FormanceConfig holds Formance Stack credentials for the ledger mirror
type FormanceConfig struct {
	Enabled      bool
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

// EventsConfig holds RabbitMQ settings for domain event publishing
type EventsConfig struct {
	Enabled        bool
	Host           string
	Port           int
	User           string
	Password       string
	VHost          string
	Exchange       string
	PublishTimeout time.Duration
}
