/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"
)

// AbstractDatabaseManager defines the operations for managing a database
// connection, running migrations, initializing data, and reporting health.
type AbstractDatabaseManager interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Reconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	GetDB() *bun.DB
	GetSQLDB() *sql.DB
	RunMigrations(ctx context.Context) error
	InitData(ctx context.Context) error
	GetStats() *DBStats
	SetLogger(logger Logger)
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy" yaml:"healthy"`
	Connected     bool          `json:"connected" yaml:"connected"`
	ResponseTime  time.Duration `json:"response_time" yaml:"response_time"`
	ActiveConns   int           `json:"active_conns" yaml:"active_conns"`
	IdleConns     int           `json:"idle_conns" yaml:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns" yaml:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time" yaml:"last_check_time"`
}

// DBStats mirrors database/sql stats returned by the manager.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns" yaml:"max_open_conns"`
	OpenConns         int           `json:"open_conns" yaml:"open_conns"`
	InUse             int           `json:"in_use" yaml:"in_use"`
	Idle              int           `json:"idle" yaml:"idle"`
	WaitCount         int64         `json:"wait_count" yaml:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration" yaml:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed" yaml:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed" yaml:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed" yaml:"max_lifetime_closed"`
}

// Query logging modes accepted by ConnectionConfig.Logging.
const (
	LoggingOff   = "false"
	LoggingOn    = "true"
	LoggingAll   = "all"
	LoggingError = "error"
	LoggingQuery = "query"
)

// ConnectionConfig describes how to connect to a database and tune its pool.
type ConnectionConfig struct {
	Type                  string        `json:"type" yaml:"type"` // postgres, mysql, sqlite
	Host                  string        `json:"host" yaml:"host"`
	Port                  int           `json:"port" yaml:"port"`
	Username              string        `json:"username" yaml:"username"`
	Password              string        `json:"password" yaml:"password"`
	DBName                string        `json:"dbname" yaml:"dbname"`
	SSLMode               string        `json:"sslmode" yaml:"sslmode"`
	SSL                   bool          `json:"ssl" yaml:"ssl"`
	SSLRejectUnauthorized bool          `json:"ssl_reject_unauthorized" yaml:"ssl_reject_unauthorized"`
	SSLCertPath           string        `json:"ssl_cert_path" yaml:"ssl_cert_path"`
	MaxIdleConns          int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	MaxOpenConns          int           `json:"max_open_conns" yaml:"max_open_conns"`
	ConnMaxLifetime       time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime       time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	ConnectTimeout        time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
	ConnectRetries        int           `json:"connect_retries" yaml:"connect_retries"`
	ConnectRetryDelay     time.Duration `json:"connect_retry_delay" yaml:"connect_retry_delay"`
	ReadTimeout           time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout          time.Duration `json:"write_timeout" yaml:"write_timeout"`
	EnableReconnect       bool          `json:"enable_reconnect" yaml:"enable_reconnect"`
	ReconnectInterval     time.Duration `json:"reconnect_interval" yaml:"reconnect_interval"`
	MaxReconnectTries     int           `json:"max_reconnect_tries" yaml:"max_reconnect_tries"`
	HealthCheckInterval   time.Duration `json:"health_check_interval" yaml:"health_check_interval"`
	EnableQueryLog        bool          `json:"enable_query_log" yaml:"enable_query_log"`
	Logging               string        `json:"logging" yaml:"logging"`
	SlowQueryTime         time.Duration `json:"slow_query_time" yaml:"slow_query_time"`
	Charset               string        `json:"charset" yaml:"charset"` // MySQL: utf8mb4, Postgres: UTF8
}

// PostgresSSLMode resolves the libpq sslmode. An explicit SSLMode wins;
// otherwise SSL off means disable, and SSL on means verify-full when
// unauthorized certificates are rejected, require when they are not.
func (c *ConnectionConfig) PostgresSSLMode() string {
	if c.SSLMode != "" {
		return c.SSLMode
	}
	if !c.SSL {
		return "disable"
	}
	if c.SSLRejectUnauthorized {
		return "verify-full"
	}
	return "require"
}

// DataMigrateConfig controls schema migration behavior on startup.
type DataMigrateConfig struct {
	EnableMigrateOnStartup bool   `json:"enable_migrate_on_startup" yaml:"enable_migrate_on_startup"`
	EnableForeignKey       bool   `json:"enable_foreign_key" yaml:"enable_foreign_key"`
	ForeignKeyFile         string `json:"foreign_key_file" yaml:"foreign_key_file"`
}

// DataInitConfig controls data seeding behavior and environment selection.
type DataInitConfig struct {
	AutoInitOnStartup   bool   `json:"auto_init_on_startup" yaml:"auto_init_on_startup"`
	AutoInitOnMigration bool   `json:"auto_init_on_migration" yaml:"auto_init_on_migration"`
	Filepath            string `json:"filepath" yaml:"filepath"`
	Environment         string `json:"environment" yaml:"environment"`
}

// Config aggregates connection, migration, and data initialization settings.
type Config struct {
	ConnectionConfig  ConnectionConfig  `json:"connection_config" yaml:"connection"`
	DataMigrateConfig DataMigrateConfig `json:"data_migrate_config" yaml:"migrate"`
	DataInitConfig    DataInitConfig    `json:"data_init_config" yaml:"init"`
}

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		MaxIdleConns:        10,
		MaxOpenConns:        100,
		ConnMaxLifetime:     time.Hour,
		ConnMaxIdleTime:     time.Minute * 30,
		ConnectTimeout:      time.Second * 10,
		ConnectRetries:      3,
		ConnectRetryDelay:   time.Second * 2,
		ReadTimeout:         time.Second * 30,
		WriteTimeout:        time.Second * 30,
		EnableReconnect:     true,
		ReconnectInterval:   time.Second * 5,
		MaxReconnectTries:   3,
		HealthCheckInterval: time.Minute * 5,
		EnableQueryLog:      false,
		Logging:             LoggingError,
		SlowQueryTime:       time.Second * 2,
	}
}

// DefaultConfig returns a full configuration with connection defaults, the
// foreign key file and seed directory under configs/, and the development
// environment.
func DefaultConfig() *Config {
	return &Config{
		ConnectionConfig: *DefaultConnectionConfig(),
		DataMigrateConfig: DataMigrateConfig{
			ForeignKeyFile: "configs/foreign_keys.yaml",
		},
		DataInitConfig: DataInitConfig{
			Filepath:    "configs/sql",
			Environment: "development",
		},
	}
}
