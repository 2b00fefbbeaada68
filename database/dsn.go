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
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
)

// driver binds a ConnectionConfig.Type to a database/sql driver, its DSN
// format and the matching Bun dialect.
type driver struct {
	name    string
	dsn     func(*ConnectionConfig) string
	dialect func() schema.Dialect
}

var (
	postgresDriver = driver{
		name:    "postgres",
		dsn:     PostgresDSN,
		dialect: func() schema.Dialect { return pgdialect.New() },
	}
	mysqlDriver = driver{
		name:    "mysql",
		dsn:     MySQLDSN,
		dialect: func() schema.Dialect { return mysqldialect.New() },
	}
	sqliteDriver = driver{
		name:    sqliteshim.ShimName,
		dsn:     func(cfg *ConnectionConfig) string { return SQLiteDSN(cfg.DBName) },
		dialect: func() schema.Dialect { return sqlitedialect.New() },
	}
)

var drivers = map[string]driver{
	"postgres":   postgresDriver,
	"postgresql": postgresDriver,
	"mysql":      mysqlDriver,
	"sqlite":     sqliteDriver,
	"sqlite3":    sqliteDriver,
}

// openDB opens the pool described by cfg without connecting.
func openDB(cfg *ConnectionConfig) (*sql.DB, *bun.DB, error) {
	d, ok := drivers[strings.ToLower(cfg.Type)]
	if !ok {
		return nil, nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	sqlDB, err := sql.Open(d.name, d.dsn(cfg))
	if err != nil {
		return nil, nil, err
	}
	return sqlDB, bun.NewDB(sqlDB, d.dialect()), nil
}

// PostgresDSN builds a lib/pq connection URL from cfg.
func PostgresDSN(cfg *ConnectionConfig) string {
	query := url.Values{}
	query.Set("sslmode", cfg.PostgresSSLMode())
	query.Set("connect_timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	if cfg.SSLCertPath != "" {
		query.Set("sslrootcert", cfg.SSLCertPath)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.DBName,
		RawQuery: query.Encode(),
	}
	return u.String()
}

// MySQLDSN builds a go-sql-driver DSN from cfg. Times are parsed into the
// local zone and the charset defaults to utf8mb4.
func MySQLDSN(cfg *ConnectionConfig) string {
	c := mysql.NewConfig()
	c.User = cfg.Username
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	c.DBName = cfg.DBName
	c.ParseTime = true
	c.Loc = time.Local
	c.Timeout = cfg.ConnectTimeout
	c.ReadTimeout = cfg.ReadTimeout
	c.WriteTimeout = cfg.WriteTimeout

	charset := cfg.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	c.Params = map[string]string{"charset": charset}

	if cfg.SSL {
		c.TLSConfig = "skip-verify"
		if cfg.SSLRejectUnauthorized {
			c.TLSConfig = "true"
		}
	}
	return c.FormatDSN()
}

// SQLiteDSN maps a database name to a SQLite DSN. In-memory and file: names
// are used as given; anything else becomes "<name>.db".
func SQLiteDSN(name string) string {
	switch {
	case name == ":memory:", strings.HasPrefix(name, "file:"), strings.HasSuffix(name, ".db"):
		return name
	case name == "":
		return "file::memory:?cache=shared"
	default:
		return name + ".db"
	}
}
