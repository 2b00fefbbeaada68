// Package database manages the Bun connection of the docauth schema: YAML and
// environment configuration, connection retries, health checks, migrations
// with foreign keys, SQL seed files and driver-independent error
// classification.
package database
