package config

import (
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb"
	_ "github.com/sijms/go-ora/v2"
	_ "github.com/snowflakedb/gosnowflake"
	_ "modernc.org/sqlite"
)

func init() {
	// go-ora registers as "oracle", which sqlx does not know about.
	sqlx.BindDriver("oracle", sqlx.NAMED)
}

// dialect describes how a store driver name maps onto a database/sql driver
// and which DDL statements create the schema for it.
type dialect struct {
	name       string
	sqlDriver  string
	migrations []string
}

var dialects = map[string]dialect{
	"sqlite": {
		name:      "sqlite",
		sqlDriver: "sqlite",
		migrations: []string{
			`CREATE TABLE IF NOT EXISTS messages (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL,
				message TEXT NOT NULL,
				timestamp_nanos INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp_nanos)`,
			`CREATE TABLE IF NOT EXISTS admin_bindings (
				principal TEXT PRIMARY KEY,
				bound_at INTEGER NOT NULL
			)`,
		},
	},
	"postgres": {
		name:      "postgres",
		sqlDriver: "pgx",
		migrations: []string{
			`CREATE TABLE IF NOT EXISTS messages (
				id VARCHAR(36) PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL,
				message TEXT NOT NULL,
				timestamp_nanos BIGINT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp_nanos)`,
			`CREATE TABLE IF NOT EXISTS admin_bindings (
				principal VARCHAR(255) PRIMARY KEY,
				bound_at BIGINT NOT NULL
			)`,
		},
	},
	"mysql": {
		name:      "mysql",
		sqlDriver: "mysql",
		migrations: []string{
			`CREATE TABLE IF NOT EXISTS messages (
				id VARCHAR(36) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				email VARCHAR(320) NOT NULL,
				message TEXT NOT NULL,
				timestamp_nanos BIGINT NOT NULL
			)`,
			`CREATE INDEX idx_messages_timestamp ON messages(timestamp_nanos)`,
			`CREATE TABLE IF NOT EXISTS admin_bindings (
				principal VARCHAR(255) PRIMARY KEY,
				bound_at BIGINT NOT NULL
			)`,
		},
	},
	"sqlserver": {
		name:      "sqlserver",
		sqlDriver: "sqlserver",
		migrations: []string{
			`CREATE TABLE messages (
				id VARCHAR(36) PRIMARY KEY,
				name NVARCHAR(255) NOT NULL,
				email NVARCHAR(320) NOT NULL,
				message NVARCHAR(MAX) NOT NULL,
				timestamp_nanos BIGINT NOT NULL
			)`,
			`CREATE INDEX idx_messages_timestamp ON messages(timestamp_nanos)`,
			`CREATE TABLE admin_bindings (
				principal NVARCHAR(255) PRIMARY KEY,
				bound_at BIGINT NOT NULL
			)`,
		},
	},
	"oracle": {
		name:      "oracle",
		sqlDriver: "oracle",
		migrations: []string{
			`CREATE TABLE messages (
				id VARCHAR2(36) PRIMARY KEY,
				name VARCHAR2(255) NOT NULL,
				email VARCHAR2(320) NOT NULL,
				message CLOB NOT NULL,
				timestamp_nanos NUMBER(19) NOT NULL
			)`,
			`CREATE INDEX idx_messages_timestamp ON messages(timestamp_nanos)`,
			`CREATE TABLE admin_bindings (
				principal VARCHAR2(255) PRIMARY KEY,
				bound_at NUMBER(19) NOT NULL
			)`,
		},
	},
	"snowflake": {
		name:      "snowflake",
		sqlDriver: "snowflake",
		migrations: []string{
			`CREATE TABLE IF NOT EXISTS messages (
				id VARCHAR(36) PRIMARY KEY,
				name VARCHAR NOT NULL,
				email VARCHAR NOT NULL,
				message VARCHAR NOT NULL,
				timestamp_nanos BIGINT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS admin_bindings (
				principal VARCHAR(255) PRIMARY KEY,
				bound_at BIGINT NOT NULL
			)`,
		},
	},
}

// Drivers returns the store driver names accepted by Open, sorted.
func Drivers() []string {
	return []string{"mysql", "oracle", "postgres", "snowflake", "sqlite", "sqlserver"}
}

func lookupDialect(driver string) (dialect, bool) {
	switch strings.ToLower(driver) {
	case "pgx", "postgresql":
		driver = "postgres"
	case "mssql":
		driver = "sqlserver"
	}
	d, ok := dialects[strings.ToLower(driver)]
	return d, ok
}

// isExistsError reports whether a DDL error only says the object is already
// there. Dialects without IF NOT EXISTS rely on this for idempotent migrations.
func isExistsError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") ||
		strings.Contains(msg, "already an object named") ||
		strings.Contains(msg, "duplicate key name") ||
		strings.Contains(msg, "ora-00955") ||
		strings.Contains(msg, "ora-01408")
}
