// Copyright (c) uniconnect Authors.
// Licensed under the MIT License.

/*
Package database opens the local SQLite file that keeps scan history.

DB wraps a GORM handle over the pure-Go glebarez/sqlite driver, pins the
connection pool for SQLite (one writer; a single connection for in-memory
databases so every query sees the same schema) and offers transactions
that retry on "database is locked" style contention.
*/
package database
