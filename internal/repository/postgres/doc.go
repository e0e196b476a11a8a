// Package postgres implements the storage repositories against PostgreSQL.
// All queries go through database/sql with lib/pq; sql.ErrNoRows is mapped
// to domain.ErrNotFound at this boundary so upper layers never see driver
// sentinels.
package postgres
