// Package postgres implements the store using pgx/v5 with raw SQL.
// Status records and DLQ entries each get a table; attempt history is a
// child table keyed by job_id. Schema is managed by embedded SQL
// migrations applied via Migrate.
package postgres
