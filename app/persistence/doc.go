// Package persistence keeps program records in a relational store. It owns the table
// definitions and foreign keys for programs, regulation versions, reform procedures and
// coordinators, creates the schema on start and provides generic transactional operations
// over all four tables. Both SQLite (local use and tests) and PostgreSQL are supported.
package persistence
