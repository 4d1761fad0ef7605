// Package sqlite contains SQLite repository implementations for the
// analysis domain types.
//
// All database read/write operations for sessions, persisted peak fits,
// and run metadata belong here rather than in the analysis packages. This
// keeps the fitting code free of SQL noise and makes it easier to swap
// storage backends for testing.
package sqlite
