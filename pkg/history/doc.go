// Package history keeps per-user conversation turns for the chat branch.
//
// A Store persists turns and a rolling summary. Three implementations are
// provided: MemoryStore for tests and single-shot CLI use, SQLiteStore for
// a single process, and MongoStore for deployments that share history.
//
// Turn ids come from an IDGenerator (snowflake ids), so ordering by id is
// ordering by creation time. Compactor folds older turns into the summary
// while holding a per-user lock from a Locker.
package history
