// Package queue persists bleeparr's coordination state in SQLite.
//
// The Store owns four tables: the admission queue of pending media items, the
// append-only processing history, the settings key/value table, and the
// per-title filtered flags that opt a show or movie into censoring. Keeping them
// in one database lets admission check pending work and history inside a
// single statement, so concurrent manual enqueues and poller admission can
// never both win for the same media identity.
//
// Schema changes bump schemaVersion in schema.go; users clear the database to
// adopt the new schema.
package queue
