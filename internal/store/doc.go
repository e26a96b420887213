// Package store provides SQLite-backed persistence for mydays.
//
// Two tables live in one database file:
//   - kv: the client's local state, one JSON value per key (theme, sound,
//     view, tasks, categories, customThemes, categoryColors, sync)
//   - documents: the server side of sync, one row per user document, the
//     JSON payload zstd-compressed at rest
//
// Connections run in WAL mode with synchronous=NORMAL and a 5s busy
// timeout. The schema version is tracked in PRAGMA user_version.
package store
