// Package store is the durable, local-first record store for clips.
//
// A Store owns one SQLite database (modernc.org/sqlite, goose migrations)
// and a preview cache directory. It is opened explicitly, passed to its
// collaborators and closed by its owner.
//
// Every mutation commits before it returns. After each commit the store
// re-reads the clip list and publishes it to all ObserveAll subscribers.
// Writes to one clip id are serialized; writes to different ids are not.
// A clip in the synced status is never written again.
package store
