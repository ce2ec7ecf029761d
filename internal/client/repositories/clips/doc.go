// Package clips provides the SQLite persistence layer for recorded clips.
//
// The Repository works over dbx.DBTX, so the same implementation runs on a
// *sql.DB or inside a *sql.Tx opened by the store. Listings return summary
// rows (everything except the media bytes); GetByID returns the full clip.
//
// Rows are ordered by captured_at descending with id descending as the tie
// breaker. captured_at is stored as Unix milliseconds.
package clips
