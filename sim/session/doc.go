// Package session stores robot sessions and persists them between restarts.
//
// Manager is a thread-safe in-memory store keyed case-insensitively by
// session ID. With a SessionPersistence attached, every change is written
// through and sessions missing from memory are loaded on demand.
//
// Two stores are provided:
//   - FilePersistence writes one JSON file per session
//   - SQLitePersistence keeps all sessions in a single SQLite database
//
// Both persist the table configuration along with the robot snapshot
// (state and command history), so a restored session does not depend on the
// config directory still holding the same file.
//
// Usage:
//
//	store, err := session.NewSQLitePersistence("sessions.db")
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	manager := session.NewManagerWithPersistence(store)
//	if err := manager.LoadPersistedSessions(); err != nil {
//		return err
//	}
package session
