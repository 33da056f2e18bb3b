// Package session provides session management for the placement grid server.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session persistence to JSON files or SQLite
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Each session owns one engine.Board built from a layout config, plus the
// config ID needed to rebuild it after a restart.
//
// Persistence:
//
// FilePersistence writes one JSON document per session; SQLPersistence keeps
// the same document in a SQLite table through gorm. Both store the board as an
// engine.BoardSnapshot and restore it by rebuilding the layout and replaying
// every placement, so a corrupt snapshot is rejected instead of loaded.
//
// Usage:
//
//	store, err := session.NewSQLPersistence("sessions.db", configs)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(store, session.WithLogger(logger))
//
//	sess, err := manager.Create("", "default", configs.GetDefault())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Retrieve existing session
//	sess, err = manager.Get(sessionID)
//
// Cleanup:
//
// CleanupExpiredSessions drops idle sessions from memory; persisted copies
// stay on disk and are loaded again on the next Get.
package session
