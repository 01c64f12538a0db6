// Package session keeps the running tactics games in memory.
//
// Each session owns its own engine, started on a level when the session is
// created. Sessions are addressed by short IDs: generated ones are four hex
// characters, caller-chosen ones may use letters, digits, '-' and '_'.
// Lookups are case-insensitive.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", "level1", level, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sess.ID)
//
// Idle sessions are dropped by CleanupExpiredSessions, except while their
// engine is playing out a sequence.
package session
