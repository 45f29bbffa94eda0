// Package database provides the SQLite connection used for scan history.
//
// The agent records each scan run so the last known inventory of an endpoint
// survives reboots and can be compared across runs. Persistence is optional:
// when database.enabled is false nothing in this package is touched.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations live in the top-level migrations package, which registers its
// embedded files through MigrationsFS.
package database
