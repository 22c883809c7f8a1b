// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── audit/           # Activity log (imports, exports, snapshots, sign-ins)
//	├── durable/         # Identity-keyed records (favorites lists)
//	└── users/           # User accounts
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	db, err := database.NewDatabase("./bookfinder.db")
//
//	records := db.Durable()
//	raw, found, err := records.Get(ctx, storage.FavoritesKey("a@x.com"))
//
//	accounts := db.Users()
//	user, err := accounts.GetByEmail("a@x.com")
//
// # Interface Implementations
//
//   - durable.Repository: implements storage.Durable
//   - users.Repository: implements auth.UserStore
package database
