package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./bookfinder.db"

	// DefaultCatalogBaseURL is the Google Books volumes endpoint
	DefaultCatalogBaseURL = "https://www.googleapis.com/books/v1/volumes"

	// DefaultCatalogMaxResults bounds every search response
	DefaultCatalogMaxResults = 6
)
