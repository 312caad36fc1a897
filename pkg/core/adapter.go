package core

// AdapterConfig holds configuration for connecting to a storage backend.
type AdapterConfig struct {
	Type     string
	URL      string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any

	// Catalog describes the collections the adapter serves.
	Catalog *Schema
}
