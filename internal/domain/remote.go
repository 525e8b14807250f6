package domain

// RemoteDriver represents the kind of remote durable store behind the sync
// boundary.
type RemoteDriver string

const (
	RemoteDriverMongo    RemoteDriver = "mongodb"
	RemoteDriverPostgres RemoteDriver = "postgres"
	RemoteDriverMySQL    RemoteDriver = "mysql"
)

// RemoteConfig holds the connection settings for the remote store.
// URI, when set, overrides the discrete host fields (mongo only).
type RemoteConfig struct {
	Driver   RemoteDriver `json:"driver"`
	Host     string       `json:"host"`
	Port     int          `json:"port"`
	Database string       `json:"database"`
	Username string       `json:"username"`
	Password string       `json:"password"`
	SSLMode  string       `json:"sslMode"`
	URI      string       `json:"uri"`
}
