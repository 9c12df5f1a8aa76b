// internal/app/bootstrap/appconfig.go
package bootstrap

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration: WAFFLE's CoreConfig
// handles framework-level settings like HTTP ports, TLS, and logging.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Identity configuration. The engine does not perform logins; it
	// decodes a signed identity cookie issued by the external identity
	// verifier that shares this key.
	IdentityKey string

	// AMQP notification transport. A blank URL disables the broker and
	// delivers notifications in-process instead.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}
