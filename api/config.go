package api

// Config is the status server configuration.
type Config struct {
	// Address to listen on (e.g., "127.0.0.1:6062")
	ListenAddr string
}
