package config

import "time"

const (
	DefaultHTTPPort          = "8080"
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultPGMaxConns        = 10
	DefaultPGMinConns        = 1
	DefaultPGMaxConnIdleTime = 2 * time.Minute
	DefaultConnectTimeout    = 15 * time.Second
	DefaultReadHeaderTimeout = 5 * time.Second
)
