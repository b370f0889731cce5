package main

import "time"

// Config is read from the environment at startup.
type Config struct {
	MongoURI     string        `env:"MONGODB_URI,required=true"`
	JWTSecret    string        `env:"JWT_SECRET,required=true"`
	TokenTTL     time.Duration `env:"TOKEN_TTL,default=24h"`
	Port         int           `env:"PORT,default=8080"`
	RateLimitRPM int           `env:"RATE_LIMIT_RPM,default=10"`
	LogLevel     string        `env:"LOG_LEVEL,default=info"`
}
