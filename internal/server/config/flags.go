package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gotodo/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string          HTTP bind address (e.g., ":8000")
//	-m string          metrics bind address, empty to disable
//	-d string          PostgreSQL DSN, or memory://
//	-s string          token HMAC secret key
//	-t int             default token validity, minutes
//	-l int             login token validity, minutes
//	-b int             bcrypt cost
//	-r string          Redis URL for token revocation
//	-v string          log level
//	-secure-cookie     mark the session cookie Secure
//
// Duration flags are whole minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-m", "-d", "-s", "-t", "-l", "-b", "-r", "-v", "-secure-cookie"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "address and port for /metrics")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "default token validity (in minutes)")
	loginTokenValidity := fs.Int("l", int(config.LoginTokenValidityDuration.Minutes()), "login token validity (in minutes)")

	fs.IntVar(&config.BcryptCost, "b", config.BcryptCost, "bcrypt cost")
	fs.StringVar(&config.RedisURL, "r", config.RedisURL, "redis URL for token revocation")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")
	fs.BoolVar(&config.CookieSecure, "secure-cookie", config.CookieSecure, "set Secure on the session cookie")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
	config.LoginTokenValidityDuration = time.Duration(*loginTokenValidity) * time.Minute
}
