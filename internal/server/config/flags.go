package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

// parseFlags overlays command-line flags.
//
//	-p int      HTTP port
//	-e string   environment (development, production, test)
//	-d string   database DSN
//	-s string   JWT secret
//	-k string   cookie signing secret
//	-t string   access token TTL, e.g. 15m
//	-r string   refresh token TTL, e.g. 7d
//	-o string   allowed CORS origin
//	-g string   gRPC health address, e.g. :50051
//	-l string   log level
//	-f string   log format
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-p", "-e", "-d", "-s", "-k", "-t", "-r", "-o", "-g", "-l", "-f"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.IntVar(&cfg.Port, "p", cfg.Port, "HTTP port")
	fs.StringVar(&cfg.Environment, "e", cfg.Environment, "environment")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.JWTSecret, "s", cfg.JWTSecret, "JWT secret")
	fs.StringVar(&cfg.CookieSecret, "k", cfg.CookieSecret, "cookie signing secret")
	fs.StringVar(&cfg.AccessTokenExpiresIn, "t", cfg.AccessTokenExpiresIn, "access token TTL")
	fs.StringVar(&cfg.RefreshTokenExpiresIn, "r", cfg.RefreshTokenExpiresIn, "refresh token TTL")
	fs.StringVar(&cfg.CORSOrigin, "o", cfg.CORSOrigin, "allowed CORS origin")
	fs.StringVar(&cfg.GRPCHealthAddr, "g", cfg.GRPCHealthAddr, "gRPC health address")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "f", cfg.LogFormat, "log format")

	return fs.Parse(args)
}
