package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   base URL of the auth server
//	-t int      request timeout in seconds
func parseFlags(cfg *Config, args []string) error {
	// Filter args to include only those handled here.
	args = flagx.FilterArgs(args, []string{"-a", "-t"})

	fs := flag.NewFlagSet("authctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the auth server")
	timeout := fs.Int("t", 0, "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("flags: %w", err)
	}

	var err error
	fs.Visit(func(f *flag.Flag) {
		if f.Name != "t" {
			return
		}
		if *timeout <= 0 {
			err = fmt.Errorf("flags: -t must be positive, got %d", *timeout)
			return
		}
		cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	})
	return err
}
