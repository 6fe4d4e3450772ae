package config

import (
	"os"
	"time"
)

// Config holds runtime settings for authctl.
type Config struct {
	ServerURL      string
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:8080"
	c.RequestTimeout = 10 * time.Second
}

// Load constructs a Config from args (without the program name): defaults,
// then the JSON file named by -c/-config, then flags. Later sources take
// precedence over earlier ones.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads the process command line.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}
