package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

const defaultEnvFile = ".env"

// parseEnv overlays environment variables. Values from the .env file are
// used only when the variable is absent from environ. An explicit
// -env-file must exist; the default .env is optional.
func parseEnv(cfg *Config, args []string, environ map[string]string) error {
	path := flagx.EnvFileFlag(args)
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	merged, err := godotenv.Read(path)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, fs.ErrNotExist):
		merged = map[string]string{}
	default:
		return fmt.Errorf("read env file %s: %w", path, err)
	}

	maps.Copy(merged, environ)

	if err := env.ParseWithOptions(cfg, env.Options{Environment: merged}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
