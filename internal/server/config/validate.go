package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/authkeeper/internal/timex"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("ttl", func(fl validator.FieldLevel) bool {
		_, err := timex.ParseTTL(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks every field and derives the token TTLs. All problems are
// reported together.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describe(fe))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}

	access, _ := timex.ParseTTL(c.AccessTokenExpiresIn)
	refresh, _ := timex.ParseTTL(c.RefreshTokenExpiresIn)
	if access >= refresh {
		return fmt.Errorf("invalid configuration: ACCESS_TOKEN_EXPIRES_IN (%s) must be shorter than REFRESH_TOKEN_EXPIRES_IN (%s)",
			c.AccessTokenExpiresIn, c.RefreshTokenExpiresIn)
	}

	c.AccessTokenTTL = access
	c.RefreshTokenTTL = refresh
	return nil
}

var envNames = map[string]string{
	"Port":                  "PORT",
	"Environment":           "APP_ENV",
	"DatabaseDSN":           "DATABASE_DSN",
	"JWTSecret":             "JWT_SECRET",
	"AccessTokenExpiresIn":  "ACCESS_TOKEN_EXPIRES_IN",
	"RefreshTokenExpiresIn": "REFRESH_TOKEN_EXPIRES_IN",
	"CookieSecret":          "COOKIE_SECRET",
	"CORSOrigin":            "CORS_ORIGIN",
	"GRPCHealthAddr":        "GRPC_HEALTH_ADDR",
	"LogLevel":              "LOG_LEVEL",
	"LogFormat":             "LOG_FORMAT",
	"TraceExporter":         "TRACE_EXPORTER",
	"BcryptCost":            "BCRYPT_COST",
	"HashConcurrency":       "HASH_CONCURRENCY",
}

func describe(fe validator.FieldError) string {
	name, ok := envNames[fe.Field()]
	if !ok {
		name = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, fe.Param())
	case "ttl":
		return name + " must be a positive duration such as 15m or 7d"
	case "min", "max":
		return fmt.Sprintf("%s fails %s=%s", name, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", name, fe.Tag())
	}
}
