package config

import (
	"github.com/kelseyhightower/envconfig"
)

type (
	// Env holds the values of environment variable based configuration
	Env struct {
		Host              string `envconfig:"HOST" default:"127.0.0.1"`
		Port              int    `envconfig:"PORT" default:"8080"`
		Mocks             string `envconfig:"APIMOCK_MOCKS" default:"./mocks/**/*.json"`
		Backend           string `envconfig:"APIMOCK_BACKEND"`
		StrictIdentifiers bool   `envconfig:"APIMOCK_STRICT_IDENTIFIERS" default:"false"`
		LogLevel          string `envconfig:"LOG_LEVEL" default:"info"`
	}
)

// New returns a new Env config
func New() *Env {
	cfg := &Env{}

	envconfig.MustProcess("", cfg)

	return cfg
}
