package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Env holds settings taken from the process environment. Command line
// flags default to these values.
type Env struct {
	// Link is "sim", a ws:// or wss:// bridge URL, or a serial device.
	Link   string `env:"PROCDRIVE_LINK"   envDefault:"sim"`
	Config string `env:"PROCDRIVE_CONFIG"`
	DB     string `env:"PROCDRIVE_DB"`
	Listen string `env:"PROCDRIVE_LISTEN"`
	Locale string `env:"PROCDRIVE_LOCALE" envDefault:"en-US"`
	Debug  bool   `env:"PROCDRIVE_DEBUG"`
}

// LoadEnv reads an optional dotenv file and then parses the environment.
// Variables already set in the environment win over the file.
func LoadEnv(dotenvPath string) (Env, error) {
	if dotenvPath != "" {
		if err := loadDotEnv(dotenvPath); err != nil {
			return Env{}, fmt.Errorf("load %s: %w", dotenvPath, err)
		}
	}

	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
