package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"dario.cat/mergo"
	"github.com/Shopify/ejson"
	"github.com/caarlos0/env/v6"
	"github.com/ghodss/yaml"
	"github.com/joho/godotenv"
	"k8s.io/klog"
)

const ejsonKeyDir = "/opt/ejson/keys"

var config Config
var secrets Secrets

// ReadConfig loads the yaml config (from configEnvVar when set, otherwise
// configFile) and the secrets (environment, .env and the optional ejson
// secretsFile). Missing files fall back to defaults.
func ReadConfig(configEnvVar, configFile, secretsFile string) error {
	_, err := readConfig(configEnvVar, configFile)
	if err != nil {
		return err
	}

	_, err = readSecrets(secretsFile)
	if err != nil {
		return err
	}
	return nil
}

func CurrentConfig() *Config {
	return &config
}

func CurrentSecrets() *Secrets {
	return &secrets
}

func CurrentETLConfig() *ETLConfig {
	return &config.ETL
}

func CurrentWarehouseConfig() *WarehouseConfig {
	return &config.Warehouse
}

func CurrentInfluxConfig() *InfluxConfig {
	return &config.Influx
}

func CurrentSqlSecrets() *SqlSecrets {
	return &secrets.SQL
}

func CurrentInfluxSecrets() *InfluxSecrets {
	return &secrets.Influx
}

// PersistTimeoutDuration parses ETL.PersistTimeout, zero means no timeout.
func (c *ETLConfig) PersistTimeoutDuration() (time.Duration, error) {
	if c.PersistTimeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(c.PersistTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid persistTimeout %q: %w", c.PersistTimeout, err)
	}
	return d, nil
}

func (c *WarehouseConfig) RetryDelayDuration() (time.Duration, error) {
	if c.RetryDelay == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(c.RetryDelay)
	if err != nil {
		return 0, fmt.Errorf("invalid retryDelay %q: %w", c.RetryDelay, err)
	}
	return d, nil
}

func readConfig(envName, filename string) (*Config, error) {
	cfg, err := parseConfig(envName, filename)
	if err != nil {
		return nil, err
	}

	config = *cfg
	return &config, nil
}

func parseConfig(envName, filename string) (*Config, error) {
	var raw []byte
	var err error

	parsed := Config{}

	rawEnv := os.Getenv(envName)
	if envName != "" && rawEnv != "" {
		klog.Infof("Reading config from environment variable %s", envName)
		raw = []byte(rawEnv)
	} else {
		raw, err = os.ReadFile(filename)
		if errors.Is(err, fs.ErrNotExist) {
			klog.V(2).Infof("Config file %s not found, using defaults", filename)
			raw = nil
		} else if err != nil {
			return nil, err
		}
	}

	if len(raw) > 0 {
		if err := yaml.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := mergo.Merge(&parsed, defaultConfig()); err != nil {
		return nil, fmt.Errorf("failed to merge config defaults: %w", err)
	}

	return &parsed, nil
}

func readSecrets(filename string) (*Secrets, error) {
	s, err := parseSecrets(filename)
	if err != nil {
		return nil, err
	}

	secrets = *s
	return &secrets, nil
}

// parseSecrets layers secrets: environment first, then the ejson file for
// anything the environment left empty, then defaults.
func parseSecrets(filename string) (*Secrets, error) {
	// .env only fills variables that are not already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		klog.Warningf("Failed to load .env file: %v", err)
	}

	envSecrets, envErr := readEnvSecrets()
	ejsonSecrets, ejsonErr := readEjsonSecrets(filename)

	var merged Secrets

	if ejsonErr == nil && envErr == nil {
		if err := mergo.Merge(envSecrets, *ejsonSecrets); err != nil {
			return nil, fmt.Errorf("failed to merge secrets: %w", err)
		}
		merged = *envSecrets
	} else if ejsonErr != nil && envErr == nil {
		if !errors.Is(ejsonErr, fs.ErrNotExist) {
			klog.Warningf("Failed to parse ejson secrets %s: %v", filename, ejsonErr)
		}
		merged = *envSecrets
	} else if ejsonErr == nil && envErr != nil {
		klog.Warningf("Failed to parse env secrets: %v", envErr)
		merged = *ejsonSecrets
	} else {
		return nil, fmt.Errorf("failed to parse secrets. ejson error: %v. env error: %v", ejsonErr, envErr)
	}

	if err := mergo.Merge(&merged, defaultSecrets()); err != nil {
		return nil, fmt.Errorf("failed to merge secret defaults: %w", err)
	}

	if merged.DatabaseURL == "" && merged.SQL.SqlPassword == "" {
		klog.Warningf("DB_PASSWORD is not set, connecting to %s without a password", merged.SQL.SqlHost)
	}

	return &merged, nil
}

func readEjsonSecrets(filename string) (*Secrets, error) {
	ejsonSecrets := Secrets{}
	if filename == "" {
		return nil, fs.ErrNotExist
	}

	if _, err := os.Stat(filename); err != nil {
		return nil, err
	}

	ejsonKeyFile := os.Getenv("FINANCE_ETL_EJSON_SECRET_KEY")
	ejsonKey := []byte{}
	var err error

	if ejsonKeyFile != "" {
		ejsonKey, err = os.ReadFile(ejsonKeyFile)
		if err != nil {
			return nil, err
		}
	}

	raw, err := ejson.DecryptFile(filename, ejsonKeyDir, string(ejsonKey))
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(raw, &ejsonSecrets)
	return &ejsonSecrets, err
}

func readEnvSecrets() (*Secrets, error) {
	envSecrets := Secrets{}
	err := env.Parse(&envSecrets)
	return &envSecrets, err
}
