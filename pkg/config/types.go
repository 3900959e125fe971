package config

import (
	"fmt"
	"net/url"
)

type Config struct {
	ETL       ETLConfig       `json:"etl"`
	Warehouse WarehouseConfig `json:"warehouse"`
	Influx    InfluxConfig    `json:"influx"`
}

type Secrets struct {
	SQL    SqlSecrets    `json:"sql"`
	Influx InfluxSecrets `json:"influx"`

	// Overrides the DSN composed from the SQL secrets when set
	DatabaseURL string `json:"databaseUrl" env:"DATABASE_URL"`
}

///////////////////////////////////////////////////////////////////////////////////////
// ETL
///////////////////////////////////////////////////////////////////////////////////////

type ETLConfig struct {
	RawDir      string `json:"rawDir"`
	ArchiveDir  string `json:"archiveDir"`
	FilePattern string `json:"filePattern"`
	// cron spec used when not running with -single-run
	UpdateFrequency string `json:"updateFrequency"`
	// Go duration string bounding each dimension/fact write, e.g. "60s"
	PersistTimeout string `json:"persistTimeout"`
}

type WarehouseConfig struct {
	BatchSize      int    `json:"batchSize"`
	ConnectRetries uint   `json:"connectRetries"`
	RetryDelay     string `json:"retryDelay"`
}

type InfluxConfig struct {
	Database    string `json:"database"`
	Measurement string `json:"measurement"`
}

type SqlSecrets struct {
	SqlHost     string `json:"host" env:"DB_HOST"`
	SqlPort     string `json:"port" env:"DB_PORT"`
	SqlUsername string `json:"user" env:"DB_USER"`
	SqlPassword string `json:"password" env:"DB_PASSWORD"`
	SqlDatabase string `json:"database" env:"DB_NAME"`
	SslMode     string `json:"sslmode" env:"DB_SSLMODE"`
}

type InfluxSecrets struct {
	InfluxEndpoint string `json:"endpoint" env:"INFLUX_ENDPOINT"`
	InfluxUsername string `json:"username" env:"INFLUX_USERNAME"`
	InfluxPassword string `json:"password" env:"INFLUX_PASSWORD"`
}

func defaultConfig() Config {
	return Config{
		ETL: ETLConfig{
			RawDir:          "data/raw",
			ArchiveDir:      "data/archived",
			FilePattern:     "*.csv",
			UpdateFrequency: "@daily",
			PersistTimeout:  "60s",
		},
		Warehouse: WarehouseConfig{
			BatchSize:      1000,
			ConnectRetries: 3,
			RetryDelay:     "2s",
		},
		Influx: InfluxConfig{
			Database:    "finance",
			Measurement: "etl_file",
		},
	}
}

func defaultSecrets() Secrets {
	return Secrets{
		SQL: SqlSecrets{
			SqlHost:     "localhost",
			SqlPort:     "5432",
			SqlUsername: "postgres",
			SqlDatabase: "finance_project",
			SslMode:     "disable",
		},
	}
}

// ConnectionString returns DATABASE_URL when set, otherwise a postgres URL
// composed from the SQL secrets.
func (s *Secrets) ConnectionString() string {
	if s.DatabaseURL != "" {
		return s.DatabaseURL
	}

	return s.SQL.connectionString(s.SQL.SqlDatabase)
}

// MaintenanceConnectionString points at the "postgres" database on the same
// server, used to create the warehouse database when it is missing.
func (s *Secrets) MaintenanceConnectionString() string {
	return s.SQL.connectionString("postgres")
}

func (s SqlSecrets) connectionString(database string) string {
	u := url.URL{
		Scheme: "postgresql",
		Host:   fmt.Sprintf("%s:%s", s.SqlHost, s.SqlPort),
		Path:   "/" + database,
	}

	if s.SqlPassword != "" {
		u.User = url.UserPassword(s.SqlUsername, s.SqlPassword)
	} else {
		u.User = url.User(s.SqlUsername)
	}

	q := u.Query()
	q.Set("sslmode", s.SslMode)
	u.RawQuery = q.Encode()

	return u.String()
}
