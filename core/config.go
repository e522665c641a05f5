package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	StorageConfig struct {
		Driver string `validate:"omitempty,oneof=file memory sqlite3 postgres"`
		DSN    string
	}

	DevServerConfig struct {
		Addr                   string
		SecretKey              string `validate:"required"`
		JWTExpirationDelta     time.Duration
		RefreshExpirationDelta time.Duration
		LegacyEmptyResults     bool
		SendgridAPIKey         string
		DefaultFromEmail       string `validate:"omitempty,email"`
	}

	Config struct {
		Env      string `validate:"required,oneof=DEV TEST QA PROD"`
		Debug    bool
		TestMode bool
		AppName  string `validate:"required"`

		// APIBaseURL may contain a "{tenant}" placeholder replaced by the resolved subdomain.
		APIBaseURL    string `validate:"required"`
		Host          string
		DefaultTenant string `validate:"omitempty,subdomain"`

		Timeout         time.Duration `validate:"gt=0"`
		TransferTimeout time.Duration `validate:"gt=0"`
		RateLimit       float64       `validate:"gte=0"`
		RateBurst       int           `validate:"gte=0"`

		LoginRoute          string `validate:"required"`
		TenantNotFoundRoute string `validate:"required"`

		DownloadDir  string
		StateFile    string
		Storage      StorageConfig
		RollbarToken string
		Build        string

		// EmptyResults maps a list entity (eg. "students") to the server phrases meaning "empty list".
		EmptyResults map[string][]string

		DevServer DevServerConfig
	}
)

// Conf is the process wide configuration, loaded on init.
var Conf *Config

func init() {
	conf, err := Load()
	if err != nil {
		log.Fatalf("core.Load: %v", err)
	}
	Conf = conf
}

func newViper(env string) *viper.Viper {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "EduCloud")
	v.SetDefault("apiBaseUrl", "http://localhost:5000/api")
	v.SetDefault("host", "")
	v.SetDefault("defaultTenant", "")
	if env == "DEV" || env == "TEST" {
		v.SetDefault("defaultTenant", "demo")
	}
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("transferTimeout", 60*time.Second)
	v.SetDefault("rateLimit", 0.0)
	v.SetDefault("rateBurst", 10)
	v.SetDefault("loginRoute", "/login")
	v.SetDefault("tenantNotFoundRoute", "/tenant-not-found")
	v.SetDefault("downloadDir", ".")
	v.SetDefault("stateFile", defaultStateFile())
	v.SetDefault("storageDriver", "file")
	v.SetDefault("storageDsn", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("build", "dev")

	v.SetDefault("devServerAddr", ":5000")
	v.SetDefault("devServerSecretKey", "k7#pq2v$zt9!mw4x@e1r&ub8(yd3)hn6-cs5")
	v.SetDefault("devServerJwtExpirationDelta", 15*time.Minute)
	v.SetDefault("devServerRefreshExpirationDelta", 7*24*time.Hour)
	v.SetDefault("devServerLegacyEmptyResults", true)
	v.SetDefault("devServerSendgridApiKey", "")
	v.SetDefault("devServerDefaultFromEmail", "noreply@educloud.local")

	v.SetEnvPrefix(env)
	v.AutomaticEnv()
	return v
}

// Load reads the configuration for the current ENV (DEV by default).
// `config/.env.<env>` and `config/<env>.yaml` are loaded if they exist in the working directory.
func Load() (*Config, error) {
	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}

	v := newViper(env)

	// optional config file, eg. config/dev.yaml (needed for map settings like emptyResults)
	confPath := filepath.Join("config", strings.ToLower(env)+".yaml")
	if _, err := os.Stat(confPath); err == nil {
		v.SetConfigFile(confPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading %s", confPath)
		}
	}
	return fromViper(env, v), nil
}

func fromViper(env string, v *viper.Viper) *Config {
	return &Config{
		Env:                 env,
		Debug:               v.GetBool("debug"),
		TestMode:            v.GetBool("testMode"),
		AppName:             v.GetString("appName"),
		APIBaseURL:          strings.TrimRight(v.GetString("apiBaseUrl"), "/"),
		Host:                v.GetString("host"),
		DefaultTenant:       CleanString(v.GetString("defaultTenant"), true /* lower */),
		Timeout:             v.GetDuration("timeout"),
		TransferTimeout:     v.GetDuration("transferTimeout"),
		RateLimit:           v.GetFloat64("rateLimit"),
		RateBurst:           v.GetInt("rateBurst"),
		LoginRoute:          v.GetString("loginRoute"),
		TenantNotFoundRoute: v.GetString("tenantNotFoundRoute"),
		DownloadDir:         v.GetString("downloadDir"),
		StateFile:           v.GetString("stateFile"),
		Storage: StorageConfig{
			Driver: v.GetString("storageDriver"),
			DSN:    v.GetString("storageDsn"),
		},
		RollbarToken: v.GetString("rollbarToken"),
		Build:        v.GetString("build"),
		EmptyResults: parseEmptyResults(v.GetStringMapStringSlice("emptyResults")),
		DevServer: DevServerConfig{
			Addr:                   v.GetString("devServerAddr"),
			SecretKey:              v.GetString("devServerSecretKey"),
			JWTExpirationDelta:     v.GetDuration("devServerJwtExpirationDelta"),
			RefreshExpirationDelta: v.GetDuration("devServerRefreshExpirationDelta"),
			LegacyEmptyResults:     v.GetBool("devServerLegacyEmptyResults"),
			SendgridAPIKey:         v.GetString("devServerSendgridApiKey"),
			DefaultFromEmail:       v.GetString("devServerDefaultFromEmail"),
		},
	}
}

func parseEmptyResults(raw map[string][]string) map[string][]string {
	if len(raw) == 0 {
		return nil
	}
	phrases := make(map[string][]string, len(raw))
	for entity, list := range raw {
		entity = CleanString(entity, true /* lower */)
		for _, p := range list {
			if p = CleanString(p, true /* lower */); p != "" {
				phrases[entity] = append(phrases[entity], p)
			}
		}
	}
	return phrases
}

func defaultStateFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".educloud", "state.json")
	}
	return filepath.Join(dir, "educloud", "state.json")
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	validate, _ := NewValidator()
	return validate.Struct(c)
}

// IsProduction reports whether the configuration targets the PROD environment.
func (c *Config) IsProduction() bool {
	return c.Env == "PROD"
}
