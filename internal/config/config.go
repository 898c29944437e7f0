// Package config assembles the service configuration from defaults, an optional
// JSON file, the .env file, environment variables and command line flags,
// in increasing order of priority.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Completion failure policies.
const (
	FailurePolicyPersistEmpty  = "persist-empty"
	FailurePolicyPersistMarker = "persist-marker"
	FailurePolicyAbort         = "abort"
)

// Config holds every runtime setting of the journal service.
type Config struct {
	RunAddr  string `env:"SERVER_ADDRESS" validate:"hostname_port"`
	LogLevel string `env:"LOG_LEVEL" validate:"loglevel"`

	DatabaseDSN         string        `env:"DATABASE_DSN"`
	MongoURI            string        `env:"MONGO_DB_CONNECTION_URL"`
	MongoDBName         string        `env:"MONGO_DB_NAME"`
	DBFileName          string        `env:"FILE_STORAGE_PATH" validate:"filepath"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" validate:"gt=0"`

	SessionSecretKey    string        `env:"SESSION_SECRET_KEY" validate:"min=16"`
	SessionCookieName   string        `env:"SESSION_COOKIE_NAME" validate:"required"`
	SessionMaxAge       time.Duration `env:"SESSION_MAX_AGE" validate:"gt=0"`
	SessionCookieSecure bool          `env:"SESSION_COOKIE_SECURE"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" validate:"gte=0"`

	CompletionURL           string        `env:"OPEN_AI_URL" validate:"url"`
	CompletionAPIKey        string        `env:"OPEN_AI_API_KEY"`
	CompletionModel         string        `env:"OPEN_AI_MODEL" validate:"required"`
	CompletionTemperature   float64       `env:"OPEN_AI_TEMPERATURE" validate:"gte=0,lte=2"`
	CompletionTimeout       time.Duration `env:"COMPLETION_TIMEOUT" validate:"gte=0"`
	CompletionFailurePolicy string        `env:"COMPLETION_FAILURE_POLICY" validate:"oneof=persist-empty persist-marker abort"`

	RabbitMQURL        string        `env:"RABBITMQ_URL"`
	RabbitMQQueue      string        `env:"RABBITMQ_QUEUE" validate:"required"`
	EventQueueCapacity int           `env:"EVENT_QUEUE_CAPACITY" validate:"gt=0"`
	EventFlushInterval time.Duration `env:"EVENT_FLUSH_INTERVAL" validate:"gt=0"`

	BcryptCost int `env:"BCRYPT_COST" validate:"gte=4,lte=31"`

	ConfigFile string `env:"CONFIG"`
}

// jsonConfig lists the fields that may be provided by the JSON config file.
type jsonConfig struct {
	RunAddr             *string `json:"server_address"`
	LogLevel            *string `json:"log_level"`
	DatabaseDSN         *string `json:"database_dsn"`
	MongoURI            *string `json:"mongo_uri"`
	MongoDBName         *string `json:"mongo_db_name"`
	DBFileName          *string `json:"file_storage_path"`
	SessionCookieSecure *bool   `json:"session_cookie_secure"`
	RedisAddr           *string `json:"redis_addr"`
	CompletionURL       *string `json:"completion_url"`
	CompletionModel     *string `json:"completion_model"`
	FailurePolicy       *string `json:"completion_failure_policy"`
	RabbitMQURL         *string `json:"rabbitmq_url"`
}

// DefaultSessionSecretKey is the signing secret used when none is configured.
// It is public, so cookies signed with it can be forged.
const DefaultSessionSecretKey = "change-me-journal-session-secret"

var defaultConfig = Config{
	RunAddr:                 ":8080",
	LogLevel:                "info",
	MongoDBName:             "journal",
	DBConnectionTimeout:     10 * time.Second,
	SessionSecretKey:        DefaultSessionSecretKey,
	SessionCookieName:       "journal_session",
	SessionMaxAge:           24 * time.Hour,
	CompletionURL:           "https://api.openai.com/v1",
	CompletionModel:         "gpt-4o-mini",
	CompletionTemperature:   0.7,
	CompletionTimeout:       60 * time.Second,
	CompletionFailurePolicy: FailurePolicyPersistEmpty,
	RabbitMQQueue:           "record.created",
	EventQueueCapacity:      100,
	EventFlushInterval:      time.Second,
	BcryptCost:              bcrypt.DefaultCost,
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing skips command line parsing. Used by tests.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs overrides os.Args[1:] as the source of command line flags.
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
}

// New builds a validated Config.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                os.Args[1:],
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	configFile := os.Getenv("CONFIG")
	if !options.disableFlagsParsing {
		configFile = lookupConfigFlag(options.args, configFile)
	}
	if configFile != "" {
		if err := values.applyJSONFile(configFile); err != nil {
			return nil, err
		}
		values.ConfigFile = configFile
	}

	if err := env.Parse(values); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `env.Parse()` calling: %w", err)
	}

	if !options.disableFlagsParsing {
		if err := values.parseFlags(options.args); err != nil {
			return nil, err
		}
	}

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}

// UsesDefaultSessionSecret reports whether session cookies are signed with DefaultSessionSecretKey.
func (c *Config) UsesDefaultSessionSecret() bool {
	return c.SessionSecretKey == DefaultSessionSecretKey
}

func (c *Config) applyJSONFile(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/applyJSONFile(): error while `os.ReadFile()` calling: %w", err)
	}

	var fromJSON jsonConfig
	if err := json.Unmarshal(data, &fromJSON); err != nil {
		return fmt.Errorf("in internal/config/config.go/applyJSONFile(): error while `json.Unmarshal()` calling: %w", err)
	}

	setString(&c.RunAddr, fromJSON.RunAddr)
	setString(&c.LogLevel, fromJSON.LogLevel)
	setString(&c.DatabaseDSN, fromJSON.DatabaseDSN)
	setString(&c.MongoURI, fromJSON.MongoURI)
	setString(&c.MongoDBName, fromJSON.MongoDBName)
	setString(&c.DBFileName, fromJSON.DBFileName)
	setString(&c.RedisAddr, fromJSON.RedisAddr)
	setString(&c.CompletionURL, fromJSON.CompletionURL)
	setString(&c.CompletionModel, fromJSON.CompletionModel)
	setString(&c.CompletionFailurePolicy, fromJSON.FailurePolicy)
	setString(&c.RabbitMQURL, fromJSON.RabbitMQURL)
	if fromJSON.SessionCookieSecure != nil {
		c.SessionCookieSecure = *fromJSON.SessionCookieSecure
	}

	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func newFlagSet(c *Config, configFile *string) *flag.FlagSet {
	flags := flag.NewFlagSet("journal", flag.ContinueOnError)
	flags.StringVar(configFile, "c", *configFile, "path to the JSON config file")
	flags.StringVar(&c.RunAddr, "a", c.RunAddr, "address and port to run server")
	flags.StringVar(&c.LogLevel, "l", c.LogLevel, "logger level")
	flags.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "PostgreSQL connection string")
	flags.StringVar(&c.MongoURI, "m", c.MongoURI, "MongoDB connection URL")
	flags.StringVar(&c.DBFileName, "f", c.DBFileName, "JSON file name with database")
	flags.StringVar(&c.RedisAddr, "r", c.RedisAddr, "Redis address for the session store")
	flags.StringVar(&c.SessionSecretKey, "s", c.SessionSecretKey, "session cookie signing secret")
	flags.StringVar(&c.CompletionFailurePolicy, "p", c.CompletionFailurePolicy, "completion failure policy")
	return flags
}

func lookupConfigFlag(args []string, current string) string {
	probe := Config{}
	configFile := current
	flags := newFlagSet(&probe, &configFile)
	flags.SetOutput(discard{})
	_ = flags.Parse(args)
	return configFile
}

func (c *Config) parseFlags(args []string) error {
	configFile := c.ConfigFile
	if err := newFlagSet(c, &configFile).Parse(args); err != nil {
		return fmt.Errorf("in internal/config/config.go/parseFlags(): error while `flags.Parse()` calling: %w", err)
	}
	return nil
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}
