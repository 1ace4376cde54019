// v1
// internal/config/config.go
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"modelmarket/internal/circuitbreaker"
	"modelmarket/internal/hashing"
	"modelmarket/internal/public"
	"modelmarket/internal/signing"
)

// Config captures all runtime settings of the marketplace service. Values
// can be provided by a .env file, a properties file or environment
// variables, falling back to defaults so the service boots with minimal setup.
type Config struct {
	// ListenAddress defines the TCP address used by the HTTP server.
	ListenAddress string
	// LogFilePath is the path of the log file teed with stdout.
	LogFilePath string
	// HTTPReadTimeout bounds the time to read incoming requests.
	HTTPReadTimeout time.Duration
	// HTTPWriteTimeout bounds the time to write responses.
	HTTPWriteTimeout time.Duration
	// ShutdownTimeout limits graceful shutdown attempts.
	ShutdownTimeout time.Duration
	// PropertiesPath records the path used to load property values.
	PropertiesPath string
	// EnvFile records the dotenv file consulted before the environment.
	EnvFile string

	// HashAlgorithm names the digest used for links and shared-secret signatures.
	HashAlgorithm string
	// SignerMode is shared or ed25519.
	SignerMode string
	// SigningSecret is the shared key, or the hex ed25519 seed.
	SigningSecret string
	// BasePrice is the pricing base.
	BasePrice float64
	// JournalPath is the JSONL journal file. Empty keeps the ledger in memory.
	JournalPath string

	KafkaBrokers      []string
	PublicEnabled     bool
	PublicTopic       string
	PublicKeyMode     string
	PublicAcks        int
	PublicPartitioner string
	IntentEnabled     bool
	IntentTopic       string
	IntentGroupID     string
	Breaker           circuitbreaker.KafkaSettings

	MQTTEnabled  bool
	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string
	MQTTQoS      int
}

const (
	defaultListenAddress = ":8090"
	defaultLogFile       = "logs/modelmarket.log"
	defaultReadTimeout   = 5 * time.Second
	defaultWriteTimeout  = 10 * time.Second
	defaultShutdown      = 5 * time.Second
	defaultPropsPath     = "modelmarket.properties"
	defaultEnvFile       = ".env"
	defaultSecret        = "mock_private_key"
	defaultBasePrice     = 100.0
	defaultKafkaBrokers  = "kafka:9092"
	defaultPublicTopic   = "modelmarket.records"
	defaultIntentTopic   = "modelmarket.intents"
	defaultIntentGroup   = "modelmarket-intents"
	defaultMQTTBroker    = "tcp://mosquitto:1883"
	defaultMQTTTopic     = "modelmarket/intents"
	defaultMQTTClientID  = "modelmarket"
)

const envPrefix = "MODELMARKET_"

// Load resolves configuration by layering defaults, an optional dotenv file,
// an optional properties file and finally environment variables. The
// properties file location can be overridden with MODELMARKET_PROPERTIES_PATH.
func Load() (Config, error) {
	cfg := defaults()

	envFile := strings.TrimSpace(os.Getenv(envPrefix + "ENV_FILE"))
	if envFile == "" {
		envFile = defaultEnvFile
	}
	cfg.EnvFile = envFile
	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	propsPath := strings.TrimSpace(os.Getenv(envPrefix + "PROPERTIES_PATH"))
	if propsPath == "" {
		propsPath = defaultPropsPath
	}
	cfg.PropertiesPath = propsPath

	if err := applyProperties(&cfg, propsPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults() Config {
	breaker := circuitbreaker.DefaultKafkaSettings()
	breaker.Enabled = true
	return Config{
		ListenAddress:     defaultListenAddress,
		LogFilePath:       filepath.Clean(defaultLogFile),
		HTTPReadTimeout:   defaultReadTimeout,
		HTTPWriteTimeout:  defaultWriteTimeout,
		ShutdownTimeout:   defaultShutdown,
		HashAlgorithm:     hashing.AlgorithmSHA256,
		SignerMode:        signing.ModeShared,
		SigningSecret:     defaultSecret,
		BasePrice:         defaultBasePrice,
		KafkaBrokers:      splitAndTrim(defaultKafkaBrokers),
		PublicTopic:       defaultPublicTopic,
		PublicKeyMode:     string(public.KeyModeModel),
		PublicAcks:        -1,
		PublicPartitioner: string(public.PartitionerHash),
		IntentTopic:       defaultIntentTopic,
		IntentGroupID:     defaultIntentGroup,
		Breaker:           breaker,
		MQTTBroker:        defaultMQTTBroker,
		MQTTTopic:         defaultMQTTTopic,
		MQTTClientID:      defaultMQTTClientID,
	}
}

func applyProperties(cfg *Config, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, ";") {
			continue
		}
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid properties entry on line %d", line)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if err := setProperty(cfg, key, value); err != nil {
			return fmt.Errorf("property %s: %w", key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read properties: %w", err)
	}
	return nil
}

// propertyKeys lists every recognised key. The matching environment variable
// is MODELMARKET_ followed by the upper-cased key.
var propertyKeys = []string{
	"listen_address",
	"log_path",
	"http_read_timeout_ms",
	"http_write_timeout_ms",
	"shutdown_timeout_ms",
	"hash_algorithm",
	"signer_mode",
	"signing_secret",
	"base_price",
	"journal_path",
	"kafka_brokers",
	"public_enabled",
	"public_topic",
	"public_key_mode",
	"public_acks",
	"public_partitioner",
	"intent_enabled",
	"intent_topic",
	"intent_group_id",
	"cb_enabled",
	"cb_failure_threshold",
	"cb_success_threshold",
	"cb_open_seconds",
	"cb_timeout_ms",
	"cb_backoff_ms",
	"mqtt_enabled",
	"mqtt_broker",
	"mqtt_topic",
	"mqtt_client_id",
	"mqtt_qos",
}

func setProperty(cfg *Config, key, value string) error {
	var err error
	switch key {
	case "listen_address":
		cfg.ListenAddress, err = nonEmpty(value)
	case "log_path":
		var v string
		if v, err = nonEmpty(value); err == nil {
			cfg.LogFilePath = filepath.Clean(v)
		}
	case "http_read_timeout_ms":
		cfg.HTTPReadTimeout, err = parsePositiveMillis(value)
	case "http_write_timeout_ms":
		cfg.HTTPWriteTimeout, err = parsePositiveMillis(value)
	case "shutdown_timeout_ms":
		cfg.ShutdownTimeout, err = parsePositiveMillis(value)
	case "hash_algorithm":
		if _, err = hashing.Lookup(value); err == nil {
			cfg.HashAlgorithm = strings.ToLower(value)
		}
	case "signer_mode":
		cfg.SignerMode = strings.ToLower(value)
	case "signing_secret":
		cfg.SigningSecret, err = nonEmpty(value)
	case "base_price":
		var f float64
		if f, err = strconv.ParseFloat(value, 64); err == nil {
			if f < 0 {
				err = errors.New("value must not be negative")
			}
			cfg.BasePrice = f
		}
	case "journal_path":
		cfg.JournalPath = value
	case "kafka_brokers":
		brokers := splitAndTrim(value)
		if len(brokers) == 0 {
			return errors.New("value cannot be empty")
		}
		cfg.KafkaBrokers = brokers
	case "public_enabled":
		cfg.PublicEnabled, err = strconv.ParseBool(value)
	case "public_topic":
		cfg.PublicTopic, err = nonEmpty(value)
	case "public_key_mode":
		var mode public.KeyMode
		if mode, err = public.ParseKeyMode(value); err == nil {
			cfg.PublicKeyMode = string(mode)
		}
	case "public_acks":
		var n int
		if n, err = strconv.Atoi(value); err == nil {
			if n < -1 || n > 1 {
				err = errors.New("value must be -1, 0 or 1")
			}
			cfg.PublicAcks = n
		}
	case "public_partitioner":
		cfg.PublicPartitioner = strings.ToLower(value)
	case "intent_enabled":
		cfg.IntentEnabled, err = strconv.ParseBool(value)
	case "intent_topic":
		cfg.IntentTopic, err = nonEmpty(value)
	case "intent_group_id":
		cfg.IntentGroupID, err = nonEmpty(value)
	case "cb_enabled":
		cfg.Breaker.Enabled, err = strconv.ParseBool(value)
	case "cb_failure_threshold":
		cfg.Breaker.FailureThreshold, err = parsePositiveInt(value)
	case "cb_success_threshold":
		cfg.Breaker.SuccessThreshold, err = parsePositiveInt(value)
	case "cb_open_seconds":
		var f float64
		if f, err = strconv.ParseFloat(value, 64); err == nil {
			if f <= 0 {
				err = errors.New("value must be greater than zero")
			}
			cfg.Breaker.OpenSeconds = f
		}
	case "cb_timeout_ms":
		cfg.Breaker.TimeoutMS, err = parseNonNegativeInt(value)
	case "cb_backoff_ms":
		cfg.Breaker.BackoffMS, err = parseNonNegativeInt(value)
	case "mqtt_enabled":
		cfg.MQTTEnabled, err = strconv.ParseBool(value)
	case "mqtt_broker":
		cfg.MQTTBroker, err = nonEmpty(value)
	case "mqtt_topic":
		cfg.MQTTTopic, err = nonEmpty(value)
	case "mqtt_client_id":
		cfg.MQTTClientID, err = nonEmpty(value)
	case "mqtt_qos":
		var n int
		if n, err = parseNonNegativeInt(value); err == nil {
			if n > 2 {
				err = errors.New("value must be 0, 1 or 2")
			}
			cfg.MQTTQoS = n
		}
	default:
		// unknown keys are ignored
	}
	return err
}

func applyEnv(cfg *Config) error {
	for _, key := range propertyKeys {
		name := envPrefix + strings.ToUpper(key)
		v, ok := lookupEnvTrimmed(name)
		if !ok {
			continue
		}
		if err := setProperty(cfg, key, v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if _, ok := os.LookupEnv(envPrefix + "KAFKA_BROKERS"); !ok {
		if v, ok := lookupEnvTrimmed("KAFKA_BROKERS"); ok {
			if err := setProperty(cfg, "kafka_brokers", v); err != nil {
				return fmt.Errorf("KAFKA_BROKERS: %w", err)
			}
		}
	}
	return nil
}

func (c Config) validate() error {
	switch c.SignerMode {
	case signing.ModeShared:
	case signing.ModeEd25519:
		if len(c.SigningSecret) != 64 {
			return errors.New("signing_secret: ed25519 mode expects a 32-byte hex seed")
		}
	default:
		return fmt.Errorf("signer_mode: unsupported value %q", c.SignerMode)
	}
	switch public.Partitioner(c.PublicPartitioner) {
	case public.PartitionerHash, public.PartitionerRoundRobin:
	default:
		return fmt.Errorf("public_partitioner: unsupported value %q", c.PublicPartitioner)
	}
	if err := c.Breaker.Validate(); err != nil {
		return fmt.Errorf("cb: %w", err)
	}
	return nil
}

func lookupEnvTrimmed(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func nonEmpty(v string) (string, error) {
	if v == "" {
		return "", errors.New("value cannot be empty")
	}
	return v, nil
}

func splitAndTrim(raw string) []string {
	fields := strings.Split(raw, ",")
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		trimmed := strings.TrimSpace(field)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parsePositiveMillis(v string) (time.Duration, error) {
	ms, err := parsePositiveInt(v)
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func parsePositiveInt(v string) (int, error) {
	n, err := parseNonNegativeInt(v)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, errors.New("value must be greater than zero")
	}
	return n, nil
}

func parseNonNegativeInt(v string) (int, error) {
	if strings.TrimSpace(v) == "" {
		return 0, errors.New("value cannot be empty")
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %w", err)
	}
	if n < 0 {
		return 0, errors.New("value must not be negative")
	}
	return n, nil
}
