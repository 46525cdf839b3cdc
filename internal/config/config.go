package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all service configuration.
type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Services ServicesConfig
	Speech   SpeechConfig
	Database DatabaseConfig
	Voice    VoiceConfig

	// Headless disables host side effects: speech playback and browser launch.
	Headless bool
	// Timezone is used to answer time requests.
	Timezone string
	// Cities extends the weather gazetteer; empty uses the built-in list.
	Cities []string
}

type ServerConfig struct {
	Port            string
	Mode            string
	RateLimitPerMin int
	// AllowedOrigins lists CORS origins; empty allows any origin.
	AllowedOrigins []string
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

// ServicesConfig carries opaque credentials and call budgets for the
// external collaborators.
type ServicesConfig struct {
	WolframAppID    string
	OpenWeatherKey  string
	NewsAPIKey      string
	HTTPTimeout     time.Duration
	SearchTimeout   time.Duration
	LookupCacheSize int
	LookupCacheTTL  time.Duration
	BreakerFailures int
	BreakerReset    time.Duration
}

type SpeechConfig struct {
	Command string
	Queue   int
}

type DatabaseConfig struct {
	URL string
}

// VoiceConfig holds the telephony webhook settings. An empty AuthToken
// disables signature checks.
type VoiceConfig struct {
	AuthToken string
}

// Load reads an optional .env file, then environment variables and an
// optional config.yaml searched in ./config and the working directory.
// The returned bool is false when no .env file was found.
func Load() (*Config, bool, error) {
	envLoaded := godotenv.Load() == nil

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, envLoaded, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := fromViper(v)
	return cfg, envLoaded, err
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("gin_mode", "release")
	v.SetDefault("rate_limit_per_min", 100)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_encoding", "json")
	v.SetDefault("render", false)
	v.SetDefault("headless", false)
	v.SetDefault("timezone", "Asia/Kolkata")
	v.SetDefault("http_timeout", "10s")
	v.SetDefault("search_timeout", "5s")
	v.SetDefault("lookup_cache_size", 256)
	v.SetDefault("lookup_cache_ttl", "30m")
	v.SetDefault("breaker_failures", 5)
	v.SetDefault("breaker_reset", "1m")
	v.SetDefault("speech_command", "espeak-ng")
	v.SetDefault("speech_queue", 8)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("port"),
			Mode:            v.GetString("gin_mode"),
			RateLimitPerMin: v.GetInt("rate_limit_per_min"),
			AllowedOrigins:  stringList(v, "allowed_origins"),
		},
		Logger: LoggerConfig{
			Level:    v.GetString("log_level"),
			Encoding: v.GetString("log_encoding"),
		},
		Services: ServicesConfig{
			WolframAppID:    v.GetString("wolfram_app_id"),
			OpenWeatherKey:  v.GetString("openweather_key"),
			NewsAPIKey:      v.GetString("news_api_key"),
			HTTPTimeout:     v.GetDuration("http_timeout"),
			SearchTimeout:   v.GetDuration("search_timeout"),
			LookupCacheSize: v.GetInt("lookup_cache_size"),
			LookupCacheTTL:  v.GetDuration("lookup_cache_ttl"),
			BreakerFailures: v.GetInt("breaker_failures"),
			BreakerReset:    v.GetDuration("breaker_reset"),
		},
		Speech: SpeechConfig{
			Command: v.GetString("speech_command"),
			Queue:   v.GetInt("speech_queue"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("database_url"),
		},
		Voice: VoiceConfig{
			AuthToken: v.GetString("twilio_auth_token"),
		},
		// RENDER=true is the hosting platform's marker for a headless deploy.
		Headless: v.GetBool("headless") || v.GetBool("render"),
		Timezone: v.GetString("timezone"),
		Cities:   stringList(v, "cities"),
	}

	if cfg.Services.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("http_timeout must be positive, got %v", cfg.Services.HTTPTimeout)
	}
	if cfg.Services.SearchTimeout <= 0 {
		return nil, fmt.Errorf("search_timeout must be positive, got %v", cfg.Services.SearchTimeout)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	return cfg, nil
}

// stringList reads a YAML list or a comma separated environment value.
// City names contain spaces, so whitespace is not a separator.
func stringList(v *viper.Viper, key string) []string {
	raw, ok := v.Get(key).(string)
	if !ok {
		return v.GetStringSlice(key)
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
