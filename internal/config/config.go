package config

import "time"

// Config holds settings for the slacktail CLI.
type Config struct {
	Token       string        `mapstructure:"token" yaml:"token"`
	Translate   bool          `mapstructure:"translate" yaml:"translate"`
	EventTypes  []string      `mapstructure:"event_types" yaml:"event_types"`
	LogLevel    string        `mapstructure:"log_level" yaml:"log_level"`
	APIBaseURL  string        `mapstructure:"api_base_url" yaml:"api_base_url"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout" yaml:"http_timeout"`
}

// Default returns configuration with reasonable starter defaults.
// The token has no default; it must come from the config file, the
// SLACKSOCKET_TOKEN env var, or the --token flag.
func Default() Config {
	return Config{
		Translate:   true,
		LogLevel:    "info",
		APIBaseURL:  "https://slack.com/api",
		HTTPTimeout: 10 * time.Second,
	}
}
