package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. WHATSDEX_BOT_PREFIX.
const EnvPrefix = "WHATSDEX"

// Load loads and validates configuration from:
// 1. Default values
// 2. the config file at path (optional; empty means ./config.yaml)
// 3. a .env file in the working directory (optional)
// 4. WHATSDEX_* environment variables
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: failed to load .env: %v", ErrConfiguration, err)
	}

	v := viper.New()
	setDefaults(v)

	if err := loadConfig(v, path); err != nil {
		return nil, fmt.Errorf("%w: failed to load config file: %v", ErrConfiguration, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}
	// Comma separated owner lists are common in env files.
	cfg.Owner.IDs = splitList(strings.Join(cfg.Owner.IDs, ","))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return cfg, nil
}

// loadConfig points viper at the config file and the environment.
func loadConfig(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", false)

	v.SetDefault("bot.name", DefaultBotName)
	v.SetDefault("bot.prefix", DefaultPrefix)
	v.SetDefault("bot.display_prefix", DefaultDisplayPrefix)
	v.SetDefault("bot.case_sensitive", false)
	v.SetDefault("bot.suggest_max_distance", DefaultSuggestMaxDistance)
	v.SetDefault("bot.handler_timeout", DefaultHandlerTimeout)
	v.SetDefault("bot.max_concurrency", DefaultMaxConcurrency)
	v.SetDefault("bot.restrict", false)
	v.SetDefault("bot.mode", DefaultBotMode)

	v.SetDefault("owner.ids", []string{})
	v.SetDefault("owner.report_errors", true)

	v.SetDefault("database.path", DefaultDBPath)
	v.SetDefault("session.path", DefaultSessionPath)
	v.SetDefault("session.log_level", DefaultSessionLogLevel)

	v.SetDefault("rate_limit.cooldown", DefaultCooldown)
	v.SetDefault("rate_limit.idle_ttl", DefaultIdleTTL)
	v.SetDefault("rate_limit.max_keys", DefaultMaxKeys)

	v.SetDefault("night_mode.enabled", false)
	v.SetDefault("night_mode.time_zone", DefaultTimeZone)
	v.SetDefault("night_mode.start_hour", DefaultNightStart)
	v.SetDefault("night_mode.end_hour", DefaultNightEnd)

	v.SetDefault("moderation.max_warnings", DefaultMaxWarnings)
	v.SetDefault("moderation.malicious", true)
	v.SetDefault("moderation.max_text_length", DefaultMaxTextLength)

	v.SetDefault("economy.use_coin", true)
	v.SetDefault("economy.start_coin", DefaultStartCoin)

	v.SetDefault("intent.enabled", true)
	v.SetDefault("intent.groups", false)

	v.SetDefault("gemini.enabled", false)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", DefaultGeminiModel)
	v.SetDefault("gemini.temperature", DefaultGeminiTemperature)
	v.SetDefault("gemini.max_retries", DefaultGeminiRetries)
	v.SetDefault("gemini.retry_delay_seconds", DefaultGeminiRetryDelay)
	v.SetDefault("gemini.safety", false)

	for name, task := range DefaultTasks {
		v.SetDefault("scheduler.tasks."+name+".enabled", task.Enabled)
		v.SetDefault("scheduler.tasks."+name+".schedule", task.Schedule)
	}

	m := DefaultMessages
	for key, val := range map[string]string{
		"admin": m.Admin, "bot_admin": m.BotAdmin, "coin": m.Coin, "group": m.Group,
		"owner": m.Owner, "premium": m.Premium, "private": m.Private, "restrict": m.Restrict,
		"cooldown": m.Cooldown, "banned": m.Banned, "general_error": m.GeneralError,
		"unknown": m.Unknown, "suggestion": m.Suggestion, "greeting": m.Greeting,
		"farewell": m.Farewell, "question": m.Question, "anti_link": m.AntiLink,
		"anti_media": m.AntiMedia, "kicked": m.Kicked, "malicious": m.Malicious,
	} {
		v.SetDefault("messages."+key, val)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
