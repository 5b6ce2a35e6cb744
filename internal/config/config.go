// Package config provides configuration loading, validation, and defaults
// for WhatsDeX. Values come from defaults, an optional config.yaml, a .env
// file and WHATSDEX_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrConfiguration wraps every load or validation failure.
var ErrConfiguration = errors.New("configuration error")

// Config defines the application configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Bot        BotConfig        `mapstructure:"bot"`
	Owner      OwnerConfig      `mapstructure:"owner"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Session    SessionConfig    `mapstructure:"session"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	NightMode  NightModeConfig  `mapstructure:"night_mode"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Economy    EconomyConfig    `mapstructure:"economy"`
	Intent     IntentConfig     `mapstructure:"intent"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Messages   MessagesConfig   `mapstructure:"messages"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// BotConfig controls parsing and dispatch.
type BotConfig struct {
	Name   string `mapstructure:"name"                 validate:"required"`
	Prefix string `mapstructure:"prefix"               validate:"required"`
	// DisplayPrefix is shown in menus and suggestions.
	DisplayPrefix      string        `mapstructure:"display_prefix"       validate:"required"`
	CaseSensitive      bool          `mapstructure:"case_sensitive"`
	SuggestMaxDistance int           `mapstructure:"suggest_max_distance" validate:"min=1,max=5"`
	HandlerTimeout     time.Duration `mapstructure:"handler_timeout"      validate:"min=1s,max=10m"`
	MaxConcurrency     int           `mapstructure:"max_concurrency"      validate:"min=1,max=1024"`
	// Restrict turns on the restrict permission for every command that declares it.
	Restrict bool `mapstructure:"restrict"`
	// Mode is the initial bot mode when none is stored.
	Mode string `mapstructure:"mode" validate:"oneof=public group private self"`
}

type OwnerConfig struct {
	// IDs are bare phone numbers or user identifiers, without the server part.
	IDs          []string `mapstructure:"ids"           validate:"required,min=1,dive,required"`
	ReportErrors bool     `mapstructure:"report_errors"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// SessionConfig locates the WhatsApp device store.
type SessionConfig struct {
	Path     string `mapstructure:"path"      validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"oneof=DEBUG INFO WARN ERROR"`
}

type RateLimitConfig struct {
	Cooldown time.Duration `mapstructure:"cooldown"  validate:"min=0"`
	IdleTTL  time.Duration `mapstructure:"idle_ttl"  validate:"min=1s"`
	MaxKeys  int           `mapstructure:"max_keys"  validate:"min=1"`
}

type NightModeConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	TimeZone  string `mapstructure:"time_zone"  validate:"required,timezone"`
	StartHour int    `mapstructure:"start_hour" validate:"min=0,max=23"`
	EndHour   int    `mapstructure:"end_hour"   validate:"min=0,max=24"`
}

type ModerationConfig struct {
	MaxWarnings int `mapstructure:"max_warnings" validate:"min=1,max=100"`
	// Malicious enables the content-safety guard.
	Malicious bool `mapstructure:"malicious"`
	// MaxTextLength is the rule analyzer's flood threshold.
	MaxTextLength int `mapstructure:"max_text_length" validate:"min=100"`
}

type EconomyConfig struct {
	UseCoin   bool  `mapstructure:"use_coin"`
	StartCoin int64 `mapstructure:"start_coin" validate:"min=0"`
}

type IntentConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Groups lets the router answer in group chats too.
	Groups bool `mapstructure:"groups"`
}

type GeminiConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	APIKey            string  `mapstructure:"api_key"             validate:"required_if=Enabled true,required_if=Safety true"`
	ModelName         string  `mapstructure:"model_name"          validate:"required"`
	Temperature       float32 `mapstructure:"temperature"         validate:"min=0,max=2"`
	MaxRetries        int     `mapstructure:"max_retries"         validate:"min=0,max=10"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"min=0,max=60"`
	// Safety routes the content-safety guard through Gemini.
	Safety bool `mapstructure:"safety"`
}

type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// MessagesConfig holds every user-facing text.
type MessagesConfig struct {
	Admin        string `mapstructure:"admin"`
	BotAdmin     string `mapstructure:"bot_admin"`
	Coin         string `mapstructure:"coin"`
	Group        string `mapstructure:"group"`
	Owner        string `mapstructure:"owner"`
	Premium      string `mapstructure:"premium"`
	Private      string `mapstructure:"private"`
	Restrict     string `mapstructure:"restrict"`
	Cooldown     string `mapstructure:"cooldown"`
	Banned       string `mapstructure:"banned"`
	GeneralError string `mapstructure:"general_error"`
	Unknown      string `mapstructure:"unknown"`
	Suggestion   string `mapstructure:"suggestion"`
	Greeting     string `mapstructure:"greeting"`
	Farewell     string `mapstructure:"farewell"`
	Question     string `mapstructure:"question"`
	AntiLink     string `mapstructure:"anti_link"`
	AntiMedia    string `mapstructure:"anti_media"`
	Kicked       string `mapstructure:"kicked"`
	Malicious    string `mapstructure:"malicious"`
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if _, err := regexp.Compile(c.Bot.Prefix); err != nil {
		return fmt.Errorf("bot.prefix is not a valid regular expression: %w", err)
	}
	if c.NightMode.Enabled && c.NightMode.StartHour == c.NightMode.EndHour {
		return fmt.Errorf("night_mode start_hour and end_hour must differ")
	}
	return nil
}

// Location returns the night-mode time zone.
func (c NightModeConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsOwner reports whether id (bare, without server) is a configured owner.
func (c OwnerConfig) IsOwner(id string) bool {
	for _, o := range c.IDs {
		if o == id {
			return true
		}
	}
	return false
}
