package config

import "time"

const (
	DefaultLogLevel           = "info"
	DefaultBotName            = "WhatsDeX"
	DefaultPrefix             = `^[°•π÷×¶∆£¢€¥®™+✓_=|/~!?@#%^&.©^]`
	DefaultDisplayPrefix      = "."
	DefaultSuggestMaxDistance = 2
	DefaultHandlerTimeout     = 30 * time.Second
	DefaultMaxConcurrency     = 64
	DefaultBotMode            = "public"
	DefaultDBPath             = "whatsdex.db"
	DefaultSessionPath        = "session.db"
	DefaultSessionLogLevel    = "WARN"
	DefaultCooldown           = 10 * time.Second
	DefaultIdleTTL            = 10 * time.Minute
	DefaultMaxKeys            = 10000
	DefaultTimeZone           = "Asia/Jakarta"
	DefaultNightStart         = 0
	DefaultNightEnd           = 6
	DefaultMaxWarnings        = 3
	DefaultMaxTextLength      = 10000
	DefaultStartCoin          = 500
	DefaultGeminiModel        = "gemini-2.0-flash"
	DefaultGeminiTemperature  = 0.2
	DefaultGeminiRetries      = 2
	DefaultGeminiRetryDelay   = 2
)

// DefaultMessages are the built-in user-facing texts.
var DefaultMessages = MessagesConfig{
	Admin:        "⛔ This command can only be accessed by group admins!",
	BotAdmin:     "⛔ The bot must be a group admin to run this command!",
	Coin:         "⛔ You don't have enough coins to use this command!",
	Group:        "⛔ This command can only be used in groups!",
	Owner:        "⛔ This command can only be accessed by the owner!",
	Premium:      "⛔ This command can only be accessed by premium users!",
	Private:      "⛔ This command can only be used in private chat!",
	Restrict:     "⛔ This command is restricted for security reasons!",
	Cooldown:     "🔄 This command is on cooldown, please wait...",
	Banned:       "⛔ You are banned and cannot use the bot.",
	GeneralError: "⚠️ An error occurred. Please try again later.",
	Unknown:      "🤔 Sorry, I don't understand. Send a command to see what I can do.",
	Suggestion:   "❓ Did you mean %s%s?",
	Greeting:     "👋 Hello %s! How can I help you?",
	Farewell:     "👋 Goodbye %s, see you soon!",
	Question:     "💬 Good question! Try the menu command to see what I can answer.",
	AntiLink:     "⛔ Links are not allowed here. Warning %d/%d.",
	AntiMedia:    "⛔ %s messages are not allowed here. Warning %d/%d.",
	Kicked:       "👢 %s was removed for breaking the group rules.",
	Malicious:    "🚨 Malicious content detected. You have been banned.",
}

// DefaultTasks are the scheduled tasks known to the bot.
var DefaultTasks = map[string]TaskConfig{
	"sql_maintenance": {Enabled: true, Schedule: "0 0 4 * * *"},
	"cooldown_sweep":  {Enabled: true, Schedule: "0 */5 * * * *"},
	"premium_expiry":  {Enabled: true, Schedule: "0 * * * * *"},
}

// Default returns a configuration populated with the built-in defaults and
// the given owners, without reading any file or environment.
func Default(owners ...string) *Config {
	tasks := make(map[string]TaskConfig, len(DefaultTasks))
	for k, v := range DefaultTasks {
		tasks[k] = v
	}
	return &Config{
		Log: LogConfig{Level: DefaultLogLevel},
		Bot: BotConfig{
			Name:               DefaultBotName,
			Prefix:             DefaultPrefix,
			DisplayPrefix:      DefaultDisplayPrefix,
			SuggestMaxDistance: DefaultSuggestMaxDistance,
			HandlerTimeout:     DefaultHandlerTimeout,
			MaxConcurrency:     DefaultMaxConcurrency,
			Mode:               DefaultBotMode,
		},
		Owner:     OwnerConfig{IDs: owners, ReportErrors: true},
		Database:  DatabaseConfig{Path: DefaultDBPath},
		Session:   SessionConfig{Path: DefaultSessionPath, LogLevel: DefaultSessionLogLevel},
		RateLimit: RateLimitConfig{Cooldown: DefaultCooldown, IdleTTL: DefaultIdleTTL, MaxKeys: DefaultMaxKeys},
		NightMode: NightModeConfig{TimeZone: DefaultTimeZone, StartHour: DefaultNightStart, EndHour: DefaultNightEnd},
		Moderation: ModerationConfig{
			MaxWarnings:   DefaultMaxWarnings,
			Malicious:     true,
			MaxTextLength: DefaultMaxTextLength,
		},
		Economy: EconomyConfig{UseCoin: true, StartCoin: DefaultStartCoin},
		Intent:  IntentConfig{Enabled: true},
		Gemini: GeminiConfig{
			ModelName:         DefaultGeminiModel,
			Temperature:       DefaultGeminiTemperature,
			MaxRetries:        DefaultGeminiRetries,
			RetryDelaySeconds: DefaultGeminiRetryDelay,
		},
		Scheduler: SchedulerConfig{Tasks: tasks},
		Messages:  DefaultMessages,
	}
}
