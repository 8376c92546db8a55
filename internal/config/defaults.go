package config

const (
	defaultDataDir                 = "~/.local/share/polyglot"
	defaultLogDir                  = "~/.local/share/polyglot/logs"
	defaultAPIBind                 = "127.0.0.1:7490"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultLogRetentionDays        = 30
	defaultLLMBaseURL              = "https://api.x.ai/v1/chat/completions"
	defaultLLMModel                = "grok-beta"
	defaultLLMTimeoutSeconds       = 120
	minLLMTimeoutSeconds           = 30
	maxLLMTimeoutSeconds           = 300
	defaultBatchSize               = 1
	maxBatchSize                   = 10
	defaultItemDelayMS             = 500
	maxItemDelayMS                 = 10000
	defaultLockTimeoutSeconds      = 300
	minLockTimeoutSeconds          = 30
	maxLockTimeoutSeconds          = 3600
	defaultScheduleIntervalSeconds = 60
	minScheduleIntervalSeconds     = 10
	maxScheduleIntervalSeconds     = 3600
	defaultNotifyRequestTimeout    = 10

	// DefaultSystemPrompt is the instruction sent ahead of every translation prompt.
	DefaultSystemPrompt = "You are a professional translator and content localizer. Translate and adapt the content while preserving HTML formatting and maintaining cultural relevance for the target audience."

	// DefaultPromptTemplate is rendered per job with {source_lang},
	// {target_lang}, and {content}.
	DefaultPromptTemplate = "Translate and localize the following content from {source_lang} to {target_lang}. Maintain the tone and style while adapting cultural references, idioms, and expressions to be appropriate for the target audience. Preserve all HTML formatting.\n\nContent to translate:\n{content}"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			SystemPrompt:   DefaultSystemPrompt,
		},
		Translation: Translation{
			PromptTemplate: DefaultPromptTemplate,
		},
		Queue: Queue{
			BatchSize:               defaultBatchSize,
			ItemDelayMS:             defaultItemDelayMS,
			LockTimeoutSeconds:      defaultLockTimeoutSeconds,
			ScheduleIntervalSeconds: defaultScheduleIntervalSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Completed:      true,
			Failed:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
