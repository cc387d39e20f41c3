package config

const (
	defaultDataDir = "~/.local/share/slate"
	defaultLogDir  = "~/.local/share/slate/logs"

	defaultBufferTTLSeconds = 21600 // 6 h
	defaultBufferMaxBytes   = 10 * 1024 * 1024

	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "mistralai/mistral-small-3.2-24b-instruct"
	defaultLLMTimeoutSeconds = 60

	defaultSceneConcurrency    = 4
	defaultRetryAttempts       = 3
	defaultRetryBaseSeconds    = 1
	defaultRetryMaxSeconds     = 30
	defaultSceneTimeoutSeconds = 120

	defaultPDFMaxPages              = 500
	defaultParseStageTimeoutSeconds = 600

	defaultCallbackTimeoutSeconds = 30
	defaultReportRetentionHours   = 24

	defaultWorkers            = 2
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Buffer: Buffer{
			TTLSeconds: defaultBufferTTLSeconds,
			MaxBytes:   defaultBufferMaxBytes,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Title:          "Slate Script Check",
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Analysis: Analysis{
			SceneConcurrency:    defaultSceneConcurrency,
			RetryAttempts:       defaultRetryAttempts,
			RetryBaseSeconds:    defaultRetryBaseSeconds,
			RetryMaxSeconds:     defaultRetryMaxSeconds,
			SceneTimeoutSeconds: defaultSceneTimeoutSeconds,
		},
		Parsing: Parsing{
			PDFMaxPages:         defaultPDFMaxPages,
			StageTimeoutSeconds: defaultParseStageTimeoutSeconds,
		},
		Delivery: Delivery{
			CallbackTimeoutSeconds: defaultCallbackTimeoutSeconds,
			ReportRetentionHours:   defaultReportRetentionHours,
		},
		Workflow: Workflow{
			Workers:            defaultWorkers,
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
