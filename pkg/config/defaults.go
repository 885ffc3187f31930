package config

const (
	defaultCalendarEndpoint = "https://apis.tianapi.com/lunar/index"
	defaultCalendarTimeout  = 15

	defaultChatEndpoint     = "https://api.siliconflow.cn/v1/chat/completions"
	defaultChatBackend      = "sse"
	defaultChatModel        = "Pro/deepseek-ai/DeepSeek-R1"
	defaultChatMindmapModel = "Pro/deepseek-ai/DeepSeek-V3"
	defaultChatTemperature  = 0.7
	defaultChatTimeout      = 60

	defaultAPIListen = ":8090"

	defaultLogLevel = "info"

	defaultStorageDriver = "sqlite"
	defaultSQLiteFile    = "readings.sqlite"

	defaultEventsTopic = "bazi.readings"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
//
// The SQLite path is left empty; callers resolve it against the .bazi/
// directory with SQLitePath.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Calendar: CalendarConfig{
			Endpoint:       defaultCalendarEndpoint,
			TimeoutSeconds: defaultCalendarTimeout,
		},
		Chat: ChatConfig{
			Endpoint:       defaultChatEndpoint,
			Backend:        defaultChatBackend,
			Model:          defaultChatModel,
			MindmapModel:   defaultChatMindmapModel,
			Temperature:    defaultChatTemperature,
			TimeoutSeconds: defaultChatTimeout,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Log: LogConfig{
			Level: defaultLogLevel,
		},
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		Events: EventsConfig{
			Topic: defaultEventsTopic,
		},
	}
}
