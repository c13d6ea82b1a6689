package config

const (
	defaultDataDir          = "~/.local/share/quill"
	defaultLogDir           = "~/.local/share/quill/logs"
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultOpenAIModel      = "gpt-4o-2024-08-06"
	defaultOpenAITimeout    = 60
	defaultParallelRequests = 10
	defaultAnkiURL          = "http://127.0.0.1:8765"
	defaultAnkiDeck         = "Kindle Highlights"
	defaultAnkiBasicModel   = "Kindle_Smart_Basic"
	defaultAnkiClozeModel   = "Kindle_Smart_Cloze"
	defaultAnkiTimeout      = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		OpenAI: OpenAI{
			BaseURL:          defaultOpenAIBaseURL,
			Model:            defaultOpenAIModel,
			TimeoutSeconds:   defaultOpenAITimeout,
			ParallelRequests: defaultParallelRequests,
		},
		Anki: Anki{
			URL:            defaultAnkiURL,
			Deck:           defaultAnkiDeck,
			BasicModel:     defaultAnkiBasicModel,
			ClozeModel:     defaultAnkiClozeModel,
			TimeoutSeconds: defaultAnkiTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
