package config

import (
	"strings"
)

type Config struct {
	Server  ServerConfig
	Groq    GroqConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host    string
	Port    int
	MCPPort int
	Token   string
	// CORSOrigins is a comma-separated browser origin allowlist. Empty
	// keeps the server's built-in localhost defaults.
	CORSOrigins string
}

// CORSOriginList splits CORSOrigins on commas, trimming whitespace and
// dropping empty entries. Nil when the key is unset.
func (s ServerConfig) CORSOriginList() []string {
	var out []string
	for _, o := range strings.Split(s.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

type GroqConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8000,
			MCPPort: 8001,
		},
		Groq: GroqConfig{
			BaseURL:        "https://api.groq.com/openai/v1",
			Model:          "llama-3.3-70b-versatile",
			TimeoutSeconds: 30,
		},
		Storage: StorageConfig{
			DataDir: dataDir,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.plainsight.app) and
// the Groq credential falls back to macOS Keychain.
// On Linux the backend is a JSON file at
// $XDG_CONFIG_HOME/plainsight/config.json and secrets come from
// environment variables or the secrets file next to the data dir.
//
// Environment variables (PLAINSIGHT_*, plus GROQ_API_KEY) override
// backend values on all platforms. A missing Groq key is not an error:
// the service runs rule-based without it.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret-store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Try the platform secret store for the Groq key if still empty.
	if cfg.Groq.APIKey == "" {
		if key, err := kc.Get("plainsight", "groq_api_key"); err == nil && key != "" {
			cfg.Groq.APIKey = key
		}
	}

	return cfg, nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
