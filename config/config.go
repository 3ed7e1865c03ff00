package config

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/pitabwire/frame/config"
)

// CoreConfig holds configuration for the captioning pipeline.
type CoreConfig struct {
	config.ConfigurationDefault

	TranslationTimeoutSec float64 `envDefault:"10.0"  env:"LIVECAP_TRANSLATION_TIMEOUT"`
	ModelsDirPath         string  `envDefault:"./models" env:"LIVECAP_CORE_MODELS_DIR"`
	CacheDirPath          string  `envDefault:"./cache"  env:"LIVECAP_CORE_CACHE_DIR"`
	EngineStrongCache     bool    `envDefault:"false" env:"LIVECAP_ENGINE_STRONG_CACHE"`

	DeepgramAPIKey string `envDefault:"" env:"DEEPGRAM_API_KEY"`
	GoogleAPIKey   string `envDefault:"" env:"GOOGLE_API_KEY"`
}

// TranslationTimeout returns the per-translation deadline. A
// non-positive configured value falls back to the 10s default and logs a
// warning.
func (c *CoreConfig) TranslationTimeout() time.Duration {
	if c.TranslationTimeoutSec <= 0 {
		slog.Warn("config: non-positive LIVECAP_TRANSLATION_TIMEOUT, using default",
			"value", c.TranslationTimeoutSec, "default_sec", 10.0)
		return 10 * time.Second
	}
	return time.Duration(c.TranslationTimeoutSec * float64(time.Second))
}

// ModelsDir returns the absolute path to the configured model root.
func (c *CoreConfig) ModelsDir() (string, error) {
	return filepath.Abs(c.ModelsDirPath)
}

// CacheDir returns the absolute path to the configured cache root.
func (c *CoreConfig) CacheDir() (string, error) {
	return filepath.Abs(c.CacheDirPath)
}
