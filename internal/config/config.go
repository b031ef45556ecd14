package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	OCR       OCRConfig       `mapstructure:"ocr"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Debug     bool            `mapstructure:"debug"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	BodyLimit    int           `mapstructure:"body_limit"`
}

// OCRConfig contains document processing settings
type OCRConfig struct {
	RasterDPI    int      `mapstructure:"raster_dpi"`
	MaxDocBytes  int64    `mapstructure:"max_doc_bytes"`
	Languages    []string `mapstructure:"languages"`
	MaxBenchmark int      `mapstructure:"max_benchmark_providers"`
}

// ProvidersConfig contains system-held credentials for hosted OCR providers.
// An empty key means the provider has no system-side availability and callers
// must bring their own key.
type ProvidersConfig struct {
	TesseractEnabled bool   `mapstructure:"tesseract_enabled"`
	OpenAIAPIKey     string `mapstructure:"openai_api_key"`
	OpenAIModel      string `mapstructure:"openai_model"`
	OpenAIBaseURL    string `mapstructure:"openai_base_url"`
	AzureAPIKey      string `mapstructure:"azure_api_key"`
	AzureEndpoint    string `mapstructure:"azure_endpoint"`
	GoogleAPIKey     string `mapstructure:"google_api_key"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	viper.SetConfigName("pagelens")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/pagelens")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PAGELENS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Info().Msg("No config file found, using environment variables and defaults")
	} else {
		log.Info().Str("file", viper.ConfigFileUsed()).Msg("Config file loaded")
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads environment variables from .env file
func loadEnvFile() error {
	locations := []string{
		".env",
		".env.local",
		"../.env",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			if err := godotenv.Load(location); err != nil {
				return fmt.Errorf("error loading .env file from %s: %w", location, err)
			}
			log.Info().Str("file", location).Msg(".env file loaded")
			return nil
		}
	}

	return fmt.Errorf("no .env file found")
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "300s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.body_limit", 12*1024*1024) // multipart overhead on top of the 10MiB document cap

	// OCR defaults
	viper.SetDefault("ocr.raster_dpi", 300)
	viper.SetDefault("ocr.max_doc_bytes", 10*1024*1024)
	viper.SetDefault("ocr.languages", []string{"eng"})
	viper.SetDefault("ocr.max_benchmark_providers", 4)

	// Provider defaults
	viper.SetDefault("providers.tesseract_enabled", true)
	viper.SetDefault("providers.openai_model", "gpt-4o")
	viper.SetDefault("providers.openai_base_url", "https://api.openai.com/v1")

	viper.SetDefault("debug", false)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.OCR.RasterDPI < 72 || c.OCR.RasterDPI > 1200 {
		return fmt.Errorf("ocr.raster_dpi must be between 72 and 1200, got %d", c.OCR.RasterDPI)
	}

	if c.OCR.MaxDocBytes <= 0 {
		return fmt.Errorf("ocr.max_doc_bytes must be positive")
	}

	if c.OCR.MaxBenchmark < 1 {
		return fmt.Errorf("ocr.max_benchmark_providers must be at least 1")
	}

	if c.Server.BodyLimit < int(c.OCR.MaxDocBytes) {
		return fmt.Errorf("server.body_limit (%d) must not be smaller than ocr.max_doc_bytes (%d)",
			c.Server.BodyLimit, c.OCR.MaxDocBytes)
	}

	if c.Providers.AzureAPIKey != "" && c.Providers.AzureEndpoint == "" {
		return fmt.Errorf("providers.azure_endpoint is required when providers.azure_api_key is set")
	}

	return nil
}
