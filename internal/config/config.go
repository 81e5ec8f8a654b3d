package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	STT       BackendConfig   `mapstructure:"stt"`
	TTS       BackendConfig   `mapstructure:"tts"`
	Dialogue  DialogueConfig  `mapstructure:"dialogue"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type PipelineConfig struct {
	Workers            int           `mapstructure:"workers"`
	SampleRate         int           `mapstructure:"sample_rate"`
	FetchTimeout       time.Duration `mapstructure:"fetch_timeout"`
	SessionPersistence bool          `mapstructure:"session_persistence"`
	EmitTranscript     bool          `mapstructure:"emit_transcript"`
}

type ArtifactsConfig struct {
	Dir     string        `mapstructure:"dir"`
	BaseURL string        `mapstructure:"base_url"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type BackendConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type DialogueConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Channel  string        `mapstructure:"channel"`
}

type RateLimitConfig struct {
	Burst    int           `mapstructure:"burst"`
	Interval time.Duration `mapstructure:"interval"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 5005)
	// inline base64 clips are large, a plain chat read limit won't do
	v.SetDefault("read_limit", 16<<20)
	v.SetDefault("ping_period", "54s")

	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.sample_rate", 16000)
	v.SetDefault("pipeline.fetch_timeout", "15s")
	v.SetDefault("pipeline.session_persistence", true)
	v.SetDefault("pipeline.emit_transcript", true)

	v.SetDefault("artifacts.dir", "./artifacts")
	v.SetDefault("artifacts.base_url", "http://localhost:5005/audio/")
	// zero keeps every artifact, the original behavior
	v.SetDefault("artifacts.ttl", "0s")

	v.SetDefault("stt.endpoint", "http://localhost:8800/transcribe")
	v.SetDefault("stt.timeout", "60s")
	v.SetDefault("tts.endpoint", "http://localhost:8801/synthesize")
	v.SetDefault("tts.timeout", "60s")

	v.SetDefault("dialogue.endpoint", "http://localhost:5055/webhook")
	v.SetDefault("dialogue.timeout", "30s")
	v.SetDefault("dialogue.channel", "voice")

	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("rate_limit.interval", "10s")
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("config: pipeline.workers must be positive")
	}
	if c.Pipeline.SampleRate <= 0 {
		return fmt.Errorf("config: pipeline.sample_rate must be positive")
	}
	if c.Pipeline.FetchTimeout <= 0 {
		return fmt.Errorf("config: pipeline.fetch_timeout must be positive")
	}
	if c.Artifacts.Dir == "" {
		return fmt.Errorf("config: artifacts.dir must be set")
	}
	if c.Artifacts.BaseURL == "" {
		return fmt.Errorf("config: artifacts.base_url must be set")
	}
	if c.STT.Endpoint == "" || c.TTS.Endpoint == "" {
		return fmt.Errorf("config: stt and tts endpoints must be set")
	}
	if c.Dialogue.Endpoint == "" {
		return fmt.Errorf("config: dialogue.endpoint must be set")
	}
	return nil
}
