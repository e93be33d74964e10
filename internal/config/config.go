package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"

	"github.com/Mirai3103/remote-grader/internal/host"
	"github.com/Mirai3103/remote-grader/internal/logging"
)

// Config holds everything the grader binary reads at start-up.
type Config struct {
	Log  logging.Config `mapstructure:"log"`
	NATS NATSConfig     `mapstructure:"nats"`
	Host HostConfig     `mapstructure:"host"`

	// ConfigFile is the file viper read, empty when none was found.
	ConfigFile string `mapstructure:"-"`
}

// NATSConfig configures the serve mode transport.
type NATSConfig struct {
	URL               string `mapstructure:"url"`
	SubmissionSubject string `mapstructure:"submissionSubject"`
	ResultSubject     string `mapstructure:"resultSubject"`
	QueueGroup        string `mapstructure:"queueGroup"`
	MaxReconnects     int    `mapstructure:"maxReconnects"`
	ReconnectWaitSec  int    `mapstructure:"reconnectWaitSec"`
}

// HostConfig configures how worker processes are launched and bounded.
type HostConfig struct {
	// WorkerCommand is the worker argv; empty means this binary's "run".
	WorkerCommand     []string `mapstructure:"workerCommand"`
	MaxConcurrentJobs int      `mapstructure:"maxConcurrentJobs"`
	JobTimeoutSec     int      `mapstructure:"jobTimeoutSec"`
	host.Limits       `mapstructure:",squash"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.submissionSubject", "submission.created")
	v.SetDefault("nats.resultSubject", "submission.result")
	v.SetDefault("nats.queueGroup", "grader-group")
	v.SetDefault("nats.maxReconnects", 5)
	v.SetDefault("nats.reconnectWaitSec", 2)
	v.SetDefault("host.workerCommand", []string{})
	v.SetDefault("host.maxConcurrentJobs", 4)
	v.SetDefault("host.jobTimeoutSec", 60)
	v.SetDefault("host.timeLimitMs", 5000)
	v.SetDefault("host.memoryLimitKb", 256*1024)
	v.SetDefault("host.maxOutputKb", 1024)
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults are literals of the right types and always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// LoadConfig reads config.yaml from configPaths, ./configs, . and
// /etc/grader/, then applies GRADER_* environment overrides
// (GRADER_NATS_URL for nats.url).
func LoadConfig(configPaths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, path := range configPaths {
		if path != "" {
			v.AddConfigPath(path)
		}
	}
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/grader/")

	v.SetEnvPrefix("GRADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	return &cfg, nil
}
