package providers

import (
	"dsd/internal/structures"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("backend.url", "DSD_BACKEND_URL")
	viper.BindEnv("backend.apiKey", "DSD_BACKEND_API_KEY")
	viper.BindEnv("logger.level", "DSD_LOG_LEVEL")
	viper.BindEnv("persistence.saveInterval", "DSD_SAVE_INTERVAL")
	viper.BindEnv("cache.enabled", "DSD_CACHE_ENABLED")
	viper.BindEnv("cache.size", "DSD_CACHE_SIZE")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	if conf.Backend.JobPollInterval == 0 {
		conf.Backend.JobPollInterval = time.Second
	}
	if conf.Sync.DefaultMaxAge == 0 {
		conf.Sync.DefaultMaxAge = -1
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "DashboardSyncDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
