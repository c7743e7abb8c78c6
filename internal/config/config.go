package config

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		TelegramAPIToken string `env:"TOKEN,required"`
		SecretToken      string `env:"SECRET_TOKEN,required"`
		DefaultLanguage  string `env:"LANG,default=ru"`
		LogLevel         int    `env:"LOG_LEVEL,default=4"`
		DotPath          string `env:"DOT_PATH,default=~/.snitchbot"`
		ListenAddr       string `env:"LISTEN_ADDR,default=:8080"`
		MetricsAddr      string `env:"METRICS_ADDR,default=:2112"`
		Season           string `env:"SEASON,default=s1"`

		LLM      LLM
		Analysis Analysis
	}

	LLM struct {
		APIKey  string `env:"LLM_API_KEY,required"`
		Model   string `env:"LLM_API_MODEL,default=gpt-4o-mini"`
		BaseURL string `env:"LLM_API_URL,default=https://api.openai.com/v1"`
		Type    string `env:"LLM_API_TYPE,default=openai"`
	}

	Analysis struct {
		TimezoneOffsetHours int           `env:"TZ_OFFSET_HOURS,default=3"`
		CutoffHour          int           `env:"CUTOFF_HOUR,default=6"`
		LockTTL             time.Duration `env:"LOCK_TTL,default=5m"`
		DisputeWindow       time.Duration `env:"DISPUTE_WINDOW,default=24h"`
		DecayWindowDays     int           `env:"DECAY_WINDOW_DAYS,default=7"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg := &Config{}
		envcfg := envconfig.Config{
			Lookuper: envconfig.PrefixLookuper("SNITCH_", envconfig.OsLookuper()),
			Target:   cfg,
		}
		if err := envconfig.ProcessWith(context.Background(), &envcfg); err != nil {
			globalErr = fmt.Errorf("process env config: %w", err)
			return
		}
		if strings.HasPrefix(cfg.DotPath, "~") {
			expanded, err := homedir.Expand(cfg.DotPath)
			if err != nil {
				globalErr = fmt.Errorf("expand dot path: %w", err)
				return
			}
			cfg.DotPath = expanded
		}
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
