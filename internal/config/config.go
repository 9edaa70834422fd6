package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	ServiceName string
	DatabaseURL string
	RedisURL    string
	Symbol      string
	APIKey      string

	SSHPort        int
	SSHHostKeyPath string

	TelegramBotToken string

	OpenAIAPIKey      string
	OpenAIModel       string
	AdvisorMaxHistory int

	FastWindow          int
	SlowWindow          int
	CusumThreshold      float64
	VolLookback         int
	VerticalBarrierDays int
	ProfitTake          float64
	StopLoss            float64
	MinRet              float64
	NumWorkers          int

	NumEstimators      int
	StandardEstimators int
	MaxFeatures        float64

	TrainWindowDays int
	MinTrainSamples int
	TrainHourUTC    int
	InferPollSecs   int
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set")
	}

	cfg.ServiceName = strings.TrimSpace(os.Getenv("SERVICE_NAME"))
	if cfg.ServiceName == "" {
		cfg.ServiceName = "sequoia"
	}

	cfg.Symbol = strings.TrimSpace(os.Getenv("SYMBOL"))
	if cfg.Symbol == "" {
		cfg.Symbol = "SPX"
	}

	cfg.APIKey = os.Getenv("API_KEY")
	if cfg.APIKey == "" {
		log.Println("Warning: API_KEY not set, write endpoints are unprotected")
	}

	cfg.SSHPort = envInt("SSH_PORT", 2222)
	cfg.SSHHostKeyPath = strings.TrimSpace(os.Getenv("SSH_HOST_KEY_PATH"))
	if cfg.SSHHostKeyPath == "" {
		cfg.SSHHostKeyPath = ".ssh/sequoia_ed25519"
	}

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.OpenAIAPIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set, advisor will be disabled")
	}
	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}
	cfg.AdvisorMaxHistory = envInt("ADVISOR_MAX_HISTORY", 20)

	cfg.FastWindow = envInt("FAST_WINDOW", 20)
	cfg.SlowWindow = envInt("SLOW_WINDOW", 50)
	cfg.CusumThreshold = envFloat("CUSUM_THRESHOLD", 0.001)
	cfg.VolLookback = envInt("VOL_LOOKBACK", 50)
	cfg.VerticalBarrierDays = envInt("VERTICAL_BARRIER_DAYS", 2)
	cfg.ProfitTake = envFloat("PROFIT_TAKE", 4)
	cfg.StopLoss = envFloat("STOP_LOSS", 4)
	cfg.MinRet = envFloat("MIN_RET", 0.005)
	cfg.NumWorkers = envInt("NUM_WORKERS", 3)

	cfg.NumEstimators = envInt("N_ESTIMATORS", 100)
	cfg.StandardEstimators = envInt("STANDARD_ESTIMATORS", 50)
	cfg.MaxFeatures = envFloat("MAX_FEATURES", 1)

	cfg.TrainWindowDays = envInt("TRAIN_WINDOW_DAYS", 365)
	cfg.MinTrainSamples = envInt("MIN_TRAIN_SAMPLES", 100)
	cfg.TrainHourUTC = 0
	if v := strings.TrimSpace(os.Getenv("TRAIN_HOUR_UTC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 23 {
			cfg.TrainHourUTC = n
		}
	}
	cfg.InferPollSecs = envInt("INFER_POLL_SECS", 900)

	return cfg
}

func envInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
