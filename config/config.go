package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/shutter-network/receipt-watcher/receipts"
)

type Config struct {
	Mode               string
	PrivateKey         string
	NodeURL            string
	WalletURL          string
	ChainID            uint64
	ChiadoURL          string
	ChiadoSendInterval time.Duration
	GnosisURL          string
	GnosisSendInterval time.Duration
	Timeout            time.Duration
	PollInterval       time.Duration
	TestDuration       time.Duration
	Concurrency        int
	LogLevel           string
	LogDir             string
	DB                 DBConfig
}

// DBConfig locates the Postgres database terminal results are written to.
type DBConfig struct {
	User    string
	Pass    string
	Address string
	Name    string
}

// Enabled reports whether enough is configured to open a connection.
func (c DBConfig) Enabled() bool {
	return c.Address != "" && c.Name != ""
}

func (c DBConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", c.User, c.Pass, c.Address, c.Name)
}

// LoadConfig reads .env files (when present) and then the environment.
// Variables already set in the environment win over the files.
func LoadConfig(files ...string) Config {
	err := godotenv.Load(files...)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("error loading .env file")
	}

	return Config{
		Mode:               os.Getenv("MODE"),
		PrivateKey:         os.Getenv("PRIVATE_KEY"),
		NodeURL:            os.Getenv("NODE_URL"),
		WalletURL:          os.Getenv("WALLET_RPC_URL"),
		ChainID:            uint64(GetEnvAsInt("CHAIN_ID", 0)),
		ChiadoURL:          os.Getenv("CHIADO_URL"),
		ChiadoSendInterval: time.Duration(GetEnvAsInt("CHIADO_SEND_INTERVAL", 60)) * time.Second,
		GnosisURL:          os.Getenv("GNOSIS_URL"),
		GnosisSendInterval: time.Duration(GetEnvAsInt("GNOSIS_SEND_INTERVAL", 600)) * time.Second,
		Timeout:            time.Duration(GetEnvAsInt("WAIT_TX_TIMEOUT", int(receipts.DefaultTimeout/time.Second))) * time.Second,
		PollInterval:       time.Duration(GetEnvAsInt("POLL_INTERVAL_MS", int(receipts.DefaultPollInterval/time.Millisecond))) * time.Millisecond,
		TestDuration:       time.Duration(GetEnvAsInt("TEST_DURATION", 600)) * time.Second,
		Concurrency:        GetEnvAsInt("CONCURRENCY", 8),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogDir:             os.Getenv("LOG_DIR"),
		DB: DBConfig{
			User:    os.Getenv("DB_USER"),
			Pass:    os.Getenv("DB_PASS"),
			Address: os.Getenv("DB_ADDRESS"),
			Name:    os.Getenv("DB_NAME"),
		},
	}
}

// GetEnvAsInt returns defaultVal when name is unset, negative or not a number.
func GetEnvAsInt(name string, defaultVal int) int {
	valueStr := os.Getenv(name)
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil || value < 0 {
		log.Warn().Err(err).Str("name", name).Str("value", valueStr).Int("default", defaultVal).Msg("invalid integer in environment, using default")
		return defaultVal
	}
	return value
}

func getEnv(name, defaultVal string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return defaultVal
}
