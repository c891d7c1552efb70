package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is built once at process start and passed by value to every constructor.
type Config struct {
	App      AppConfig
	Log      LogConfig
	Subgraph SubgraphConfig
	RPC      RPCConfig
	Redis    RedisConfig
	Credits  CreditsConfig
}

type AppConfig struct {
	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	Addr           string        `envconfig:"ADDR" default:":3001"`
	ExpiredTTL     time.Duration `envconfig:"EXPIRED_CACHE_TTL" default:"10m"`
	ExpiredEntries int           `envconfig:"EXPIRED_CACHE_SIZE" default:"16"`
}

type LogConfig struct {
	Level    string `envconfig:"LOG_LEVEL" default:"debug"`
	Encoding string `envconfig:"LOG_ENCODING" default:"json"`
}

type SubgraphConfig struct {
	EthereumURL string        `envconfig:"ETHEREUM_SUBGRAPH_URL" default:"https://api.studio.thegraph.com/query/90401/poh-origin-mainnet/version/latest"`
	GnosisURL   string        `envconfig:"GNOSIS_SUBGRAPH_URL" default:"https://api.studio.thegraph.com/query/90401/poh-origin-gnosis/version/latest"`
	Timeout     time.Duration `envconfig:"SUBGRAPH_TIMEOUT" default:"30s"`
}

type RPCConfig struct {
	GnosisURL string `envconfig:"GNOSIS_RPC_URL" default:"https://rpc.gnosischain.com"`
}

type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     string `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type CreditsConfig struct {
	TokenAddress    string        `envconfig:"CREDITS_TOKEN_ADDRESS" default:"0xEDd48e43EBd4E2b31238a5CBA8FD548fC051aCAF"`
	ManagerAddress  string        `envconfig:"CREDITS_MANAGER_ADDRESS" default:"0xB29D0C9875D93483891c0645fdC13D665a4d2D70"`
	DeploymentBlock uint64        `envconfig:"CREDITS_DEPLOYMENT_BLOCK" default:"42439736"`
	ChunkSize       uint64        `envconfig:"CREDITS_CHUNK_SIZE" default:"75000"`
	TxBatchSize     int           `envconfig:"CREDITS_TX_BATCH_SIZE" default:"50"`
	IdentityBatch   int           `envconfig:"CREDITS_IDENTITY_BATCH_SIZE" default:"1000"`
	CacheKey        string        `envconfig:"CREDITS_CACHE_KEY" default:"seer-credits-stats:gnosis-poh-active"`
	CacheTTL        time.Duration `envconfig:"CREDITS_CACHE_TTL" default:"5m"`
	RefreshCron     string        `envconfig:"CREDITS_REFRESH_CRON" default:"0 */5 * * * *"`
	RefreshTimeout  time.Duration `envconfig:"CREDITS_REFRESH_TIMEOUT" default:"15m"`
}

// Load reads an optional .env file (ENV_FILE, defaults to ".env") and then the process environment.
func Load() (Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values that would make the scanners loop forever or never page.
func (c Config) Validate() error {
	if c.Credits.ChunkSize == 0 {
		return fmt.Errorf("CREDITS_CHUNK_SIZE must be positive")
	}
	if c.Credits.TxBatchSize <= 0 {
		return fmt.Errorf("CREDITS_TX_BATCH_SIZE must be positive")
	}
	if c.Credits.IdentityBatch <= 0 {
		return fmt.Errorf("CREDITS_IDENTITY_BATCH_SIZE must be positive")
	}
	if c.Credits.CacheTTL <= 0 {
		return fmt.Errorf("CREDITS_CACHE_TTL must be positive")
	}
	return nil
}
