package conf

import (
	"fmt"

	"github.com/sealvault/sealvault-backend/internal/pkg/blobstore"
	"github.com/sealvault/sealvault-backend/internal/pkg/database"
	"github.com/sealvault/sealvault-backend/internal/pkg/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Database  database.Config  `mapstructure:"database"`
	Redis     RedisConfig      `mapstructure:"redis"`
	BlobStore blobstore.Config `mapstructure:"blobstore"`
	Log       logger.Config    `mapstructure:"log"`
	Auth      AuthConfig       `mapstructure:"auth"`
	Protocol  ProtocolConfig   `mapstructure:"protocol"`
	RateLimit RateLimitConfig  `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
}

// ProtocolConfig seeds the singleton protocol ledger on first boot. Admin is
// fixed at bootstrap; changing it here after the ledger row exists has no
// effect.
type ProtocolConfig struct {
	AdminAddress string `mapstructure:"admin_address"`
	FeeRateBps   uint64 `mapstructure:"fee_rate_bps"`
}

type RateLimitConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	MaxRequests   int    `mapstructure:"max_requests"`
	WindowSeconds int    `mapstructure:"window_seconds"`
	Strategy      string `mapstructure:"strategy"` // user, ip
}

func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
