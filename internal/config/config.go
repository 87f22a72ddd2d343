package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mintmesh/listing-ledger/internal/log"
	"go.uber.org/zap"
)

type Config struct {
	Env     string
	Network string
	Index   string
	Debug   bool
	LogPath string

	ApiPort    string
	HealthPort string

	FeeBps                 uint
	FeeReceiver            string
	Operator               string
	NativeCurrency         bool
	RefundTokenOverpayment bool

	PlatformUri        string
	RoyaltyRegistryUri string
	RoyaltyTimeout     int

	AdminIdentities  []string
	PauserIdentities []string

	ElasticSearch ElasticSearchConfig
	Aws           AwsConfig
}

type AwsConfig struct {
	AccessKey   string
	SecretKey   string
	Region      string
	QueuePrefix string
}

type ElasticSearchConfig struct {
	Hosts            []string
	Sniff            bool
	HealthCheck      bool
	Debug            bool
	Username         string
	Password         string
	MappingDir       string
	BulkPersistCount int
	Refresh          string
}

func Init(app string) {
	if err := godotenv.Load(".env"); err != nil {
		fmt.Println("No .env file found, using environment")
	}

	log.NewLogger(fmt.Sprintf("%s/%s.log", Get().LogPath, app), Get().Debug)

	zap.L().With(zap.String("app", app), zap.String("network", Get().Network)).Info("Config initialised")
}

func Get() *Config {
	return &Config{
		Env:     getString("ENV", ""),
		Network: getString("NETWORK", "mainnet"),
		Index:   getString("INDEX_NAME", "ledger"),
		Debug:   getBool("DEBUG", false),
		LogPath: getString("LOG_PATH", "./logs"),

		ApiPort:    getString("API_PORT", "8080"),
		HealthPort: getString("HEALTH_PORT", "8081"),

		FeeBps:                 getUint("FEE_BPS", 250),
		FeeReceiver:            getString("FEE_RECEIVER", ""),
		Operator:               getString("OPERATOR_IDENTITY", "marketplace"),
		NativeCurrency:         getBool("NATIVE_CURRENCY", true),
		RefundTokenOverpayment: getBool("REFUND_TOKEN_OVERPAYMENT", false),

		PlatformUri:        getString("PLATFORM_URI", ""),
		RoyaltyRegistryUri: getString("ROYALTY_REGISTRY_URI", ""),
		RoyaltyTimeout:     getInt("ROYALTY_TIMEOUT", 10),

		AdminIdentities:  getSlice("ADMIN_IDENTITIES", make([]string, 0), ","),
		PauserIdentities: getSlice("PAUSER_IDENTITIES", make([]string, 0), ","),

		Aws: AwsConfig{
			AccessKey:   getString("AWS_ACCESS_KEY_ID", ""),
			SecretKey:   getString("AWS_SECRET_KEY_ID", ""),
			Region:      getString("AWS_REGION", ""),
			QueuePrefix: getString("AWS_QUEUE_PREFIX", ""),
		},
		ElasticSearch: ElasticSearchConfig{
			Hosts:            getSlice("ELASTIC_SEARCH_HOSTS", make([]string, 0), ","),
			Sniff:            getBool("ELASTIC_SEARCH_SNIFF", true),
			HealthCheck:      getBool("ELASTIC_SEARCH_HEALTH_CHECK", true),
			Debug:            getBool("ELASTIC_SEARCH_DEBUG", false),
			Username:         getString("ELASTIC_SEARCH_USERNAME", ""),
			Password:         getString("ELASTIC_SEARCH_PASSWORD", ""),
			MappingDir:       getString("ELASTIC_SEARCH_MAPPING_DIR", "./data/mappings"),
			BulkPersistCount: getInt("ELASTIC_SEARCH_BULK_PERSIST_COUNT", 300),
			Refresh:          getString("ELASTIC_SEARCH_REFRESH", "wait_for"),
		},
	}
}

func getString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

func getInt(key string, defaultValue int) int {
	valStr := getString(key, "")
	if val, err := strconv.Atoi(valStr); err == nil {
		return val
	}

	return defaultValue
}

func getUint(key string, defaultValue uint) uint {
	val := getInt(key, int(defaultValue))
	if val < 0 {
		return defaultValue
	}

	return uint(val)
}

func getBool(key string, defaultValue bool) bool {
	valStr := getString(key, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultValue
}

func getSlice(key string, defaultVal []string, sep string) []string {
	valStr := getString(key, "")
	if valStr == "" {
		return defaultVal
	}

	return strings.Split(valStr, sep)
}
