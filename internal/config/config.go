package config

import (
	"fmt"
	"os"
	"strconv"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config 引擎服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig

	HTTP struct {
		Addr string
	}

	// 引擎特定配置
	Engine struct {
		Workers           int    // 叶子实体并行评估 worker 数
		FailedChildPolicy string // skip / worst / propagate
		WeightCombine     string // 多属性权重合成：product / sum
		Season            string // 运行季节上下文
		RuleDir           string // 标准规则集 YAML 目录
		AggregatorType    string // 默认层级聚合策略
		WeightProperty    string // 默认聚合权重属性
	}

	// 结果缓存配置
	Cache struct {
		SummaryKeyPrefix string // 汇总载荷缓存键前缀，如 "ieq:analysis:"
		SummaryTTL       int    // 汇总载荷 TTL（秒）
		RunStream        string // 运行完成事件的 Redis Stream
	}

	// 远程时序 API 配置（为空则只用本地 Postgres）
	Remote struct {
		BaseURL string
		APIKey  string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 从环境变量加载配置（带默认值）
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "hvx")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8086")

	cfg.Engine.Workers = getEnvInt("ENGINE_WORKERS", 4)
	cfg.Engine.FailedChildPolicy = getEnv("ENGINE_FAILED_CHILD_POLICY", "skip")
	cfg.Engine.WeightCombine = getEnv("ENGINE_WEIGHT_COMBINE", "product")
	cfg.Engine.Season = getEnv("ENGINE_SEASON", "")
	cfg.Engine.RuleDir = getEnv("ENGINE_RULE_DIR", "configs/standards")
	cfg.Engine.AggregatorType = getEnv("ENGINE_AGGREGATOR_TYPE", "worst")
	cfg.Engine.WeightProperty = getEnv("ENGINE_WEIGHT_PROPERTY", "area_m2")

	cfg.Cache.SummaryKeyPrefix = getEnv("CACHE_SUMMARY_PREFIX", "ieq:analysis:")
	cfg.Cache.SummaryTTL = getEnvInt("CACHE_SUMMARY_TTL", 3600)
	cfg.Cache.RunStream = getEnv("CACHE_RUN_STREAM", "ieq:analysis:runs")

	cfg.Remote.BaseURL = getEnv("REMOTE_SERIES_URL", "")
	cfg.Remote.APIKey = getEnv("REMOTE_SERIES_API_KEY", "")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
