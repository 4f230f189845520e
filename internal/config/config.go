package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/resilient"
	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
	"github.com/JoeShih716/go-bank-ledger/pkg/mongo"
	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
)

// DefaultPath 預設設定檔路徑，可用 LEDGER_CONFIG 覆寫
const DefaultPath = "config/config.yaml"

// 儲存層種類
const (
	DriverMemory = "memory"
	DriverMySQL  = "mysql"
	DriverMongo  = "mongo"
)

type Config struct {
	Server ServerConfig   `yaml:"server"`
	Ledger LedgerConfig   `yaml:"ledger"`
	Store  StoreConfig    `yaml:"store"`
	MySQL  mysql.Config   `yaml:"mysql"`
	Mongo  mongo.Config   `yaml:"mongo"`
	Log    logging.Config `yaml:"log"`
}

type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// GRPCReflection 開啟 server reflection (grpcurl 用)
	GRPCReflection bool `yaml:"grpc_reflection"`
}

type LedgerConfig struct {
	// LockTimeout 取帳戶鎖最長等待時間，逾時回傳 busy
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

type StoreConfig struct {
	// Driver: memory / mysql / mongo
	Driver string `yaml:"driver"`
	// WALPath memory driver 的 WAL 檔案，空字串表示不持久化
	WALPath string           `yaml:"wal_path"`
	Breaker resilient.Config `yaml:"breaker"`
}

// Default 不讀任何檔案時的設定
func Default() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddr:        ":8080",
			GRPCAddr:        ":50051",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Ledger: LedgerConfig{LockTimeout: 2 * time.Second},
		Store: StoreConfig{
			Driver:  DriverMemory,
			WALPath: "data/wal.log",
			Breaker: resilient.DefaultConfig(),
		},
		Log: logging.DefaultConfig(),
	}
}

// Load 讀取 yaml 設定 (檔案不存在時使用預設值)，再套用環境變數覆寫
//
// path 為空時依序使用 LEDGER_CONFIG、DefaultPath
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv("LEDGER_CONFIG")
	}
	explicit := path != ""
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(&cfg, os.Getenv)
	cfg.MySQL.ApplyDefaults()
	cfg.Mongo.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv 只覆寫部署時常改的欄位
func applyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Store.Driver, "LEDGER_STORE_DRIVER")
	set(&cfg.Store.WALPath, "LEDGER_WAL_PATH")
	set(&cfg.Server.HTTPAddr, "LEDGER_HTTP_ADDR")
	set(&cfg.Server.GRPCAddr, "LEDGER_GRPC_ADDR")
	set(&cfg.MySQL.Host, "MYSQL_HOST")
	set(&cfg.MySQL.User, "MYSQL_USER")
	set(&cfg.MySQL.Password, "MYSQL_PASSWORD")
	set(&cfg.MySQL.DBName, "MYSQL_DATABASE")
	set(&cfg.Mongo.URI, "MONGO_URI")
	set(&cfg.Mongo.Database, "MONGO_DATABASE")
	set(&cfg.Log.Level, "LOG_LEVEL")
}

// Validate 檢查設定是否可用
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverMySQL:
		if c.MySQL.Host == "" || c.MySQL.DBName == "" {
			return errors.New("config: mysql driver requires mysql.host and mysql.dbname")
		}
	case DriverMongo:
		if c.Mongo.URI == "" {
			return errors.New("config: mongo driver requires mongo.uri")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Server.HTTPAddr == "" && c.Server.GRPCAddr == "" {
		return errors.New("config: at least one of server.http_addr and server.grpc_addr must be set")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
