package config

import (
	"bytes"
	"fmt"
	"net"
	neturl "net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 2343
	defaultEnv        = "development"

	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "quiknotes"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"

	defaultMongoURI        = "mongodb://localhost:27017"
	defaultMongoDB         = "quiknotes"
	defaultMongoCollection = "notes"

	defaultRedisURL = "redis://localhost:6379/0"

	DriverMongo  = "mongo"
	DriverMemory = "memory"

	defaultAutosaveQuietMS = 1000
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int             `yaml:"port"`
	Env            string          `yaml:"env"` // "development" | "production"
	Database       DatabaseConfig  `yaml:"database"`
	Docstore       DocstoreConfig  `yaml:"docstore"`
	RedisURL       string          `yaml:"redis_url"`
	JWTSecret      string          `yaml:"jwt_secret"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	Autosave       AutosaveConfig  `yaml:"autosave"`
}

// DatabaseConfig configures the MySQL identity store.
type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Charset  string `yaml:"charset"`
	Loc      string `yaml:"loc"`
}

// DocstoreConfig configures the remote notes document store.
type DocstoreConfig struct {
	Driver     string `yaml:"driver"` // "mongo" | "memory"
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// AutosaveConfig configures the debounced write-back.
type AutosaveConfig struct {
	QuietMS int `yaml:"quiet_ms"`
}

// Load reads and validates the YAML config file.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}
	cfg.normalize()

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d in %q, expected 1-65535", cfg.Port, path)
	}
	if cfg.Database.Port < 1 || cfg.Database.Port > 65535 {
		return nil, fmt.Errorf("invalid database.port %d in %q, expected 1-65535", cfg.Database.Port, path)
	}
	if cfg.Docstore.Driver != DriverMongo && cfg.Docstore.Driver != DriverMemory {
		return nil, fmt.Errorf("invalid docstore.driver %q in %q, expected mongo or memory", cfg.Docstore.Driver, path)
	}
	if cfg.Autosave.QuietMS < 1 {
		return nil, fmt.Errorf("invalid autosave.quiet_ms %d in %q, expected >= 1", cfg.Autosave.QuietMS, path)
	}

	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseConfig{
			Host:     defaultDBHost,
			Port:     defaultDBPort,
			User:     defaultDBUser,
			Password: defaultDBPassword,
			Name:     defaultDBName,
			Charset:  defaultDBCharset,
			Loc:      defaultDBLoc,
		},
		Docstore: DocstoreConfig{
			Driver:     DriverMongo,
			URI:        defaultMongoURI,
			Database:   defaultMongoDB,
			Collection: defaultMongoCollection,
		},
		RedisURL: defaultRedisURL,
		Autosave: AutosaveConfig{QuietMS: defaultAutosaveQuietMS},
	}
}

func (c *AppConfig) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env == "" {
		c.Env = defaultEnv
	}
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	if c.RedisURL == "" {
		c.RedisURL = defaultRedisURL
	}
	c.JWTSecret = strings.TrimSpace(c.JWTSecret)

	origins := make([]string, 0, len(c.AllowedOrigins))
	for _, origin := range c.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.AllowedOrigins = origins

	c.Docstore.Driver = strings.ToLower(strings.TrimSpace(c.Docstore.Driver))
	if c.Docstore.Driver == "" {
		c.Docstore.Driver = DriverMongo
	}
	if strings.TrimSpace(c.Docstore.URI) == "" {
		c.Docstore.URI = defaultMongoURI
	}
	if strings.TrimSpace(c.Docstore.Database) == "" {
		c.Docstore.Database = defaultMongoDB
	}
	if strings.TrimSpace(c.Docstore.Collection) == "" {
		c.Docstore.Collection = defaultMongoCollection
	}
	if c.Autosave.QuietMS == 0 {
		c.Autosave.QuietMS = defaultAutosaveQuietMS
	}
}

// DSNValue builds the MySQL DSN from components unless one is given verbatim.
func (c DatabaseConfig) DSNValue() string {
	if v := strings.TrimSpace(c.DSN); v != "" {
		return v
	}

	host := strings.TrimSpace(c.Host)
	if host == "" {
		host = defaultDBHost
	}
	port := c.Port
	if port == 0 {
		port = defaultDBPort
	}
	user := strings.TrimSpace(c.User)
	if user == "" {
		user = defaultDBUser
	}
	password := strings.TrimSpace(c.Password)
	if password == "" {
		password = defaultDBPassword
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = defaultDBName
	}
	charset := strings.TrimSpace(c.Charset)
	if charset == "" {
		charset = defaultDBCharset
	}
	loc := strings.TrimSpace(c.Loc)
	if loc == "" {
		loc = defaultDBLoc
	}

	params := neturl.Values{}
	params.Set("charset", charset)
	params.Set("parseTime", "true")
	params.Set("loc", loc)

	return fmt.Sprintf("%s:%s@tcp(%s)/%s?%s",
		user, password, net.JoinHostPort(host, strconv.Itoa(port)), name, params.Encode())
}

// QuietPeriod returns the autosave quiet period as a duration.
func (c *AppConfig) QuietPeriod() time.Duration {
	return time.Duration(c.Autosave.QuietMS) * time.Millisecond
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}
