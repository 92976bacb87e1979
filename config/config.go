package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	AllowedOrigins  []string      `mapstructure:"allowedOrigins"`
}

// StoreConfig selects the persistence backend: "mongo", "postgres" or "memory".
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type MongoConfig struct {
	URI    string `mapstructure:"uri"`
	DBName string `mapstructure:"dbName"`
}

type PostgresConfig struct {
	DSN           string        `mapstructure:"dsn"`
	RetryAttempts int           `mapstructure:"retryAttempts"`
	RetryDelay    time.Duration `mapstructure:"retryDelay"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type S3Config struct {
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	AccessKeyID      string `mapstructure:"accessKeyID"`
	SecretAccessKey  string `mapstructure:"secretAccessKey"`
	CloudFrontDomain string `mapstructure:"cloudFrontDomain"`
	Endpoint         string `mapstructure:"endpoint"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	Console    bool   `mapstructure:"console"`
	MaxSizeMB  int    `mapstructure:"maxSizeMB"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAgeDays"`
}

type GeofenceConfig struct {
	CacheMaxAge time.Duration `mapstructure:"cacheMaxAge"`
	// UnconfiguredPolicy is "reject" or "allow".
	UnconfiguredPolicy string `mapstructure:"unconfiguredPolicy"`
}

type AttendanceConfig struct {
	LocationTimeout    time.Duration `mapstructure:"locationTimeout"`
	MaxFixAge          time.Duration `mapstructure:"maxFixAge"`
	PhotoUploadTimeout time.Duration `mapstructure:"photoUploadTimeout"`
	MaxPhotoBytes      int64         `mapstructure:"maxPhotoBytes"`
}

// AdminConfig is the account seeded on first start.
type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	Mongo      MongoConfig      `mapstructure:"mongo"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	S3         S3Config         `mapstructure:"s3"`
	Log        LogConfig        `mapstructure:"log"`
	Geofence   GeofenceConfig   `mapstructure:"geofence"`
	Attendance AttendanceConfig `mapstructure:"attendance"`
	Admin      AdminConfig      `mapstructure:"admin"`
}

var envBindings = map[string]string{
	"server.port":                   "SERVER_PORT",
	"store.driver":                  "STORE_DRIVER",
	"mongo.uri":                     "MONGO_URI",
	"mongo.dbName":                  "MONGO_DBNAME",
	"postgres.dsn":                  "POSTGRES_DSN",
	"jwt.secret":                    "JWT_SECRET",
	"jwt.expiration":                "JWT_EXPIRATION",
	"s3.bucket":                     "S3_BUCKET",
	"s3.region":                     "S3_REGION",
	"s3.accessKeyID":                "S3_ACCESS_KEY_ID",
	"s3.secretAccessKey":            "S3_SECRET_ACCESS_KEY",
	"s3.cloudFrontDomain":           "S3_CLOUDFRONT_DOMAIN",
	"s3.endpoint":                   "S3_ENDPOINT",
	"log.level":                     "LOG_LEVEL",
	"log.file":                      "LOG_FILE",
	"geofence.unconfiguredPolicy":   "GEOFENCE_UNCONFIGURED_POLICY",
	"attendance.locationTimeout":    "ATTENDANCE_LOCATION_TIMEOUT",
	"attendance.photoUploadTimeout": "ATTENDANCE_PHOTO_UPLOAD_TIMEOUT",
	"admin.email":                   "ADMIN_EMAIL",
	"admin.password":                "ADMIN_PASSWORD",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdownTimeout", "15s")
	v.SetDefault("server.allowedOrigins", []string{"*"})
	v.SetDefault("store.driver", "mongo")
	v.SetDefault("mongo.dbName", "field_attendance")
	v.SetDefault("postgres.retryAttempts", 10)
	v.SetDefault("postgres.retryDelay", "2s")
	v.SetDefault("jwt.expiration", "24h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("log.maxSizeMB", 100)
	v.SetDefault("log.maxBackups", 7)
	v.SetDefault("log.maxAgeDays", 30)
	v.SetDefault("geofence.cacheMaxAge", "30s")
	v.SetDefault("geofence.unconfiguredPolicy", "reject")
	v.SetDefault("attendance.locationTimeout", "15s")
	v.SetDefault("attendance.maxFixAge", "2m")
	v.SetDefault("attendance.photoUploadTimeout", "30s")
	v.SetDefault("attendance.maxPhotoBytes", 5<<20)
	v.SetDefault("admin.name", "Administrator")
}

// LoadConfig reads config.yaml from path, then applies .env and environment
// overrides. A missing config file is not an error.
func LoadConfig(path string) (config Config, err error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	setDefaults(v)
	for key, env := range envBindings {
		if err = v.BindEnv(key, env); err != nil {
			return
		}
	}

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	err = config.validate()
	return
}

func (c Config) validate() error {
	switch strings.ToLower(c.Store.Driver) {
	case "mongo":
		if c.Mongo.URI == "" {
			return fmt.Errorf("config: mongo.uri is required for the mongo driver")
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("config: postgres.dsn is required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	switch c.Geofence.UnconfiguredPolicy {
	case "reject", "allow":
	default:
		return fmt.Errorf("config: geofence.unconfiguredPolicy must be reject or allow, got %q", c.Geofence.UnconfiguredPolicy)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("config: jwt.secret is required")
	}
	return nil
}
