package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Db_driver string `mapstructure:"DB_DRIVER"`
	Db_conn   string `mapstructure:"DB_CONN"`
	Db_name   string `mapstructure:"DB_NAME"`

	Object_store      string `mapstructure:"OBJECT_STORE"`
	Cloudinary_cloud  string `mapstructure:"CLOUDINARY_CLOUD"`
	Cloudinary_key    string `mapstructure:"CLOUDINARY_KEY"`
	Cloudinary_secret string `mapstructure:"CLOUDINARY_SECRET"`
	Cloudinary_folder string `mapstructure:"CLOUDINARY_FOLDER"`
	S3_bucket         string `mapstructure:"S3_BUCKET"`
	S3_region         string `mapstructure:"S3_REGION"`
	S3_public_url     string `mapstructure:"S3_PUBLIC_URL"`

	Compress_max_dimension int           `mapstructure:"COMPRESS_MAX_DIMENSION"`
	Compress_quality       int           `mapstructure:"COMPRESS_QUALITY"`
	Compress_timeout       time.Duration `mapstructure:"COMPRESS_TIMEOUT"`
	Compress_max_pixels    int           `mapstructure:"COMPRESS_MAX_PIXELS"`

	Api_url string `mapstructure:"API_URL"`
	Debug   bool   `mapstructure:"DEBUG"`
}

var defaults = map[string]any{
	"DB_DRIVER":              "postgres",
	"DB_CONN":                "",
	"DB_NAME":                "bookshelf",
	"OBJECT_STORE":           "none",
	"CLOUDINARY_CLOUD":       "",
	"CLOUDINARY_KEY":         "",
	"CLOUDINARY_SECRET":      "",
	"CLOUDINARY_FOLDER":      "bookshelf",
	"S3_BUCKET":              "",
	"S3_REGION":              "",
	"S3_PUBLIC_URL":          "",
	"COMPRESS_MAX_DIMENSION": 800,
	"COMPRESS_QUALITY":       70,
	"COMPRESS_TIMEOUT":       "10s",
	"COMPRESS_MAX_PIXELS":    40000000,
	"API_URL":                "http://localhost:8080/api/v1",
	"DEBUG":                  false,
}

// Load reads the optional env file at path into the process environment and
// unmarshals the environment over the defaults. A missing file is not an
// error; real environment variables win over the file.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading in config: %v", err)
		}
	}

	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.AutomaticEnv()

	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Db_driver {
	case "postgres", "mongo":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or mongo, got %q", c.Db_driver)
	}

	switch c.Object_store {
	case "none":
	case "cloudinary":
		if c.Cloudinary_cloud == "" || c.Cloudinary_key == "" || c.Cloudinary_secret == "" {
			return fmt.Errorf("CLOUDINARY_CLOUD, CLOUDINARY_KEY and CLOUDINARY_SECRET are required when OBJECT_STORE is cloudinary")
		}
	case "s3":
		if c.S3_bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when OBJECT_STORE is s3")
		}
	default:
		return fmt.Errorf("OBJECT_STORE must be none, cloudinary or s3, got %q", c.Object_store)
	}

	if c.Compress_max_dimension < 1 {
		return fmt.Errorf("COMPRESS_MAX_DIMENSION must be at least 1")
	}

	if c.Compress_quality < 1 || c.Compress_quality > 100 {
		return fmt.Errorf("COMPRESS_QUALITY must be between 1 and 100")
	}

	if c.Compress_timeout <= 0 {
		return fmt.Errorf("COMPRESS_TIMEOUT must be positive")
	}

	if c.Compress_max_pixels < 0 {
		return fmt.Errorf("COMPRESS_MAX_PIXELS must not be negative")
	}

	return nil
}

// ValidateServer adds the checks only the http server needs.
func (c *Config) ValidateServer() error {
	if c.Db_conn == "" {
		return fmt.Errorf("DB_CONN is required")
	}
	return c.Validate()
}
