package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AWS     AWSConfig
	Storage StorageConfig
	Server  ServerConfig
	Log     LogConfig
}

type AWSConfig struct {
	Region                   string
	SourceBucket             string
	TransformedBucket        string
	GlueJobName              string
	IngestLambdaFunctionName string
	DefaultContentType       string
	TableName                string
}

// StorageConfig points the object store at an S3-compatible endpoint instead
// of AWS. Endpoint empty means AWS S3.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

type ServerConfig struct {
	Port string
}

type LogConfig struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_SOURCE_BUCKET", "etl-source-bucket")
	v.SetDefault("AWS_TRANSFORMED_BUCKET", "etl-transformed-bucket")
	v.SetDefault("AWS_GLUE_JOB_NAME", "etl-demo-job")
	v.SetDefault("AWS_INGEST_LAMBDA_FUNCTION_NAME", "etl-ingest")
	v.SetDefault("AWS_DEFAULT_CONTENT_TYPE", "application/json")
	v.SetDefault("TABLE_NAME", "etl-runs")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_USE_SSL", true)
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
}

// Load reads an optional .env file and then the environment.
func Load() *Config {
	_ = godotenv.Load()
	return FromViper(viper.New())
}

// FromViper builds a Config from v, with environment lookups enabled.
func FromViper(v *viper.Viper) *Config {
	setDefaults(v)
	v.AutomaticEnv()

	return &Config{
		AWS: AWSConfig{
			Region:                   v.GetString("AWS_REGION"),
			SourceBucket:             strings.TrimSpace(v.GetString("AWS_SOURCE_BUCKET")),
			TransformedBucket:        strings.TrimSpace(v.GetString("AWS_TRANSFORMED_BUCKET")),
			GlueJobName:              v.GetString("AWS_GLUE_JOB_NAME"),
			IngestLambdaFunctionName: v.GetString("AWS_INGEST_LAMBDA_FUNCTION_NAME"),
			DefaultContentType:       v.GetString("AWS_DEFAULT_CONTENT_TYPE"),
			TableName:                v.GetString("TABLE_NAME"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("S3_ENDPOINT"),
			AccessKey: v.GetString("S3_ACCESS_KEY"),
			SecretKey: v.GetString("S3_SECRET_KEY"),
			UseSSL:    v.GetBool("S3_USE_SSL"),
		},
		Server: ServerConfig{
			Port: v.GetString("PORT"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
}
