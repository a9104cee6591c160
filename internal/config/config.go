package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

type Config struct {
	ServiceName  string
	ServerPort   int
	LogLevel     string
	AllowOrigins []string

	DatabaseURL string
	SQLitePath  string

	JWTSecret []byte

	StripeSecret        string
	StripeWebhookSecret string
	SuccessURL          string
	CancelURL           string

	StorageType string
	UploadDir   string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	KafkaBrokers []string

	PurgeSchedule string

	ESURL      string
	ESUser     string
	ESPassword string
	JobsIndex  string
}

// Load reads .env (when present) and then the process environment.
func Load() Config {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("notice: cannot read .env: %v", err)
	}

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "gigmarket"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 4000),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		AllowOrigins: CSV(os.Getenv("CORS_ORIGINS")),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  EnvDefault("SQLITE_PATH", "database.sqlite"),

		JWTSecret: []byte(os.Getenv("JWT_SECRET")),

		StripeSecret:        os.Getenv("STRIPE_SECRET"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		SuccessURL:          EnvDefault("SUCCESS_URL", "http://localhost:4000/"),
		CancelURL:           EnvDefault("CANCEL_URL", "http://localhost:4000/"),

		StorageType: EnvDefault("STORAGE_TYPE", StorageLocal),
		UploadDir:   EnvDefault("UPLOAD_DIR", "uploads"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3Region:    EnvDefault("S3_REGION", "us-east-1"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		PurgeSchedule: EnvDefault("PURGE_SCHEDULE", "@hourly"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		JobsIndex:  EnvDefault("JOBS_INDEX", "jobs"),
	}
}

// PaymentVerificationEnabled is false in trusted-fallback mode.
func (c Config) PaymentVerificationEnabled() bool {
	return c.StripeWebhookSecret != ""
}
