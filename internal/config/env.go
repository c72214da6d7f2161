package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	DatabaseURL string
	Port        string
	JWTSecret   string

	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	S3Endpoint   string
	S3Prefix     string

	SQSQueueURL          string
	SQSEndpoint          string
	SQSWaitSeconds       int
	SQSVisibilityTimeout int
	SQSMaxMessages       int
	DeleteMessages       bool

	AIProvider          string // "openai", "gemini" or "local"
	AIAPIKey            string
	EmbedModel          string
	InferenceModel      string
	LocalEmbedModelPath string

	ChunkSize      int
	ChunkOverlap   int
	WriteBatchSize int
	DefaultTopK    int

	DocumentTypes []string
}

// LoadConfig loads the environment variables and returns the config.
func LoadConfig() *Config {

	_ = godotenv.Load()

	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", ""),

		AwsAccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		AwsSecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("AWS_S3_BUCKET", ""),
		S3Endpoint:   getEnv("AWS_S3_ENDPOINT", ""),
		S3Prefix:     getEnv("AWS_S3_PREFIX", ""),

		SQSQueueURL:          getEnv("SQS_QUEUE_URL", ""),
		SQSEndpoint:          getEnv("AWS_SQS_ENDPOINT", ""),
		SQSWaitSeconds:       getEnvInt("SQS_WAIT_SECONDS", 10),
		SQSVisibilityTimeout: getEnvInt("SQS_VISIBILITY_TIMEOUT", 120),
		SQSMaxMessages:       getEnvInt("SQS_MAX_MESSAGES", 5),
		DeleteMessages:       getEnvBool("SQS_DELETE_MESSAGES", true),

		AIProvider:          getEnv("AI_PROVIDER", "openai"),
		AIAPIKey:            getEnv("OPENAI_API_KEY", ""),
		EmbedModel:          getEnv("OPENAI_EMBEDDING_MODEL", ""),
		InferenceModel:      getEnv("OPENAI_INFERENCE_MODEL", ""),
		LocalEmbedModelPath: getEnv("LOCAL_EMBED_MODEL_PATH", ""),

		ChunkSize:      getEnvInt("CHUNK_SIZE_TOKENS", 800),
		ChunkOverlap:   getEnvInt("CHUNK_OVERLAP_TOKENS", 100),
		WriteBatchSize: getEnvInt("EMBED_WRITE_BATCH_SIZE", 50),
		DefaultTopK:    getEnvInt("INQUIRE_TOP_K", 5),

		DocumentTypes: getEnvList("DOCUMENT_TYPES"),
	}

	// DATABASE_URL wins; database.yaml is the fallback for local setups.
	if cfg.DatabaseURL == "" {
		uri, err := databaseURLFromYAML(getEnv("DATABASE_YAML", "database.yaml"), env)
		if err != nil {
			log.Printf("WARN: database.yaml not usable: %v", err)
		}
		cfg.DatabaseURL = uri
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(getEnv(key, ""))
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "yes", "y":
		return true
	case "0", "false", "no", "n":
		return false
	}
	log.Printf("WARN: %s=%q not a bool, using default %t", key, v, def)
	return def
}

// getEnvList splits a comma-separated env var into trimmed values.
func getEnvList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
