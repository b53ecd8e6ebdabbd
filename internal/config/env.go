package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	EmbedProvider  string
	GeminiAPIKey   string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	EmbedModel     string
	EmbedDim       int
	TokenizerModel string

	MaxChunkTokens int
	ChunkSize      int
	ChunkOverlap   int
	IndexBatchSize int

	IndexDir           string
	VectorDataDir      string
	SidecarPerDocument bool

	OCRLanguages []string
	OCRScale     float64
	OCRTimeout   time.Duration
	EmbedTimeout time.Duration

	RetryMaxAttempts int
	PageWorkers      int
	IngestWorkers    int
	IngestQueue      int

	DatabaseURL  string
	SslCertPath  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		EmbedProvider:  strings.ToLower(getEnv("EMBED_PROVIDER", "gemini")),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		EmbedModel:     getEnv("EMBED_MODEL", ""),
		EmbedDim:       getEnvInt("EMBED_DIM", 0),
		TokenizerModel: getEnv("TOKENIZER_MODEL", "text-embedding-ada-002"),

		MaxChunkTokens: getEnvInt("MAX_CHUNK_TOKENS", 8192),
		ChunkSize:      getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:   getEnvInt("CHUNK_OVERLAP", 200),
		IndexBatchSize: getEnvInt("INDEX_BATCH_SIZE", 3),

		IndexDir:           getEnv("INDEX_DIR", "faiss_index"),
		VectorDataDir:      getEnv("VECTOR_DATA_DIR", "vector-data"),
		SidecarPerDocument: getEnvBool("SIDECAR_PER_DOCUMENT", true),

		OCRLanguages: getEnvList("OCR_LANGUAGES", []string{"deu", "eng"}),
		OCRScale:     getEnvFloat("OCR_SCALE", 2.0),
		OCRTimeout:   getEnvDuration("OCR_TIMEOUT", 2*time.Minute),
		EmbedTimeout: getEnvDuration("EMBED_TIMEOUT", 60*time.Second),

		RetryMaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		PageWorkers:      getEnvInt("PAGE_WORKERS", 1),
		IngestWorkers:    getEnvInt("INGEST_WORKERS", 2),
		IngestQueue:      getEnvInt("INGEST_QUEUE", 64),

		DatabaseURL:  getEnv("DATABASE_URL", ""),
		SslCertPath:  getEnv("SSL_CERT_PATH", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "contexta-docs"),
	}

	if cfg.ChunkOverlap >= cfg.ChunkSize {
		log.Printf("WARN: CHUNK_OVERLAP=%d is not below CHUNK_SIZE=%d; the recursive splitter will fall back to full-text chunks", cfg.ChunkOverlap, cfg.ChunkSize)
	}

	return cfg
}

// S3Enabled reports whether AWS credentials are present.
func (c *Config) S3Enabled() bool {
	return c.AwsAccessKey != "" && c.AwsSecretKey != ""
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

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("WARN: %s=%q not a number, using default %g", key, v, def)
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a bool, using default %t", key, v, def)
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}

// getEnvList splits a comma or plus separated list ("deu,eng", "deu+eng").
func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '+' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
