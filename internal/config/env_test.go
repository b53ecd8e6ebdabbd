package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "gemini", cfg.EmbedProvider)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 8192, cfg.MaxChunkTokens)
	assert.Equal(t, 3, cfg.IndexBatchSize)
	assert.Equal(t, "faiss_index", cfg.IndexDir)
	assert.Equal(t, []string{"deu", "eng"}, cfg.OCRLanguages)
	assert.Equal(t, 2.0, cfg.OCRScale)
	assert.True(t, cfg.SidecarPerDocument)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("EMBED_PROVIDER", "OpenAI")
	t.Setenv("OCR_LANGUAGES", "deu+eng+fra")
	t.Setenv("OCR_TIMEOUT", "30s")
	t.Setenv("SIDECAR_PER_DOCUMENT", "false")
	t.Setenv("PAGE_WORKERS", "4")
	t.Setenv("OCR_SCALE", "3")

	cfg := LoadConfig()

	assert.Equal(t, "openai", cfg.EmbedProvider)
	assert.Equal(t, []string{"deu", "eng", "fra"}, cfg.OCRLanguages)
	assert.Equal(t, 30*time.Second, cfg.OCRTimeout)
	assert.False(t, cfg.SidecarPerDocument)
	assert.Equal(t, 4, cfg.PageWorkers)
	assert.Equal(t, 3.0, cfg.OCRScale)
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CHUNK_SIZE", "big")
	t.Setenv("EMBED_TIMEOUT", "soon")
	t.Setenv("SIDECAR_PER_DOCUMENT", "maybe")
	t.Setenv("OCR_LANGUAGES", " , ")

	cfg := LoadConfig()

	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 60*time.Second, cfg.EmbedTimeout)
	assert.True(t, cfg.SidecarPerDocument)
	assert.Equal(t, []string{"deu", "eng"}, cfg.OCRLanguages)
}

func TestS3Enabled(t *testing.T) {
	assert.False(t, (&Config{}).S3Enabled())
	assert.True(t, (&Config{AwsAccessKey: "a", AwsSecretKey: "b"}).S3Enabled())
}
