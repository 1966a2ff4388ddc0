package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/feichai0017/document-harvester/pkg/logger"
)

// Config 应用配置
type Config struct {
	Logger     logger.Config    `yaml:"logger"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Rules      RulesConfig      `yaml:"rules"`
	Output     OutputConfig     `yaml:"output"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Server     ServerConfig     `yaml:"server"`
	Worker     WorkerConfig     `yaml:"worker"`
	S3         S3Config         `yaml:"s3"`
	Minio      MinioConfig      `yaml:"minio"`
	Textract   TextractConfig   `yaml:"textract"`
}

// EnvConfigPath names the variable the binaries read the config file path from.
const EnvConfigPath = "HARVESTER_CONFIG"

// OCR engines
const (
	EngineTesseract = "tesseract"
	EngineGosseract = "gosseract"
	EngineTextract  = "textract"
)

// ExtractionConfig controls the hybrid text extractor.
type ExtractionConfig struct {
	MinTextLength int    `yaml:"minTextLength"`
	DPI           int    `yaml:"dpi"`
	Engine        string `yaml:"engine"`
	Language      string `yaml:"language"`
	TesseractPath string `yaml:"tesseractPath"`
	PdftoppmPath  string `yaml:"pdftoppmPath"`
	MaxWorkers    int    `yaml:"maxWorkers"`
	// Preprocess 识别前的图像预处理
	Preprocess bool `yaml:"preprocess"`
}

type RulesConfig struct {
	CustomFile string `yaml:"customFile"`
}

// OutputConfig .txt 输出位置
type OutputConfig struct {
	Dir     string `yaml:"dir"`
	Storage string `yaml:"storage"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ServerConfig struct {
	Addr          string   `yaml:"addr"`
	MaxUploadSize int64    `yaml:"maxUploadSize"`
	MaxPages      int      `yaml:"maxPages"`
	AllowOrigins  []string `yaml:"allowOrigins"`
}

type WorkerConfig struct {
	Concurrency int            `yaml:"concurrency"`
	Queues      map[string]int `yaml:"queues"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Logger: logger.DefaultConfig(),
		Extraction: ExtractionConfig{
			MinTextLength: 100,
			DPI:           300,
			Engine:        EngineTesseract,
			Language:      "eng",
			TesseractPath: "tesseract",
			PdftoppmPath:  "pdftoppm",
			MaxWorkers:    4,
		},
		Rules: RulesConfig{
			CustomFile: "custom_patterns.yaml",
		},
		Output: OutputConfig{
			Dir:     "PDF_TEXT_OUTPUT",
			Storage: "local",
		},
		Database: DatabaseConfig{
			Path: "harvester.db",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Server: ServerConfig{
			Addr:          ":8080",
			MaxUploadSize: 50 << 20,
			MaxPages:      500,
		},
		Worker: WorkerConfig{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
		Textract: TextractConfig{
			MinConfidence: 80,
		},
	}
}

// Load reads path (optional), then .env, then the environment, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// .env 不存在时直接使用环境变量
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Logger.Level, "HARVESTER_LOG_LEVEL")
	setInt(&c.Extraction.MinTextLength, "HARVESTER_MIN_TEXT_LENGTH")
	setInt(&c.Extraction.DPI, "HARVESTER_DPI")
	setString(&c.Extraction.Engine, "HARVESTER_OCR_ENGINE")
	setString(&c.Extraction.Language, "HARVESTER_OCR_LANGUAGE")
	setString(&c.Extraction.TesseractPath, "HARVESTER_TESSERACT_PATH")
	setString(&c.Extraction.PdftoppmPath, "HARVESTER_PDFTOPPM_PATH")
	setInt(&c.Extraction.MaxWorkers, "HARVESTER_MAX_WORKERS")
	setString(&c.Rules.CustomFile, "HARVESTER_CUSTOM_PATTERNS")
	setString(&c.Output.Dir, "HARVESTER_OUTPUT_DIR")
	setString(&c.Output.Storage, "HARVESTER_STORAGE")
	setString(&c.Database.Path, "HARVESTER_DB_PATH")
	setString(&c.Server.Addr, "HARVESTER_ADDR")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	c.S3.applyEnv()
	c.Minio.applyEnv()
	c.Textract.applyEnv()
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Extraction.MinTextLength < 0 {
		return fmt.Errorf("extraction.minTextLength must not be negative, got %d", c.Extraction.MinTextLength)
	}
	if c.Extraction.DPI <= 0 {
		return fmt.Errorf("extraction.dpi must be positive, got %d", c.Extraction.DPI)
	}
	if c.Extraction.MaxWorkers <= 0 {
		return fmt.Errorf("extraction.maxWorkers must be positive, got %d", c.Extraction.MaxWorkers)
	}
	switch c.Extraction.Engine {
	case EngineTesseract, EngineGosseract, EngineTextract:
	default:
		return fmt.Errorf("unsupported OCR engine: %s", c.Extraction.Engine)
	}
	switch c.Output.Storage {
	case "local", "s3", "minio":
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Output.Storage)
	}
	if c.Output.Storage == "local" && c.Output.Dir == "" {
		return errors.New("output.dir is required for local storage")
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}
