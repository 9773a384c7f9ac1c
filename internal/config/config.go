package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"

	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

type Config struct {
	Env       string
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	AI        AIConfig
	Planner   PlannerConfig
	Redis     RedisConfig
	Optimizer OptimizerConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type AuthConfig struct {
	JWTSecret          string
	JWTIssuer          string
	RateLimitPerMinute int
	RateLimitBurst     int
}

// AIConfig описывает провайдера LLM и HTTP-лимит на AI-маршруты.
type AIConfig struct {
	Provider           string
	APIKey             string
	BaseURL            string
	Model              string
	Timeout            time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
	MaxOutputTokens    int
	Temperature        float64
	TopP               float64
	FrequencyPenalty   float64
	PresencePenalty    float64
}

// PlannerConfig управляет оркестрацией генерации планов.
type PlannerConfig struct {
	UseMock            bool
	CacheTTL           time.Duration
	CacheBackend       string
	RateLimitPerMinute int
	MaxRetries         int
	RetryBaseDelay     time.Duration
	Renegotiation      bool
	MaxRenegotiations  int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type OptimizerConfig struct {
	MaxSuggestions          int
	MinReplacementSavings   float64
	BulkDiscount            float64
	ExpensiveIngredientRate float64
}

// Load загружает конфигурацию приложения из окружения и .env.
func Load() (Config, error) {
	cfg := Config{}

	if err := loadEnv(); err != nil {
		return cfg, err
	}

	cfg.Env = getEnv("APP_ENV", "local")

	serverPort, err := parseIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return cfg, err
	}

	readTimeout, err := parseDurationEnv("SERVER_READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return cfg, err
	}

	// Генерация плана с пересогласованием бюджета может занимать минуты.
	writeTimeout, err := parseDurationEnv("SERVER_WRITE_TIMEOUT", 5*time.Minute)
	if err != nil {
		return cfg, err
	}

	idleTimeout, err := parseDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return cfg, err
	}

	cfg.Server = ServerConfig{
		Host:         getEnv("SERVER_HOST", "0.0.0.0"),
		Port:         serverPort,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	dbPort, err := parseIntEnv("DB_PORT", 5432)
	if err != nil {
		return cfg, err
	}

	maxOpenConns, err := parseIntEnv("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return cfg, err
	}

	maxIdleConns, err := parseIntEnv("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return cfg, err
	}

	connMaxIdleTime, err := parseDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute)
	if err != nil {
		return cfg, err
	}

	connMaxLifetime, err := parseDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	if err != nil {
		return cfg, err
	}

	autoMigrate, err := parseBoolEnv("DB_AUTO_MIGRATE", true)
	if err != nil {
		return cfg, err
	}

	cfg.Database = DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            dbPort,
		User:            getEnv("DB_USER", "planner"),
		Password:        getEnv("DB_PASSWORD", "planner"),
		Name:            getEnv("DB_NAME", "meal_planner"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxIdleTime: connMaxIdleTime,
		ConnMaxLifetime: connMaxLifetime,
		AutoMigrate:     autoMigrate,
	}

	rateLimitPerMinute, err := parseIntEnv("API_RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		return cfg, err
	}

	rateLimitBurst, err := parseIntEnv("API_RATE_LIMIT_BURST", 20)
	if err != nil {
		return cfg, err
	}

	cfg.Auth = AuthConfig{
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTIssuer:          getEnv("JWT_ISSUER", "meal-planner"),
		RateLimitPerMinute: rateLimitPerMinute,
		RateLimitBurst:     rateLimitBurst,
	}

	if err := cfg.loadPlanning(); err != nil {
		return cfg, err
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// LoadPlanning загружает только секции AI, планировщика, Redis и оптимизатора.
// Используется CLI, которому не нужны HTTP-сервер и база данных.
func LoadPlanning() (Config, error) {
	cfg := Config{}

	if err := loadEnv(); err != nil {
		return cfg, err
	}

	cfg.Env = getEnv("APP_ENV", "local")

	if err := cfg.loadPlanning(); err != nil {
		return cfg, err
	}

	if err := cfg.validatePlanning(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c *Config) loadPlanning() error {
	var err error

	if c.AI, err = loadAI(); err != nil {
		return err
	}

	if c.Planner, err = loadPlanner(); err != nil {
		return err
	}

	redisDB, err := parseNonNegativeIntEnv("REDIS_DB", 0)
	if err != nil {
		return err
	}

	c.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
		Prefix:   getEnv("REDIS_CACHE_PREFIX", "mealplanner:cache:"),
	}

	if c.Optimizer, err = loadOptimizer(); err != nil {
		return err
	}

	return nil
}

func loadAI() (AIConfig, error) {
	var cfg AIConfig

	timeout, err := parseDurationEnv("AI_TIMEOUT", 60*time.Second)
	if err != nil {
		return cfg, err
	}

	rateLimitPerMinute, err := parseIntEnv("AI_RATE_LIMIT_PER_MINUTE", 30)
	if err != nil {
		return cfg, err
	}

	rateLimitBurst, err := parseIntEnv("AI_RATE_LIMIT_BURST", 5)
	if err != nil {
		return cfg, err
	}

	maxOutputTokens, err := parseIntEnv("AI_MAX_OUTPUT_TOKENS", 4096)
	if err != nil {
		return cfg, err
	}

	temperature, err := parseFloatEnv("AI_TEMPERATURE", 0.7)
	if err != nil {
		return cfg, err
	}

	topP, err := parseFloatEnv("AI_TOP_P", 0.9)
	if err != nil {
		return cfg, err
	}

	frequencyPenalty, err := parseFloatEnv("AI_FREQUENCY_PENALTY", 0.1)
	if err != nil {
		return cfg, err
	}

	presencePenalty, err := parseFloatEnv("AI_PRESENCE_PENALTY", 0.1)
	if err != nil {
		return cfg, err
	}

	provider := strings.ToLower(getEnv("AI_PROVIDER", ProviderGroq))
	defaultBaseURL := "https://api.groq.com/openai/v1"
	defaultModel := "llama-3.1-8b-instant"
	if provider == ProviderGemini {
		defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
		defaultModel = "gemini-1.5-flash"
	}

	apiKey := getEnv("AI_API_KEY", "")
	if apiKey == "" {
		switch provider {
		case ProviderGemini:
			apiKey = getEnv("GEMINI_API_KEY", "")
		case ProviderGroq:
			apiKey = getEnv("GROQ_API_KEY", "")
		}
	}

	return AIConfig{
		Provider:           provider,
		APIKey:             apiKey,
		BaseURL:            getEnv("AI_BASE_URL", defaultBaseURL),
		Model:              getEnv("AI_MODEL", defaultModel),
		Timeout:            timeout,
		RateLimitPerMinute: rateLimitPerMinute,
		RateLimitBurst:     rateLimitBurst,
		MaxOutputTokens:    maxOutputTokens,
		Temperature:        temperature,
		TopP:               topP,
		FrequencyPenalty:   frequencyPenalty,
		PresencePenalty:    presencePenalty,
	}, nil
}

func loadPlanner() (PlannerConfig, error) {
	var cfg PlannerConfig

	useMock, err := parseBoolEnv("PLANNER_USE_MOCK", false)
	if err != nil {
		return cfg, err
	}

	cacheTTL, err := parseDurationEnv("PLANNER_CACHE_TTL", 30*time.Minute)
	if err != nil {
		return cfg, err
	}

	rateLimitPerMinute, err := parseIntEnv("PLANNER_RATE_LIMIT_PER_MINUTE", 10)
	if err != nil {
		return cfg, err
	}

	maxRetries, err := parseNonNegativeIntEnv("PLANNER_MAX_RETRIES", 3)
	if err != nil {
		return cfg, err
	}

	retryBaseDelay, err := parseDurationEnv("PLANNER_RETRY_BASE_DELAY", time.Second)
	if err != nil {
		return cfg, err
	}

	renegotiation, err := parseBoolEnv("PLANNER_RENEGOTIATION", true)
	if err != nil {
		return cfg, err
	}

	maxRenegotiations, err := parseIntEnv("PLANNER_MAX_RENEGOTIATIONS", 3)
	if err != nil {
		return cfg, err
	}

	return PlannerConfig{
		UseMock:            useMock,
		CacheTTL:           cacheTTL,
		CacheBackend:       strings.ToLower(getEnv("PLANNER_CACHE_BACKEND", CacheBackendMemory)),
		RateLimitPerMinute: rateLimitPerMinute,
		MaxRetries:         maxRetries,
		RetryBaseDelay:     retryBaseDelay,
		Renegotiation:      renegotiation,
		MaxRenegotiations:  maxRenegotiations,
	}, nil
}

func loadOptimizer() (OptimizerConfig, error) {
	var cfg OptimizerConfig

	maxSuggestions, err := parseIntEnv("OPTIMIZER_MAX_SUGGESTIONS", 10)
	if err != nil {
		return cfg, err
	}

	minSavings, err := parseFloatEnv("OPTIMIZER_MIN_REPLACEMENT_SAVINGS", 2.00)
	if err != nil {
		return cfg, err
	}

	bulkDiscount, err := parseFloatEnv("OPTIMIZER_BULK_DISCOUNT", 0.15)
	if err != nil {
		return cfg, err
	}

	expensiveRatio, err := parseFloatEnv("OPTIMIZER_EXPENSIVE_RATIO", 1.5)
	if err != nil {
		return cfg, err
	}

	return OptimizerConfig{
		MaxSuggestions:          maxSuggestions,
		MinReplacementSavings:   minSavings,
		BulkDiscount:            bulkDiscount,
		ExpensiveIngredientRate: expensiveRatio,
	}, nil
}

// DSN возвращает строку подключения к базе данных.
func (c DatabaseConfig) DSN() string {
	user := url.UserPassword(c.User, c.Password)
	dsn := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}

	query := url.Values{}
	query.Set("sslmode", c.SSLMode)
	return dsn.String() + "?" + query.Encode()
}

// MockMode сообщает, что планы строятся локально без обращения к LLM.
func (c Config) MockMode() bool {
	return c.Planner.UseMock || strings.TrimSpace(c.AI.APIKey) == ""
}

func (c Config) validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("SERVER_PORT must be greater than 0")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}

	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}

	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("DB_MAX_IDLE_CONNS cannot exceed DB_MAX_OPEN_CONNS")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	return c.validatePlanning()
}

func (c Config) validatePlanning() error {
	if c.AI.Provider != ProviderGroq && c.AI.Provider != ProviderGemini {
		return fmt.Errorf("AI_PROVIDER must be %q or %q", ProviderGroq, ProviderGemini)
	}

	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("AI_TEMPERATURE must be between 0 and 2")
	}

	if c.AI.TopP <= 0 || c.AI.TopP > 1 {
		return fmt.Errorf("AI_TOP_P must be in (0, 1]")
	}

	if c.Planner.CacheBackend != CacheBackendMemory && c.Planner.CacheBackend != CacheBackendRedis {
		return fmt.Errorf("PLANNER_CACHE_BACKEND must be %q or %q", CacheBackendMemory, CacheBackendRedis)
	}

	if c.Planner.CacheBackend == CacheBackendRedis && c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required for the redis cache backend")
	}

	if c.Optimizer.MinReplacementSavings < 0 {
		return fmt.Errorf("OPTIMIZER_MIN_REPLACEMENT_SAVINGS cannot be negative")
	}

	if c.Optimizer.BulkDiscount <= 0 || c.Optimizer.BulkDiscount >= 1 {
		return fmt.Errorf("OPTIMIZER_BULK_DISCOUNT must be in (0, 1)")
	}

	if c.Optimizer.ExpensiveIngredientRate <= 1 {
		return fmt.Errorf("OPTIMIZER_EXPENSIVE_RATIO must be greater than 1")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

func parseIntEnv(key string, fallback int) (int, error) {
	parsed, err := parseNonNegativeIntEnv(key, fallback)
	if err != nil {
		return 0, err
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func parseNonNegativeIntEnv(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	if parsed < 0 {
		return 0, fmt.Errorf("%s cannot be negative", key)
	}

	return parsed, nil
}

func parseFloatEnv(key string, fallback float64) (float64, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}

	return parsed, nil
}

func parseBoolEnv(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}

	return parsed, nil
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func loadEnv() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}
