package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/straye-as/sales-assistant/internal/secrets"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	ERP       ERPConfig
	LLM       LLMConfig
	Assistant AssistantConfig
	Audit     AuditConfig
	Jobs      JobsConfig
	Auth      AuthConfig
	Secrets   SecretsConfig
	Logging   LoggingConfig
	Server    ServerConfig
	CORS      CORSConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

// ERPConfig holds the JSON-RPC connection settings for the ERP backend
type ERPConfig struct {
	// URL is the ERP base URL, e.g. https://erp.example.com
	URL      string
	Database string
	Username string
	// Password is loaded from the erp-password secret in vault mode
	Password string
	// Timeout is the per-call HTTP timeout (seconds)
	Timeout int
	// MaxRetries is the number of login attempts made by Connect
	MaxRetries int
}

// LLMConfig holds settings for the OpenAI-compatible completion endpoint
type LLMConfig struct {
	BaseURL string
	// APIKey is loaded from the llm-api-key secret in vault mode
	APIKey string
	Model  string
	// Timeout is the completion request timeout (seconds)
	Timeout     int
	Temperature float32
}

// AssistantConfig holds reply and lookup limits
type AssistantConfig struct {
	DefaultSalesRep    string
	CurrencyLabel      string
	ProductListLimit   int
	ProductSearchLimit int
	ProductMatchLimit  int
	OrderListLimit     int
	AmbiguousLimit     int
	PricelistRuleLimit int
}

// AuditConfig controls persistence of handled chat messages
type AuditConfig struct {
	Enabled bool
	// Driver is "postgres" or "sqlite"
	Driver          string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	RetentionDays   int
}

// JobsConfig holds cron expressions for background jobs
type JobsConfig struct {
	Enabled        bool
	AuditPurgeCron string
	ERPHealthCron  string
	JobTimeout     int
}

// AuthConfig controls optional caller authentication
type AuthConfig struct {
	// Enabled makes authentication mandatory on the chat endpoint
	Enabled        bool
	APIKey         string
	TenantId       string
	ClientId       string
	InstanceUrl    string
	RequiredScopes string
	// AuditRoles may read the intent audit endpoints. The API key caller has the api_service role.
	AuditRoles []string
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	EnableSwagger  bool
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	// AllowedOrigins is a list of allowed origins; "*" allows all
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	// MaxAge is the max age (in seconds) for preflight cache
	MaxAge int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	ContentSecurityPolicy string
	FrameOptions          string
	ContentTypeNosniff    bool
	XSSProtection         string
	ReferrerPolicy        string
	PermissionsPolicy     string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled bool
	// RequestsPerMinute is the rate limit for unauthenticated requests (per IP)
	RequestsPerMinute int
	// RequestsPerMinuteAuth is the rate limit for authenticated requests (per user)
	RequestsPerMinuteAuth int
	WhitelistIPs          []string
	WhitelistPaths        []string
	// TrustedProxies are peer addresses whose X-Forwarded-For and X-Real-IP headers are honoured
	TrustedProxies []string
}

// AuditReaderRoles returns the roles allowed to read audit entries, falling back to api_service
func (a *AuthConfig) AuditReaderRoles() []string {
	if len(a.AuditRoles) == 0 {
		return []string{"api_service"}
	}
	return a.AuditRoles
}

// TimeoutDuration returns the ERP call timeout as duration
func (e *ERPConfig) TimeoutDuration() time.Duration {
	return time.Duration(e.Timeout) * time.Second
}

// TimeoutDuration returns the completion timeout as duration
func (l *LLMConfig) TimeoutDuration() time.Duration {
	return time.Duration(l.Timeout) * time.Second
}

// ConnectionString builds PostgreSQL connection string
func (a *AuditConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		a.Host, a.Port, a.User, a.Password, a.Name, a.SSLMode,
	)
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (a *AuditConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(a.ConnMaxLifetime) * time.Second
}

// RetentionDuration returns how long audit rows are kept
func (a *AuditConfig) RetentionDuration() time.Duration {
	return time.Duration(a.RetentionDays) * 24 * time.Hour
}

// JobTimeoutDuration returns the per-run job timeout as duration
func (j *JobsConfig) JobTimeoutDuration() time.Duration {
	return time.Duration(j.JobTimeout) * time.Second
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// Validate reports missing settings required to serve chat requests
func (c *Config) Validate() error {
	var missing []string
	if c.ERP.URL == "" {
		missing = append(missing, "erp.url")
	}
	if c.ERP.Database == "" {
		missing = append(missing, "erp.database")
	}
	if c.ERP.Username == "" {
		missing = append(missing, "erp.username")
	}
	if c.ERP.Password == "" {
		missing = append(missing, "erp.password")
	}
	if c.LLM.APIKey == "" {
		missing = append(missing, "llm.apiKey")
	}
	if c.Audit.Enabled && c.Audit.Driver != "postgres" && c.Audit.Driver != "sqlite" {
		return fmt.Errorf("unsupported audit driver: %q", c.Audit.Driver)
	}
	if len(missing) > 0 {
		return errors.New("missing required config: " + strings.Join(missing, ", "))
	}
	return nil
}

// Load loads configuration from file and environment variables.
// Use LoadWithSecrets for full secret resolution.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyLegacyEnv(&cfg, v)

	return &cfg, nil
}

// applyLegacyEnv accepts the flat variable names used by existing deployments
func applyLegacyEnv(cfg *Config, v *viper.Viper) {
	if cfg.ERP.URL == "" {
		cfg.ERP.URL = v.GetString("ODOO_URL")
	}
	if cfg.ERP.Database == "" {
		cfg.ERP.Database = v.GetString("ODOO_DB")
	}
	if cfg.ERP.Username == "" {
		cfg.ERP.Username = v.GetString("ODOO_USERNAME")
	}
	if cfg.ERP.Password == "" {
		cfg.ERP.Password = v.GetString("ODOO_PASSWORD")
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = v.GetString("OPENAI_API_KEY")
	}
	if base := v.GetString("OPENAI_BASE_URL"); base != "" {
		cfg.LLM.BaseURL = base
	}
	if model := v.GetString("OPENAI_MODEL"); model != "" {
		cfg.LLM.Model = model
	}
	if cfg.Auth.APIKey == "" {
		cfg.Auth.APIKey = v.GetString("ADMIN_API_KEY")
	}
	if cfg.Auth.TenantId == "" {
		cfg.Auth.TenantId = v.GetString("AZURE_TENANT_ID")
	}
	if cfg.Auth.ClientId == "" {
		cfg.Auth.ClientId = v.GetString("AZURE_CLIENT_ID")
	}
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}
}

// LoadWithSecrets loads configuration and resolves secrets from the configured source.
//
// Key Vault is used when BOTH conditions are met:
// 1. USE_AZURE_KEY_VAULT environment variable is set to "true"
// 2. Environment is "staging" or "production"
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	useKeyVault := strings.ToLower(os.Getenv("USE_AZURE_KEY_VAULT")) == "true"
	isValidEnv := cfg.App.Environment == "staging" || cfg.App.Environment == "production"

	if !useKeyVault {
		logger.Info("USE_AZURE_KEY_VAULT not enabled, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if !isValidEnv {
		logger.Warn("USE_AZURE_KEY_VAULT is enabled but environment is not staging or production, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if cfg.Secrets.KeyVaultName == "" {
		return nil, fmt.Errorf("AZURE_KEY_VAULT_NAME is required when USE_AZURE_KEY_VAULT=true")
	}

	logger.Info("Azure Key Vault enabled for secrets",
		zap.String("environment", cfg.App.Environment),
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName),
	)

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SourceVault,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider (USE_AZURE_KEY_VAULT=true requires valid vault): %w", err)
	}

	if err := ResolveSecrets(ctx, cfg, provider); err != nil {
		return nil, err
	}

	logger.Info("Secrets loaded from vault successfully")
	return cfg, nil
}

// SecretSource is the subset of the secrets provider used to fill in credentials
type SecretSource interface {
	GetSecretOrEnv(ctx context.Context, secretName, envName string) (string, error)
}

// ResolveSecrets fills credentials from the secret source. The ERP password and
// the LLM key are required; the rest keep their current value when absent.
func ResolveSecrets(ctx context.Context, cfg *Config, src SecretSource) error {
	password, err := src.GetSecretOrEnv(ctx, "erp-password", "ERP_PASSWORD")
	if err != nil {
		return fmt.Errorf("failed to get erp-password: %w", err)
	}
	cfg.ERP.Password = password

	apiKey, err := src.GetSecretOrEnv(ctx, "llm-api-key", "LLM_APIKEY")
	if err != nil {
		return fmt.Errorf("failed to get llm-api-key: %w", err)
	}
	cfg.LLM.APIKey = apiKey

	if user, err := src.GetSecretOrEnv(ctx, "erp-username", "ERP_USERNAME"); err == nil && user != "" {
		cfg.ERP.Username = user
	}
	if key, err := src.GetSecretOrEnv(ctx, "admin-api-key", "ADMIN_API_KEY"); err == nil && key != "" {
		cfg.Auth.APIKey = key
	}
	if cfg.Audit.Enabled && cfg.Audit.Driver == "postgres" {
		if pw, err := src.GetSecretOrEnv(ctx, "audit-db-password", "AUDIT_PASSWORD"); err == nil && pw != "" {
			cfg.Audit.Password = pw
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Sales Assistant API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8000)

	// ERP defaults
	v.SetDefault("erp.url", "")
	v.SetDefault("erp.database", "")
	v.SetDefault("erp.username", "")
	v.SetDefault("erp.password", "")
	v.SetDefault("erp.timeout", 30)
	v.SetDefault("erp.maxRetries", 3)

	// LLM defaults
	v.SetDefault("llm.baseURL", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.apiKey", "")
	v.SetDefault("llm.model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.timeout", 30)
	v.SetDefault("llm.temperature", 0)

	// Assistant defaults
	v.SetDefault("assistant.defaultSalesRep", "Admin")
	v.SetDefault("assistant.currencyLabel", "VNĐ")
	v.SetDefault("assistant.productListLimit", 10)
	v.SetDefault("assistant.productSearchLimit", 20)
	v.SetDefault("assistant.productMatchLimit", 15)
	v.SetDefault("assistant.orderListLimit", 10)
	v.SetDefault("assistant.ambiguousLimit", 5)
	v.SetDefault("assistant.pricelistRuleLimit", 10)

	// Audit defaults
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.driver", "postgres")
	v.SetDefault("audit.host", "localhost")
	v.SetDefault("audit.port", 5432)
	v.SetDefault("audit.name", "sales_assistant")
	v.SetDefault("audit.user", "sales_assistant")
	v.SetDefault("audit.password", "")
	v.SetDefault("audit.sslMode", "disable")
	v.SetDefault("audit.sqlitePath", "./data/audit.db")
	v.SetDefault("audit.maxOpenConns", 10)
	v.SetDefault("audit.maxIdleConns", 2)
	v.SetDefault("audit.connMaxLifetime", 300)
	v.SetDefault("audit.retentionDays", 90)

	// Job defaults
	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.auditPurgeCron", "0 30 3 * * *") // 03:30 every day
	v.SetDefault("jobs.erpHealthCron", "@every 5m")
	v.SetDefault("jobs.jobTimeout", 60)

	// Auth defaults
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.apiKey", "")
	v.SetDefault("auth.instanceUrl", "https://login.microsoftonline.com/")
	v.SetDefault("auth.auditRoles", []string{"api_service", "Audit.Read"})

	// Secrets defaults
	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Server defaults
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 120)
	v.SetDefault("server.requestTimeout", 90)
	v.SetDefault("server.enableSwagger", true)

	// CORS defaults - the chat widget is embedded on arbitrary origins
	v.SetDefault("cors.allowedOrigins", []string{"*"})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	// Security header defaults
	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.hstsPreload", false)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.xssProtection", "1; mode=block")
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")
	v.SetDefault("security.permissionsPolicy", "geolocation=(), microphone=(), camera=()")

	// Rate limiting defaults
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 30)
	v.SetDefault("rateLimit.requestsPerMinuteAuth", 60)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/", "/health", "/health/ready"})
	v.SetDefault("rateLimit.trustedProxies", []string{})
}
