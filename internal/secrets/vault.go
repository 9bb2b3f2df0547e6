package secrets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"go.uber.org/zap"
)

// VaultClient wraps Azure Key Vault client for secret retrieval with a TTL cache
type VaultClient struct {
	client    *azsecrets.Client
	vaultName string
	logger    *zap.Logger
	cache     *ttlCache
}

// VaultConfig holds configuration for the vault client
type VaultConfig struct {
	VaultName    string
	CacheEnabled bool
	CacheTTL     time.Duration
}

// NewVaultClient creates a new Azure Key Vault client.
// DefaultAzureCredential covers environment credentials, managed identity and the Azure CLI.
func NewVaultClient(cfg *VaultConfig, logger *zap.Logger) (*VaultClient, error) {
	if cfg.VaultName == "" {
		return nil, fmt.Errorf("vault name is required")
	}

	logger.Info("Initializing Azure Key Vault client",
		zap.String("vault_name", cfg.VaultName),
		zap.Bool("cache_enabled", cfg.CacheEnabled),
	)

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		logger.Error("Failed to create Azure credential", zap.Error(err))
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	vaultURL := fmt.Sprintf("https://%s.vault.azure.net/", cfg.VaultName)

	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		logger.Error("Failed to create Key Vault client", zap.Error(err))
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}

	var cache *ttlCache
	if cfg.CacheEnabled {
		ttl := cfg.CacheTTL
		if ttl == 0 {
			ttl = 5 * time.Minute
		}
		cache = newTTLCache(ttl, time.Now)
	}

	return &VaultClient{
		client:    client,
		vaultName: cfg.VaultName,
		logger:    logger,
		cache:     cache,
	}, nil
}

// GetSecret retrieves a secret from Azure Key Vault
func (v *VaultClient) GetSecret(ctx context.Context, secretName string) (string, error) {
	if value, ok := v.cache.get(secretName); ok {
		v.logger.Debug("Secret retrieved from cache", zap.String("secret_name", secretName))
		return value, nil
	}

	resp, err := v.client.GetSecret(ctx, secretName, "", nil)
	if err != nil {
		v.logger.Error("Failed to get secret from Key Vault",
			zap.String("secret_name", secretName),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to get secret '%s': %w", secretName, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("secret '%s' has no value", secretName)
	}

	v.cache.put(secretName, *resp.Value)
	return *resp.Value, nil
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

// ttlCache is safe for concurrent use; a nil cache stores nothing
type ttlCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cachedSecret
}

func newTTLCache(ttl time.Duration, now func() time.Time) *ttlCache {
	return &ttlCache{ttl: ttl, now: now, entries: make(map[string]cachedSecret)}
}

func (c *ttlCache) get(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[name]
	if !ok {
		return "", false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, name)
		return "", false
	}
	return entry.value, true
}

func (c *ttlCache) put(name, value string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = cachedSecret{value: value, expiresAt: c.now().Add(c.ttl)}
}
