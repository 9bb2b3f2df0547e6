package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/straye-as/sales-assistant/internal/config"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrInvalidScope = errors.New("token missing required scope")
)

const keyCacheTTL = 24 * time.Hour

// JWTValidator validates bearer tokens issued by Azure AD
type JWTValidator struct {
	config     *config.AuthConfig
	httpClient *http.Client

	mu         sync.RWMutex
	publicKeys map[string]*rsa.PublicKey
	lastUpdate time.Time
}

// NewJWTValidator creates a new JWT validator
func NewJWTValidator(cfg *config.AuthConfig) *JWTValidator {
	return &JWTValidator{
		config:     cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		publicKeys: make(map[string]*rsa.PublicKey),
	}
}

// Configured reports whether tokens can be validated at all
func (v *JWTValidator) Configured() bool {
	return v.config.TenantId != "" && v.config.InstanceUrl != ""
}

// ValidateToken validates a JWT and returns the caller it identifies
func (v *JWTValidator) ValidateToken(tokenString string) (*Caller, error) {
	if !v.Configured() {
		return nil, fmt.Errorf("%w: bearer tokens are not configured", ErrInvalidToken)
	}

	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	kid, ok := token.Header["kid"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing kid in header", ErrInvalidToken)
	}

	publicKey, err := v.getPublicKey(kid)
	if err != nil {
		return nil, fmt.Errorf("failed to get public key: %w", err)
	}

	claims := jwt.MapClaims{}
	parsedToken, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsedToken.Valid {
		return nil, ErrInvalidToken
	}

	if v.config.ClientId != "" {
		aud, _ := claims.GetAudience()
		validAud := false
		for _, a := range aud {
			if a == v.config.ClientId || strings.Contains(a, v.config.ClientId) {
				validAud = true
				break
			}
		}
		if !validAud {
			return nil, fmt.Errorf("%w: invalid audience", ErrInvalidToken)
		}
	}

	iss, _ := claims.GetIssuer()
	if !strings.Contains(iss, v.config.TenantId) {
		return nil, fmt.Errorf("%w: invalid issuer", ErrInvalidToken)
	}

	scopes := ExtractScopes(claims)
	if !HasRequiredScope(scopes, v.config.RequiredScopes) {
		return nil, ErrInvalidScope
	}

	caller := &Caller{
		ID:          extractString(claims, "oid", "sub"),
		DisplayName: extractString(claims, "name", "unique_name", "preferred_username"),
		Email:       extractString(claims, "email", "upn", "unique_name"),
		Roles:       ExtractRoles(claims),
		Scopes:      scopes,
		AuthType:    AuthTypeJWT,
	}

	// Tokens without an object id are keyed by email
	if caller.ID == "" && caller.Email != "" {
		caller.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(caller.Email)).String()
	}

	return caller, nil
}

func (v *JWTValidator) getPublicKey(kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, exists := v.publicKeys[kid]
	fresh := time.Since(v.lastUpdate) < keyCacheTTL
	v.mu.RUnlock()
	if exists && fresh {
		return key, nil
	}

	if err := v.refreshPublicKeys(); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	key, exists = v.publicKeys[kid]
	if !exists {
		return nil, fmt.Errorf("public key not found for kid: %s", kid)
	}
	return key, nil
}

func (v *JWTValidator) jwksURL() string {
	return fmt.Sprintf("%s%s/discovery/v2.0/keys", v.config.InstanceUrl, v.config.TenantId)
}

func (v *JWTValidator) refreshPublicKeys() error {
	resp, err := v.httpClient.Get(v.jwksURL())
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var jwks struct {
		Keys []struct {
			Kid string `json:"kid"`
			N   string `json:"n"`
			E   string `json:"e"`
			Kty string `json:"kty"`
			Use string `json:"use"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("failed to decode JWKS: %w", err)
	}

	newKeys := make(map[string]*rsa.PublicKey)
	for _, key := range jwks.Keys {
		if key.Kty != "RSA" || key.Use != "sig" {
			continue
		}
		nBytes, err := base64.RawURLEncoding.DecodeString(key.N)
		if err != nil {
			continue
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(key.E)
		if err != nil {
			continue
		}
		e := 0
		for _, b := range eBytes {
			e = e<<8 + int(b)
		}
		newKeys[key.Kid] = &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}
	}

	v.mu.Lock()
	v.publicKeys = newKeys
	v.lastUpdate = time.Now()
	v.mu.Unlock()

	return nil
}

func extractString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if val, ok := claims[key]; ok {
			if str, ok := val.(string); ok && str != "" {
				return str
			}
		}
	}
	return ""
}

// ExtractRoles extracts app roles from the roles or role claim
func ExtractRoles(claims jwt.MapClaims) []string {
	roles := []string{}
	for _, key := range []string{"roles", "role"} {
		val, ok := claims[key]
		if !ok {
			continue
		}
		switch v := val.(type) {
		case []interface{}:
			for _, r := range v {
				if str, ok := r.(string); ok {
					roles = append(roles, str)
				}
			}
		case []string:
			roles = append(roles, v...)
		case string:
			roles = append(roles, v)
		}
	}
	return roles
}

// ExtractScopes extracts delegated scopes from the scp or scope claim
func ExtractScopes(claims jwt.MapClaims) []string {
	scopes := []string{}
	for _, key := range []string{"scp", "scope"} {
		if str, ok := claims[key].(string); ok && str != "" {
			scopes = append(scopes, strings.Fields(str)...)
		}
	}
	return scopes
}

// HasRequiredScope reports whether any of the comma separated required scopes is present
func HasRequiredScope(tokenScopes []string, required string) bool {
	required = strings.TrimSpace(required)
	if required == "" {
		return true
	}

	for _, req := range strings.Split(required, ",") {
		req = strings.TrimSpace(req)
		if req == "" {
			continue
		}
		for _, scope := range tokenScopes {
			if strings.EqualFold(scope, req) {
				return true
			}
		}
	}
	return false
}
