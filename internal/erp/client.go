// Package erp provides JSON-RPC connectivity to the Odoo-compatible ERP backend.
// All reads and writes of partners, products, pricelists, sales orders and CRM
// leads go through a single Client handle that is constructed once and injected.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/straye-as/sales-assistant/internal/config"
	"go.uber.org/zap"
)

const (
	// Default retry configuration for login attempts
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 10 * time.Second
	defaultBackoffFactor  = 2.0

	defaultTimeout            = 30 * time.Second
	defaultHealthCheckTimeout = 5 * time.Second
)

var (
	// ErrAuthenticationFailed is returned when the ERP rejects the configured credentials
	ErrAuthenticationFailed = errors.New("erp authentication failed")
	// ErrNotConfigured is returned when the ERP URL or credentials are missing
	ErrNotConfigured = errors.New("erp connection not configured")
)

// Fault is an error reported by the ERP server inside a JSON-RPC response
type Fault struct {
	Code    int
	Message string
	Name    string
	Detail  string
}

func (f *Fault) Error() string {
	if f.Detail != "" {
		return f.Detail
	}
	return f.Message
}

// IsSessionFault reports whether the fault means the credentials or session are no longer valid
func (f *Fault) IsSessionFault() bool {
	return f.Code == 100 ||
		strings.Contains(f.Name, "SessionExpired") ||
		strings.Contains(f.Name, "AccessDenied")
}

// SearchOptions narrows a search or search_read call
type SearchOptions struct {
	Limit  int
	Offset int
	Order  string
}

// Client talks to the ERP over JSON-RPC. It is safe for concurrent use.
// The only shared state is the authenticated user id.
type Client struct {
	config     *config.ERPConfig
	httpClient *http.Client
	logger     *zap.Logger
	endpoint   string
	maxRetries int

	mu  sync.Mutex
	uid int64

	requestID atomic.Int64

	// sleep is replaced in tests to skip backoff delays
	sleep func(context.Context, time.Duration) error
}

// HealthStatus represents the health check result for the ERP connection
type HealthStatus struct {
	Status        string        `json:"status"`
	Latency       time.Duration `json:"latency_ms"`
	ServerVersion string        `json:"server_version,omitempty"`
	Authenticated bool          `json:"authenticated"`
	Error         string        `json:"error,omitempty"`
}

// NewClient creates an ERP client. It does not contact the server; call Connect
// to authenticate eagerly, otherwise the first call logs in.
func NewClient(cfg *config.ERPConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil || cfg.URL == "" || cfg.Database == "" || cfg.Username == "" {
		return nil, ErrNotConfigured
	}

	timeout := cfg.TimeoutDuration()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	logger.Info("Initializing ERP client",
		zap.String("url", cfg.URL),
		zap.String("database", cfg.Database),
		zap.Duration("timeout", timeout),
		zap.Int("max_login_attempts", maxRetries),
	)

	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		endpoint:   strings.TrimRight(cfg.URL, "/") + "/jsonrpc",
		maxRetries: maxRetries,
		sleep:      sleepContext,
	}, nil
}

// Connect authenticates with retry and exponential backoff
func (c *Client) Connect(ctx context.Context) error {
	backoff := defaultInitialBackoff
	var err error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		c.logger.Info("Attempting ERP login",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxRetries),
		)

		_, err = c.login(ctx)
		if err == nil {
			c.logger.Info("ERP connection established successfully",
				zap.Int("attempts_taken", attempt),
			)
			return nil
		}

		// Bad credentials will not fix themselves
		if errors.Is(err, ErrAuthenticationFailed) {
			return err
		}

		c.logger.Warn("ERP login failed",
			zap.Error(err),
			zap.Int("attempt", attempt),
		)
		if attempt < c.maxRetries {
			if sleepErr := c.sleep(ctx, backoff); sleepErr != nil {
				return sleepErr
			}
			backoff = min(time.Duration(float64(backoff)*defaultBackoffFactor), defaultMaxBackoff)
		}
	}

	return fmt.Errorf("failed to connect to ERP after %d attempts: %w", c.maxRetries, err)
}

func (c *Client) login(ctx context.Context) (int64, error) {
	var raw json.RawMessage
	err := c.rpc(ctx, "common", "login", []any{c.config.Database, c.config.Username, c.config.Password}, &raw)
	if err != nil {
		return 0, err
	}

	var uid int64
	if err := json.Unmarshal(raw, &uid); err != nil || uid == 0 {
		// The server answers false for unknown users or wrong passwords
		return 0, ErrAuthenticationFailed
	}

	c.mu.Lock()
	c.uid = uid
	c.mu.Unlock()
	return uid, nil
}

func (c *Client) session(ctx context.Context) (int64, error) {
	c.mu.Lock()
	uid := c.uid
	c.mu.Unlock()
	if uid != 0 {
		return uid, nil
	}
	return c.login(ctx)
}

func (c *Client) invalidate() {
	c.mu.Lock()
	c.uid = 0
	c.mu.Unlock()
}

// ExecuteKw calls a model method. When the server reports a session fault the
// client logs in again and retries the call exactly once.
func (c *Client) ExecuteKw(ctx context.Context, model, method string, args []any, kwargs map[string]any, out any) error {
	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	err := c.executeOnce(ctx, model, method, args, kwargs, out)

	var fault *Fault
	if errors.As(err, &fault) && fault.IsSessionFault() {
		c.logger.Warn("ERP session rejected, re-authenticating",
			zap.String("model", model),
			zap.String("method", method),
			zap.String("fault", fault.Name),
		)
		c.invalidate()
		err = c.executeOnce(ctx, model, method, args, kwargs, out)
	}
	return err
}

func (c *Client) executeOnce(ctx context.Context, model, method string, args []any, kwargs map[string]any, out any) error {
	uid, err := c.session(ctx)
	if err != nil {
		return err
	}

	params := []any{c.config.Database, uid, c.config.Password, model, method, args, kwargs}
	return c.rpc(ctx, "object", "execute_kw", params, out)
}

// SearchRead returns records matching domain, decoded into out (a pointer to a slice)
func (c *Client) SearchRead(ctx context.Context, model string, domain Domain, fields []string, opts *SearchOptions, out any) error {
	kwargs := map[string]any{"fields": fields}
	applySearchOptions(kwargs, opts)
	return c.ExecuteKw(ctx, model, "search_read", []any{normalize(domain)}, kwargs, out)
}

// Search returns the ids of records matching domain
func (c *Client) Search(ctx context.Context, model string, domain Domain, opts *SearchOptions) ([]int64, error) {
	kwargs := map[string]any{}
	applySearchOptions(kwargs, opts)

	var ids []int64
	if err := c.ExecuteKw(ctx, model, "search", []any{normalize(domain)}, kwargs, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// Read loads the given records, decoded into out (a pointer to a slice)
func (c *Client) Read(ctx context.Context, model string, ids []int64, fields []string, out any) error {
	return c.ExecuteKw(ctx, model, "read", []any{ids}, map[string]any{"fields": fields}, out)
}

// Create inserts a record and returns its id
func (c *Client) Create(ctx context.Context, model string, values map[string]any) (int64, error) {
	var id int64
	if err := c.ExecuteKw(ctx, model, "create", []any{values}, nil, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// Write updates the given records
func (c *Client) Write(ctx context.Context, model string, ids []int64, values map[string]any) error {
	return c.ExecuteKw(ctx, model, "write", []any{ids, values}, nil, nil)
}

// Unlink deletes the given records
func (c *Client) Unlink(ctx context.Context, model string, ids []int64) error {
	return c.ExecuteKw(ctx, model, "unlink", []any{ids}, nil, nil)
}

// CallButton runs a workflow method such as action_confirm on the given records
func (c *Client) CallButton(ctx context.Context, model, method string, ids []int64) error {
	return c.ExecuteKw(ctx, model, method, []any{ids}, nil, nil)
}

// Version returns the server version string without authenticating
func (c *Client) Version(ctx context.Context) (string, error) {
	var v struct {
		ServerVersion string `json:"server_version"`
	}
	if err := c.rpc(ctx, "common", "version", []any{}, &v); err != nil {
		return "", err
	}
	return v.ServerVersion, nil
}

// HealthCheck performs a health check on the ERP connection
func (c *Client) HealthCheck(ctx context.Context) *HealthStatus {
	if c == nil {
		return &HealthStatus{Status: "disabled"}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultHealthCheckTimeout)
		defer cancel()
	}

	start := time.Now()
	version, err := c.Version(ctx)
	latency := time.Since(start)

	c.mu.Lock()
	authenticated := c.uid != 0
	c.mu.Unlock()

	status := &HealthStatus{
		Latency:       latency,
		ServerVersion: version,
		Authenticated: authenticated,
	}
	if err != nil {
		c.logger.Warn("ERP health check failed",
			zap.Error(err),
			zap.Duration("latency", latency),
		)
		status.Status = "unhealthy"
		status.Error = err.Error()
		return status
	}

	status.Status = "healthy"
	return status
}

// Close releases idle HTTP connections
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.httpClient.CloseIdleConnections()
	c.logger.Info("ERP client closed")
	return nil
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int64     `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"data"`
}

func (c *Client) rpc(ctx context.Context, service, method string, args []any, out any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      c.requestID.Add(1),
	})
	if err != nil {
		return fmt.Errorf("failed to encode ERP request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build ERP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ERP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ERP returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("failed to decode ERP response: %w", err)
	}

	c.logger.Debug("ERP call",
		zap.String("service", service),
		zap.String("method", method),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("fault", rpcResp.Error != nil),
	)

	if rpcResp.Error != nil {
		return &Fault{
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
			Name:    rpcResp.Error.Data.Name,
			Detail:  rpcResp.Error.Data.Message,
		}
	}

	if out == nil || len(rpcResp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("failed to decode ERP result of %s.%s: %w", service, method, err)
	}
	return nil
}

func applySearchOptions(kwargs map[string]any, opts *SearchOptions) {
	if opts == nil {
		return
	}
	if opts.Limit > 0 {
		kwargs["limit"] = opts.Limit
	}
	if opts.Offset > 0 {
		kwargs["offset"] = opts.Offset
	}
	if opts.Order != "" {
		kwargs["order"] = opts.Order
	}
}

func normalize(d Domain) Domain {
	if d == nil {
		return Domain{}
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
