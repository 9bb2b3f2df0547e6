// Package erptest runs an in-process fake of the ERP JSON-RPC endpoint for tests.
package erptest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/straye-as/sales-assistant/internal/config"
	"github.com/straye-as/sales-assistant/internal/erp"
)

const (
	Database = "test_db"
	Username = "bot@example.com"
	Password = "secret"
	UID      = 2
)

// Handler answers one model method. Returning an *erp.Fault sends it as a JSON-RPC error.
type Handler func(args []any, kwargs map[string]any) (any, error)

// Call records one execute_kw invocation
type Call struct {
	Model  string
	Method string
	Args   []any
	Kwargs map[string]any
}

// Server is a fake ERP
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	handlers      map[string]Handler
	calls         []Call
	logins        int
	failLogins    int
	expireSession bool
}

// NewServer starts a fake ERP that is closed when the test ends
func NewServer(t testing.TB) *Server {
	s := &Server{handlers: make(map[string]Handler)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Config returns an ERP config pointing at this server
func (s *Server) Config() *config.ERPConfig {
	return &config.ERPConfig{
		URL:        s.URL,
		Database:   Database,
		Username:   Username,
		Password:   Password,
		Timeout:    5,
		MaxRetries: 3,
	}
}

// Handle registers a handler for model.method
func (s *Server) Handle(model, method string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[model+"."+method] = h
}

// Respond registers a handler that always returns result
func (s *Server) Respond(model, method string, result any) {
	s.Handle(model, method, func([]any, map[string]any) (any, error) {
		return result, nil
	})
}

// FailLogins makes the next n login attempts answer with HTTP 503
func (s *Server) FailLogins(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLogins = n
}

// ExpireSession makes the next execute_kw answer with a session fault
func (s *Server) ExpireSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireSession = true
}

// Logins returns the number of successful logins
func (s *Server) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

// Calls returns every recorded execute_kw call
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the recorded calls of model.method
func (s *Server) CallsTo(model, method string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Model == model && c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

type request struct {
	ID     int64 `json:"id"`
	Params struct {
		Service string `json:"service"`
		Method  string `json:"method"`
		Args    []any  `json:"args"`
	} `json:"params"`
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/jsonrpc" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch req.Params.Service + "." + req.Params.Method {
	case "common.version":
		s.reply(w, req.ID, map[string]any{"server_version": "17.0"}, nil)
	case "common.login":
		s.login(w, req)
	case "object.execute_kw":
		s.execute(w, req)
	default:
		s.reply(w, req.ID, nil, fmt.Errorf("unknown service call %s.%s", req.Params.Service, req.Params.Method))
	}
}

func (s *Server) login(w http.ResponseWriter, req request) {
	s.mu.Lock()
	if s.failLogins > 0 {
		s.failLogins--
		s.mu.Unlock()
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	s.mu.Unlock()

	args := req.Params.Args
	if len(args) != 3 || args[0] != Database || args[1] != Username || args[2] != Password {
		s.reply(w, req.ID, false, nil)
		return
	}

	s.mu.Lock()
	s.logins++
	s.mu.Unlock()
	s.reply(w, req.ID, UID, nil)
}

func (s *Server) execute(w http.ResponseWriter, req request) {
	args := req.Params.Args
	if len(args) < 5 {
		s.reply(w, req.ID, nil, errors.New("execute_kw needs at least 5 arguments"))
		return
	}
	if args[2] != Password {
		s.reply(w, req.ID, nil, &erp.Fault{Code: 200, Message: "Odoo Server Error", Name: "odoo.exceptions.AccessDenied", Detail: "Access Denied"})
		return
	}

	model, _ := args[3].(string)
	method, _ := args[4].(string)
	var callArgs []any
	if len(args) > 5 {
		callArgs, _ = args[5].([]any)
	}
	kwargs := map[string]any{}
	if len(args) > 6 {
		if kw, ok := args[6].(map[string]any); ok {
			kwargs = kw
		}
	}

	s.mu.Lock()
	if s.expireSession {
		s.expireSession = false
		s.mu.Unlock()
		s.reply(w, req.ID, nil, &erp.Fault{Code: 100, Message: "Odoo Session Expired", Name: "odoo.http.SessionExpiredException", Detail: "Session expired"})
		return
	}
	s.calls = append(s.calls, Call{Model: model, Method: method, Args: callArgs, Kwargs: kwargs})
	h, ok := s.handlers[model+"."+method]
	s.mu.Unlock()

	if !ok {
		s.reply(w, req.ID, nil, fmt.Errorf("no handler for %s.%s", model, method))
		return
	}

	result, err := h(callArgs, kwargs)
	s.reply(w, req.ID, result, err)
}

func (s *Server) reply(w http.ResponseWriter, id int64, result any, err error) {
	body := map[string]any{"jsonrpc": "2.0", "id": id}
	if err != nil {
		var fault *erp.Fault
		if !errors.As(err, &fault) {
			fault = &erp.Fault{Code: 200, Message: "Odoo Server Error", Name: "odoo.exceptions.UserError", Detail: err.Error()}
		}
		body["error"] = map[string]any{
			"code":    fault.Code,
			"message": fault.Message,
			"data":    map[string]any{"name": fault.Name, "message": fault.Detail},
		}
	} else {
		body["result"] = result
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
