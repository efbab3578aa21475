// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// MockAccount is the balance state MockNode reports for an address
type MockAccount struct {
	Balance string
	Nonce   uint64
}

// MockNode is a minimal Zilliqa JSON-RPC node answering GetBalance.
// Unknown addresses get the node's "Account is not created" error.
type MockNode struct {
	Server *httptest.Server

	mu       sync.Mutex
	accounts map[string]MockAccount
	calls    int
}

// NewMockNode starts a mock node that is closed when the test completes
func NewMockNode(t *testing.T) *MockNode {
	t.Helper()

	m := &MockNode{accounts: make(map[string]MockAccount)}
	m.Server = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.Server.Close)
	return m
}

// AddAccount registers a balance (in Qa) for a hex address
func (m *MockNode) AddAccount(address, balance string, nonce uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[strings.ToLower(address)] = MockAccount{Balance: balance, Nonce: nonce}
}

// URL returns the endpoint to pass to an RPC client
func (m *MockNode) URL() string {
	return m.Server.URL
}

// Calls returns how many requests the node has served
func (m *MockNode) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockNode) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     uint64 `json:"id"`
		Method string `json:"method"`
		Params []any  `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.calls++
	var (
		acct  MockAccount
		found bool
	)
	if req.Method == "GetBalance" && len(req.Params) == 1 {
		if addr, ok := req.Params[0].(string); ok {
			acct, found = m.accounts[strings.ToLower(addr)]
		}
	}
	m.mu.Unlock()

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	switch {
	case req.Method != "GetBalance":
		resp["error"] = map[string]any{"code": -32601, "message": "Method not found"}
	case !found:
		resp["error"] = map[string]any{"code": -5, "message": "Account is not created"}
	default:
		resp["result"] = map[string]any{"balance": acct.Balance, "nonce": acct.Nonce}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
