// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package rpc is a JSON-RPC 2.0 client for Zilliqa API nodes.
package rpc

import (
	"encoding/json"
	"fmt"
)

// Request is a JSON-RPC request sent to the node
type Request struct {
	Jsonrpc string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

// Response is a JSON-RPC response from the node
type Response struct {
	Jsonrpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      any             `json:"id"`
}

// Error is a JSON-RPC error object
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Standard JSON-RPC error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// Node-specific error codes
const (
	// Returned by GetBalance for an address that has never received funds
	AccountNotCreated = -5
)

// NewRequest creates a new JSON-RPC request. Nil params are sent as [].
func NewRequest(method string, params []any, id uint64) *Request {
	if params == nil {
		params = []any{}
	}
	return &Request{
		Jsonrpc: "2.0",
		Method:  method,
		Params:  params,
		ID:      id,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// ParseResult unmarshals the result into v
func (r *Response) ParseResult(v any) error {
	if len(r.Result) == 0 {
		return fmt.Errorf("no result in response")
	}
	if err := json.Unmarshal(r.Result, v); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return nil
}

// HasError checks if the response contains an error
func (r *Response) HasError() bool {
	return r.Error != nil
}
