// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aplane-algo/zilstore/internal/address"
)

// ProviderError wraps a failed provider call with the method name
type ProviderError struct {
	Method string
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Method, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Provider exposes typed node queries. Calls are made once; there is no retry.
type Provider struct {
	client *Client
}

// NewProvider creates a provider over client
func NewProvider(client *Client) *Provider {
	return &Provider{client: client}
}

func (p *Provider) call(ctx context.Context, method string, result any, params ...any) error {
	if err := p.client.Call(ctx, method, params, result); err != nil {
		return &ProviderError{Method: method, Err: err}
	}
	return nil
}

// nodeAddress converts hex (any case, optional 0x) or zil1... to the
// lowercase 40-hex form the node expects.
func nodeAddress(method, addr string) (string, error) {
	var (
		norm string
		err  error
	)
	if address.IsBech32(addr) {
		norm, err = address.FromBech32(addr)
	} else {
		norm, err = address.Normalize(addr)
	}
	if err != nil {
		return "", &ProviderError{Method: method, Err: err}
	}
	return norm, nil
}

// GetBalance returns the balance (in Qa) and nonce of addr. An address the
// node has never seen has a zero balance and nonce.
func (p *Provider) GetBalance(ctx context.Context, addr string) (*BalanceAndNonce, error) {
	const method = "GetBalance"
	norm, err := nodeAddress(method, addr)
	if err != nil {
		return nil, err
	}

	var result BalanceAndNonce
	err = p.call(ctx, method, &result, norm)
	var rpcErr *Error
	if errors.As(err, &rpcErr) && rpcErr.Code == AccountNotCreated {
		return &BalanceAndNonce{Balance: "0"}, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetLatestTxBlock returns the most recent transaction block
func (p *Provider) GetLatestTxBlock(ctx context.Context) (*TxBlock, error) {
	var result TxBlock
	if err := p.call(ctx, "GetLatestTxBlock", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTransaction returns a confirmed transaction by hash
func (p *Provider) GetTransaction(ctx context.Context, txHash string) (*Transaction, error) {
	var result Transaction
	if err := p.call(ctx, "GetTransaction", &result, txHash); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTransactionsForTxBlock returns transaction hashes of a block, one list per microblock
func (p *Provider) GetTransactionsForTxBlock(ctx context.Context, blockNum string) ([][]string, error) {
	var result [][]string
	if err := p.call(ctx, "GetTransactionsForTxBlock", &result, blockNum); err != nil {
		return nil, err
	}
	return result, nil
}

// GetMinimumGasPrice returns the current minimum gas price in Qa
func (p *Provider) GetMinimumGasPrice(ctx context.Context) (string, error) {
	var result string
	if err := p.call(ctx, "GetMinimumGasPrice", &result); err != nil {
		return "", err
	}
	return result, nil
}

// GetSmartContractInit returns the immutable init parameters of a contract
func (p *Provider) GetSmartContractInit(ctx context.Context, contract string) ([]ContractValue, error) {
	const method = "GetSmartContractInit"
	norm, err := nodeAddress(method, contract)
	if err != nil {
		return nil, err
	}
	var result []ContractValue
	if err := p.call(ctx, method, &result, norm); err != nil {
		return nil, err
	}
	return result, nil
}

// GetSmartContractSubState returns part of a contract's mutable state.
// An empty variable name returns the whole state. The result shape depends on
// the contract, so it is returned undecoded.
func (p *Provider) GetSmartContractSubState(ctx context.Context, contract, variable string, indices []string) (json.RawMessage, error) {
	const method = "GetSmartContractSubState"
	norm, err := nodeAddress(method, contract)
	if err != nil {
		return nil, err
	}
	if indices == nil {
		indices = []string{}
	}
	var result json.RawMessage
	if err := p.call(ctx, method, &result, norm, variable, indices); err != nil {
		return nil, err
	}
	return result, nil
}

// GetContractAddressFromTransactionID returns the address of the contract a
// deployment transaction created
func (p *Provider) GetContractAddressFromTransactionID(ctx context.Context, txHash string) (string, error) {
	var result string
	if err := p.call(ctx, "GetContractAddressFromTransactionID", &result, txHash); err != nil {
		return "", err
	}
	return result, nil
}
