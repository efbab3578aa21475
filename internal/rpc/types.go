// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package rpc

import "encoding/json"

// Amounts and counters are decimal strings on the wire; they are kept as
// strings here so no precision is lost.

// BalanceAndNonce is the result of GetBalance
type BalanceAndNonce struct {
	Balance string `json:"balance"`
	Nonce   int64  `json:"nonce"`
}

// TransactionReceipt is the execution outcome of a transaction
type TransactionReceipt struct {
	CumulativeGas string `json:"cumulative_gas"`
	EpochNum      string `json:"epoch_num"`
	Success       bool   `json:"success"`
}

// Transaction is a confirmed transaction as returned by GetTransaction
type Transaction struct {
	ID           string             `json:"ID"`
	Version      string             `json:"version"`
	Nonce        string             `json:"nonce"`
	ToAddr       string             `json:"toAddr"`
	SenderPubKey string             `json:"senderPubKey"`
	Amount       string             `json:"amount"`
	GasPrice     string             `json:"gasPrice"`
	GasLimit     string             `json:"gasLimit"`
	Code         string             `json:"code,omitempty"`
	Data         string             `json:"data,omitempty"`
	Signature    string             `json:"signature"`
	Receipt      TransactionReceipt `json:"receipt"`
}

// TxBlock is a transaction block
type TxBlock struct {
	Header TxBlockHeader `json:"header"`
	Body   TxBlockBody   `json:"body"`
}

// TxBlockHeader carries block metadata. Field names follow the node's PascalCase.
type TxBlockHeader struct {
	BlockNum       string `json:"BlockNum"`
	DSBlockNum     string `json:"DSBlockNum"`
	GasLimit       string `json:"GasLimit"`
	GasUsed        string `json:"GasUsed"`
	MbInfoHash     string `json:"MbInfoHash"`
	MinerPubKey    string `json:"MinerPubKey"`
	NumMicroBlocks int    `json:"NumMicroBlocks"`
	NumTxns        int    `json:"NumTxns"`
	PrevBlockHash  string `json:"PrevBlockHash"`
	Rewards        string `json:"Rewards"`
	StateDeltaHash string `json:"StateDeltaHash"`
	StateRootHash  string `json:"StateRootHash"`
	Timestamp      string `json:"Timestamp"`
	Version        int    `json:"Version"`
}

// TxBlockBody lists the microblocks of a transaction block
type TxBlockBody struct {
	BlockHash       string           `json:"BlockHash"`
	HeaderSign      string           `json:"HeaderSign"`
	MicroBlockInfos []MicroBlockInfo `json:"MicroBlockInfos"`
}

// MicroBlockInfo identifies one shard's microblock
type MicroBlockInfo struct {
	MicroBlockHash        string `json:"MicroBlockHash"`
	MicroBlockShardID     int    `json:"MicroBlockShardId"`
	MicroBlockTxnRootHash string `json:"MicroBlockTxnRootHash"`
}

// ContractValue is one entry of a contract's init parameters
type ContractValue struct {
	VName string          `json:"vname"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}
