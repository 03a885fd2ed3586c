// Package rpcclient wraps the Bitcoin Core JSON-RPC methods the engine
// needs: getrawtransaction, getmempoolentry, sendrawtransaction, and
// estimatesmartfee. It is adapted from the teacher repository's
// internal/bitcoin client, trimmed to the four methods spec.md §6 names
// and generalized to satisfy the cycle package's collaborator interfaces.
package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"

	"github.com/instagibbs/anticycle/internal/cycle"
)

// Config holds the node RPC connection parameters (spec §6 configuration).
type Config struct {
	Host string
	User string
	Pass string
}

// Client is a thin wrapper around btcd's rpcclient.Client. It satisfies
// cycle.TxFetcher, cycle.EntryFetcher, and cycle.Resubmitter in one value,
// the same way the teacher's bitcoin.Client serves many roles at once.
type Client struct {
	rpc *rpcclient.Client
	cfg Config
}

// New dials the node's RPC endpoint and verifies connectivity with
// getblockcount, exactly as the teacher's NewClient does.
func New(cfg Config) (*Client, error) {
	connCfg := &rpcclient.ConnConfig{
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		HTTPPostMode: true,
		DisableTLS:   true,
	}

	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, err
	}

	if _, err := client.GetBlockCount(); err != nil {
		client.Shutdown()
		return nil, fmt.Errorf("connect to %s: %w", cfg.Host, err)
	}

	return &Client{rpc: client, cfg: cfg}, nil
}

// Shutdown closes the underlying RPC connection.
func (c *Client) Shutdown() {
	c.rpc.Shutdown()
}

// GetRawTransaction implements cycle.TxFetcher.
func (c *Client) GetRawTransaction(_ context.Context, txid string) (*cycle.RawTx, bool, error) {
	hash, err := chainhash.NewHashFromStr(txid)
	if err != nil {
		return nil, false, fmt.Errorf("bad txid %q: %w", txid, err)
	}

	res, err := c.rpc.GetRawTransactionVerbose(hash)
	if err != nil {
		if isMissingTxError(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	inputs := make([]cycle.UTXO, 0, len(res.Vin))
	for _, vin := range res.Vin {
		if vin.Txid == "" {
			continue // coinbase
		}
		prevHash, err := chainhash.NewHashFromStr(vin.Txid)
		if err != nil {
			continue
		}
		var u cycle.UTXO
		copy(u.PrevTxid[:], prevHash[:])
		u.Vout = vin.Vout
		inputs = append(inputs, u)
	}

	tx := &cycle.RawTx{
		Txid:   res.Txid,
		Hex:    res.Hex,
		Inputs: inputs,
		Size:   uint64(len(res.Hex)) / 2,
	}
	return tx, true, nil
}

// mempoolEntryModern is decoded straight off the RPC response rather than
// through btcjson.GetMempoolEntryResult: Bitcoin Core's mempool entry
// schema has shifted field names across versions (fees.ancestor replacing
// a top-level ancestorfees, same drift the teacher's GetRawMempoolVerbose
// already works around), so the defensive pattern is reused here instead
// of trusting one fixed struct shape.
type mempoolEntryModern struct {
	AncestorCount uint32  `json:"ancestorcount"`
	AncestorSize  uint64  `json:"ancestorsize"`
	AncestorFees  float64 `json:"ancestorfees"`
	Fees          struct {
		Ancestor float64 `json:"ancestor"`
	} `json:"fees"`
}

// GetMempoolEntry implements cycle.EntryFetcher. Fee fields arrive in BTC
// and are converted to satoshis here so nothing downstream of this
// boundary ever sees a float.
func (c *Client) GetMempoolEntry(_ context.Context, txid string) (*cycle.MempoolEntry, bool, error) {
	txidParam, err := json.Marshal(txid)
	if err != nil {
		return nil, false, err
	}

	raw, err := c.rpc.RawRequest("getmempoolentry", []json.RawMessage{txidParam})
	if err != nil {
		if isMissingTxError(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var entry mempoolEntryModern
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("unmarshal getmempoolentry: %w", err)
	}

	ancestorBTC := entry.Fees.Ancestor
	if ancestorBTC == 0 {
		ancestorBTC = entry.AncestorFees
	}

	return &cycle.MempoolEntry{
		AncestorCount: entry.AncestorCount,
		AncestorSize:  entry.AncestorSize,
		AncestorFees:  btcToSats(ancestorBTC),
	}, true, nil
}

// SendRawTransaction implements cycle.Resubmitter. Sent via RawRequest
// rather than the typed rpcclient.SendRawTransaction, which expects a
// decoded wire.MsgTx rather than the hex string the cache already holds.
func (c *Client) SendRawTransaction(_ context.Context, hexTx string) (string, bool, error) {
	hexParam, err := json.Marshal(hexTx)
	if err != nil {
		return "", false, err
	}

	raw, err := c.rpc.RawRequest("sendrawtransaction", []json.RawMessage{hexParam})
	if err != nil {
		// A rejection (e.g. missing inputs, already in mempool) is
		// informational only per spec §4.9: it is not evidence the engine
		// should drop the cached entry.
		return "", false, nil
	}

	var resultTxid string
	if err := json.Unmarshal(raw, &resultTxid); err != nil {
		return "", true, nil
	}
	return resultTxid, true, nil
}

// EstimateSmartFee estimates the confTarget-block feerate in BTC/kvB,
// falling back through CONSERVATIVE -> ECONOMICAL -> the node's mempool
// fee floor, mirroring the teacher's EstimateSmartFee fallback chain.
func (c *Client) EstimateSmartFee(confTarget int64) (float64, error) {
	conservative := btcjson.EstimateModeConservative
	if fee, err := c.estimateSmartFeeByMode(confTarget, &conservative); err == nil && fee > 0 {
		return fee, nil
	}

	economical := btcjson.EstimateModeEconomical
	if fee, err := c.estimateSmartFeeByMode(confTarget, &economical); err == nil && fee > 0 {
		return fee, nil
	}

	return c.mempoolFeeFloorBTCPerKVB()
}

func (c *Client) estimateSmartFeeByMode(confTarget int64, mode *btcjson.EstimateSmartFeeMode) (float64, error) {
	res, err := c.rpc.EstimateSmartFee(confTarget, mode)
	if err != nil {
		return 0, err
	}
	if res == nil || res.FeeRate == nil || *res.FeeRate <= 0 {
		return 0, nil
	}
	return *res.FeeRate, nil
}

func (c *Client) mempoolFeeFloorBTCPerKVB() (float64, error) {
	raw, err := c.rpc.RawRequest("getmempoolinfo", nil)
	if err != nil {
		return 0, err
	}
	var info struct {
		MempoolMinFee float64 `json:"mempoolminfee"`
		MinRelayTxFee float64 `json:"minrelaytxfee"`
	}
	if err := json.Unmarshal(raw, &info); err != nil {
		return 0, err
	}
	floor := info.MempoolMinFee
	if info.MinRelayTxFee > floor {
		floor = info.MinRelayTxFee
	}
	if floor <= 0 {
		return 0, nil
	}
	return floor, nil
}

func btcToSats(btc float64) uint64 {
	if btc <= 0 {
		return 0
	}
	return uint64(btc*100_000_000 + 0.5)
}

// isMissingTxError reports whether err is the RPC's "No such mempool or
// blockchain transaction" class of error, which the engine treats as
// "no longer observable" rather than a transient failure (spec §7).
func isMissingTxError(err error) bool {
	rpcErr, ok := err.(*btcjson.RPCError)
	if !ok {
		return false
	}
	return rpcErr.Code == btcjson.ErrRPCNoTxInfo || rpcErr.Code == btcjson.ErrRPCInvalidAddressOrKey
}
