// Package feeoracle supplies the engine's top-block feerate threshold,
// either from the node's own estimatesmartfee or from the mempool.space
// recommended-fees HTTP endpoint, mirroring spec.md §6's two documented
// sources.
package feeoracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/instagibbs/anticycle/internal/feerate"
)

// smartFeeEstimator is the subset of rpcclient.Client the RPC-backed
// oracle depends on.
type smartFeeEstimator interface {
	EstimateSmartFee(confTarget int64) (float64, error)
}

// RPCOracle derives the top-block rate from the node's 3-block smart fee
// estimate (spec.md glossary: "the 3-block smart-fee estimate").
type RPCOracle struct {
	client     smartFeeEstimator
	confTarget int64
}

// NewRPCOracle builds an oracle targeting confirmation within confTarget
// blocks; spec.md's glossary default is 3.
func NewRPCOracle(client smartFeeEstimator, confTarget int64) *RPCOracle {
	return &RPCOracle{client: client, confTarget: confTarget}
}

// TopBlockRate implements cycle.RateOracle.
func (o *RPCOracle) TopBlockRate(_ context.Context) (feerate.Rate, error) {
	btcPerKVB, err := o.client.EstimateSmartFee(o.confTarget)
	if err != nil {
		return feerate.Zero, err
	}
	satsPerKVB := int64(btcPerKVB*100_000_000 + 0.5)
	return feerate.FromSatsPerKVB(satsPerKVB), nil
}

// HTTPOracle hits the mempool.space recommended-fees endpoint, the
// "alternative" fee oracle spec.md §6 documents.
type HTTPOracle struct {
	url    string
	client *http.Client
}

// DefaultMempoolSpaceURL is the endpoint spec.md §6 names.
const DefaultMempoolSpaceURL = "https://mempool.space/api/v1/fees/recommended"

// NewHTTPOracle builds an oracle against url (pass DefaultMempoolSpaceURL
// for the documented default).
func NewHTTPOracle(url string) *HTTPOracle {
	return &HTTPOracle{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type recommendedFeesResponse struct {
	FastestFee int64 `json:"fastestFee"`
}

// TopBlockRate implements cycle.RateOracle, converting the returned
// fastestFee (sat/vB) to BTC/kvB-equivalent sat/kvB per spec §6's formula:
// fastestFee * 1000 / 100_000_000 BTC/kvB, i.e. fastestFee * 1000 sat/kvB.
func (o *HTTPOracle) TopBlockRate(ctx context.Context) (feerate.Rate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.url, nil)
	if err != nil {
		return feerate.Zero, err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return feerate.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return feerate.Zero, fmt.Errorf("mempool.space: unexpected status %d", resp.StatusCode)
	}

	var body recommendedFeesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return feerate.Zero, fmt.Errorf("mempool.space: decode: %w", err)
	}

	return feerate.FromSatsPerKVB(body.FastestFee * 1000), nil
}
