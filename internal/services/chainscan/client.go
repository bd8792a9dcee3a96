package chainscan

import (
	"context"
	"fmt"
	"time"

	"FlowTrack/internal/domain/models"
	"FlowTrack/pkg/config"
	xhttp "FlowTrack/pkg/http"
)

// HTTPChainProvider fetches option chain snapshots from a REST data
// service. It centralizes client construction and JSON request handling
// for the periodic scan.
type HTTPChainProvider struct {
	baseURL string
	retries int
	client  *xhttp.Client
}

// NewHTTPChainProvider builds an HTTP client with timeout and base URL from config.
func NewHTTPChainProvider(cfg *config.Config) *HTTPChainProvider {
	timeout := cfg.ChainScan.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retries := cfg.ChainScan.Retries
	if retries <= 0 {
		retries = 1
	}
	return &HTTPChainProvider{
		baseURL: cfg.ChainScan.URL,
		retries: retries,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

type chainEntryDTO struct {
	Symbol     string  `json:"symbol"`
	Strike     float64 `json:"strike"`
	Right      string  `json:"right"`
	Expiration string  `json:"expiration"`
	Volume     int64   `json:"volume"`
	AvgVolume  int64   `json:"avg_volume"`
	OI         int64   `json:"open_interest"`
	PrevOI     int64   `json:"prev_open_interest"`
	Last       float64 `json:"last"`
	Bid        float64 `json:"bid"`
	Ask        float64 `json:"ask"`
	Spot       float64 `json:"underlying_price"`
}

type chainResponse struct {
	Symbol  string          `json:"symbol"`
	Entries []chainEntryDTO `json:"entries"`
}

// Snapshot fetches the current chain snapshot for one underlying.
func (p *HTTPChainProvider) Snapshot(ctx context.Context, symbol string) ([]*models.ChainEntry, error) {
	if p.client == nil || p.baseURL == "" {
		return nil, fmt.Errorf("chain http client not initialized")
	}

	var resp chainResponse
	var err error
	for i := 1; i <= p.retries; i++ {
		err = p.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodGet,
			URL:    fmt.Sprintf("%s/chain/%s", p.baseURL, symbol),
			Headers: map[string]string{
				"Accept": "application/json",
			},
		}, &resp)
		if err == nil {
			break
		}
		// simple backoff
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("chain snapshot %s: %w", symbol, err)
	}

	out := make([]*models.ChainEntry, 0, len(resp.Entries))
	for _, d := range resp.Entries {
		right := models.OptionRight(d.Right)
		if right != models.Call && right != models.Put {
			continue
		}
		out = append(out, &models.ChainEntry{
			Contract:         models.NewContract(d.Symbol, d.Strike, right, d.Expiration),
			Volume:           d.Volume,
			AvgVolume:        d.AvgVolume,
			OpenInterest:     d.OI,
			PrevOpenInterest: d.PrevOI,
			Last:             d.Last,
			Bid:              d.Bid,
			Ask:              d.Ask,
			UnderlyingPrice:  d.Spot,
		})
	}
	return out, nil
}
