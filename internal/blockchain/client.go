// internal/blockchain/client.go
package blockchain

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

const (
	maxRetries     = 3
	confirmPoll    = 2 * time.Second
	confirmTimeout = 60 * time.Second
)

// Client is a thin wrapper over one or more Solana RPC endpoints with
// round-robin failover.
type Client struct {
	rpcClients []*rpc.Client
	logger     *zap.Logger
	mutex      sync.Mutex
	currIndex  int
}

func NewClient(rpcURLs []string, logger *zap.Logger) (*Client, error) {
	if len(rpcURLs) == 0 {
		return nil, errors.New("empty RPC URL list")
	}

	var clients []*rpc.Client
	for _, urlStr := range rpcURLs {
		if _, err := url.Parse(urlStr); err != nil {
			logger.Warn("Invalid RPC URL", zap.String("url", urlStr), zap.Error(err))
			continue
		}
		clients = append(clients, rpc.New(urlStr))
	}

	if len(clients) == 0 {
		return nil, errors.New("no valid RPC URLs provided")
	}

	return &Client{
		rpcClients: clients,
		logger:     logger.Named("blockchain"),
	}, nil
}

// GetBalance returns the account's balance in lamports.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		client := c.getNextClient()

		result, err := client.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
		if err != nil {
			lastErr = err
			continue
		}
		return result.Value, nil
	}
	return 0, fmt.Errorf("failed to get balance after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		client := c.getNextClient()

		result, err := client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		if err != nil {
			lastErr = err
			continue
		}
		return result.Value.Blockhash, nil
	}
	return solana.Hash{}, fmt.Errorf("failed to get recent blockhash after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		client := c.getNextClient()

		sig, err := client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       true,
			PreflightCommitment: rpc.CommitmentFinalized,
		})
		if err != nil {
			lastErr = err
			continue
		}
		return sig, nil
	}
	return solana.Signature{}, fmt.Errorf("failed to send transaction after %d attempts: %w", maxRetries, lastErr)
}

// WaitForConfirmation polls signature status until the transaction is
// confirmed or the timeout elapses.
func (c *Client) WaitForConfirmation(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(confirmPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("confirmation timed out for %s: %w", sig.String(), ctx.Err())
		case <-ticker.C:
			client := c.getNextClient()
			result, err := client.GetSignatureStatuses(ctx, false, sig)
			if err != nil {
				c.logger.Debug("signature status check failed", zap.Error(err))
				continue
			}
			if len(result.Value) == 0 || result.Value[0] == nil {
				continue
			}
			status := result.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction %s failed on-chain: %v", sig.String(), status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}
	}
}

func (c *Client) getNextClient() *rpc.Client {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	client := c.rpcClients[c.currIndex]
	c.currIndex = (c.currIndex + 1) % len(c.rpcClients)
	return client
}
