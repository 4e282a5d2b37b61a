package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/radityaw/treasury-agent/internal/config"
)

// RevertError indicates the contract rejected the call. Reverts are
// deterministic and are never retried.
type RevertError struct {
	Err error
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("call reverted: %v", e.Err)
}

func (e *RevertError) Unwrap() error {
	return e.Err
}

// NetworkError indicates an RPC transport or timeout failure
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("rpc failure: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsRevert reports whether err is a contract revert
func IsRevert(err error) bool {
	var re *RevertError
	return errors.As(err, &re)
}

// classifyCallError wraps an eth_call failure as either a revert or a
// network error so callers can branch on the distinction
func classifyCallError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "revert") || strings.Contains(msg, "execution reverted") {
		return &RevertError{Err: err}
	}
	return &NetworkError{Err: err}
}

// Client wraps the Ethereum client with retry logic, a transaction
// signer, and call-error classification
type Client struct {
	client  *ethclient.Client
	config  config.EthereumConfig
	logger  *zap.Logger
	chainID *big.Int
	key     *ecdsa.PrivateKey
	from    common.Address
}

// NewClient creates a new Ethereum client
func NewClient(cfg config.EthereumConfig, logger *zap.Logger) (*Client, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum node: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	if chainID.Int64() != cfg.ChainID {
		return nil, fmt.Errorf("chain ID mismatch: expected %d, got %d", cfg.ChainID, chainID.Int64())
	}

	c := &Client{
		client:  client,
		config:  cfg,
		logger:  logger,
		chainID: chainID,
	}

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("failed to parse signer key: %w", err)
		}
		c.key = key
		c.from = crypto.PubkeyToAddress(key.PublicKey)
	}

	logger.Info("Connected to Ethereum node",
		zap.String("rpc_url", cfg.RPCURL),
		zap.Int64("chain_id", chainID.Int64()),
		zap.String("signer", c.from.Hex()),
	)

	return c, nil
}

// Close closes the Ethereum client connection
func (c *Client) Close() {
	c.client.Close()
}

// ChainID returns the chain ID
func (c *Client) ChainID() *big.Int {
	return c.chainID
}

// SignerAddress returns the address of the configured signing key
func (c *Client) SignerAddress() common.Address {
	return c.from
}

// CallContract performs a read-only eth_call with retry on network
// failures. Reverts are returned immediately.
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{
		To:   &to,
		Data: data,
	}

	var result []byte
	var err error

	for i := 0; i <= c.config.MaxRetries; i++ {
		result, err = c.client.CallContract(ctx, msg, nil)
		if err == nil {
			return result, nil
		}

		classified := classifyCallError(err)
		if IsRevert(classified) {
			return nil, classified
		}

		c.logger.Warn("Contract call failed, retrying",
			zap.String("to", to.Hex()),
			zap.Int("attempt", i+1),
			zap.Error(err),
		)

		if i < c.config.MaxRetries {
			time.Sleep(c.config.RetryDelay)
		}
	}

	return nil, &NetworkError{Err: fmt.Errorf("call to %s failed after %d retries: %w", to.Hex(), c.config.MaxRetries, err)}
}

// EstimateAndSend estimates gas for a state-changing call, signs it
// with the configured key, and submits it
func (c *Client) EstimateAndSend(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	if c.key == nil {
		return common.Hash{}, fmt.Errorf("no signer key configured")
	}

	nonce, err := c.client.PendingNonceAt(ctx, c.from)
	if err != nil {
		return common.Hash{}, &NetworkError{Err: fmt.Errorf("failed to get nonce: %w", err)}
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, &NetworkError{Err: fmt.Errorf("failed to get gas price: %w", err)}
	}

	gasLimit, err := c.client.EstimateGas(ctx, ethereum.CallMsg{
		From: c.from,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return common.Hash{}, classifyCallError(err)
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, &NetworkError{Err: fmt.Errorf("failed to send transaction: %w", err)}
	}

	return signed.Hash(), nil
}

// WaitForReceipt polls for the receipt of a submitted transaction and
// returns an error when the transaction reverted on-chain
func (c *Client) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.config.RetryDelay)
	defer ticker.Stop()

	for {
		receipt, err := c.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, &RevertError{Err: fmt.Errorf("transaction %s reverted", txHash.Hex())}
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			c.logger.Warn("Failed to fetch receipt, retrying",
				zap.String("tx_hash", txHash.Hex()),
				zap.Error(err),
			)
		}

		select {
		case <-ctx.Done():
			return nil, &NetworkError{Err: fmt.Errorf("waiting for receipt %s: %w", txHash.Hex(), ctx.Err())}
		case <-ticker.C:
		}
	}
}

// EthClient returns the underlying ethclient for advanced operations
func (c *Client) EthClient() *ethclient.Client {
	return c.client
}
