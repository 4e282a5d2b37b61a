package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/radityaw/treasury-agent/internal/domain/entities"
)

// routerABIJSON describes the read and swap surface of the shared
// exchange router. The router only exposes pairwise pools.
const routerABIJSON = `[
	{"name":"poolCount","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"poolAt","type":"function","stateMutability":"view","inputs":[{"name":"index","type":"uint256"}],"outputs":[{"name":"id","type":"bytes32"},{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}]},
	{"name":"getAmountOut","type":"function","stateMutability":"view","inputs":[{"name":"poolId","type":"bytes32"},{"name":"tokenIn","type":"address"},{"name":"amountIn","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"swap","type":"function","stateMutability":"nonpayable","inputs":[{"name":"poolId","type":"bytes32"},{"name":"tokenIn","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"minAmountOut","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// ERC-20 balanceOf(address) selector (first 4 bytes of keccak256 hash)
var balanceOfSig = common.FromHex("0x70a08231")

// RouterClient reads pool state from the exchange router and encodes
// swap calls against it
type RouterClient struct {
	client  *Client
	address common.Address
	abi     abi.ABI
	logger  *zap.Logger
}

// NewRouterClient creates a new router client
func NewRouterClient(client *Client, routerAddress string, logger *zap.Logger) (*RouterClient, error) {
	parsed, err := abi.JSON(strings.NewReader(routerABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}

	return &RouterClient{
		client:  client,
		address: common.HexToAddress(routerAddress),
		abi:     parsed,
		logger:  logger,
	}, nil
}

// RouterAddress returns the router contract address
func (r *RouterClient) RouterAddress() string {
	return strings.ToLower(r.address.Hex())
}

// ListPools enumerates the router's pool registry
func (r *RouterClient) ListPools(ctx context.Context) ([]entities.ExchangePool, error) {
	countData, err := r.abi.Pack("poolCount")
	if err != nil {
		return nil, fmt.Errorf("failed to pack poolCount: %w", err)
	}

	result, err := r.client.CallContract(ctx, r.address, countData)
	if err != nil {
		return nil, fmt.Errorf("failed to read pool count: %w", err)
	}

	counts, err := r.abi.Unpack("poolCount", result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode pool count: %w", err)
	}
	count := counts[0].(*big.Int)

	pools := make([]entities.ExchangePool, 0, count.Int64())
	for i := int64(0); i < count.Int64(); i++ {
		pool, err := r.poolAt(ctx, big.NewInt(i))
		if err != nil {
			return nil, fmt.Errorf("failed to read pool %d: %w", i, err)
		}
		pools = append(pools, pool)
	}

	r.logger.Debug("Enumerated router pools", zap.Int("count", len(pools)))
	return pools, nil
}

// poolAt reads one pool registry entry
func (r *RouterClient) poolAt(ctx context.Context, index *big.Int) (entities.ExchangePool, error) {
	data, err := r.abi.Pack("poolAt", index)
	if err != nil {
		return entities.ExchangePool{}, fmt.Errorf("failed to pack poolAt: %w", err)
	}

	result, err := r.client.CallContract(ctx, r.address, data)
	if err != nil {
		return entities.ExchangePool{}, err
	}

	values, err := r.abi.Unpack("poolAt", result)
	if err != nil {
		return entities.ExchangePool{}, fmt.Errorf("failed to decode poolAt: %w", err)
	}

	id := values[0].([32]byte)
	return entities.ExchangePool{
		ID:     common.BytesToHash(id[:]).Hex(),
		TokenA: strings.ToLower(values[1].(common.Address).Hex()),
		TokenB: strings.ToLower(values[2].(common.Address).Hex()),
	}, nil
}

// GetAmountOut asks the router for the output amount of a single-hop
// swap through the given pool
func (r *RouterClient) GetAmountOut(ctx context.Context, poolID, tokenIn string, amountIn *big.Int) (*big.Int, error) {
	data, err := r.abi.Pack("getAmountOut", common.HexToHash(poolID), common.HexToAddress(tokenIn), amountIn)
	if err != nil {
		return nil, fmt.Errorf("failed to pack getAmountOut: %w", err)
	}

	result, err := r.client.CallContract(ctx, r.address, data)
	if err != nil {
		return nil, err
	}

	values, err := r.abi.Unpack("getAmountOut", result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode getAmountOut: %w", err)
	}

	return values[0].(*big.Int), nil
}

// EncodeSwap encodes a swap call through one pool. A zero amountIn
// tells the router to spend the signer's full current balance of
// tokenIn.
func (r *RouterClient) EncodeSwap(poolID, tokenIn string, amountIn, minAmountOut *big.Int) ([]byte, error) {
	data, err := r.abi.Pack("swap", common.HexToHash(poolID), common.HexToAddress(tokenIn), amountIn, minAmountOut)
	if err != nil {
		return nil, fmt.Errorf("failed to pack swap: %w", err)
	}
	return data, nil
}

// BalanceOf reads a wallet's raw ERC-20 balance of a token
func (r *RouterClient) BalanceOf(ctx context.Context, tokenAddress, walletAddress string) (*big.Int, error) {
	data := make([]byte, 0, 36)
	data = append(data, balanceOfSig...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(walletAddress).Bytes(), 32)...)

	result, err := r.client.CallContract(ctx, common.HexToAddress(tokenAddress), data)
	if err != nil {
		return nil, err
	}

	if len(result) < 32 {
		return nil, fmt.Errorf("invalid balanceOf response length: %d", len(result))
	}

	return new(big.Int).SetBytes(result[:32]), nil
}

// SubmitCall submits one swap plan call and blocks until its receipt
// confirms. Hops of a plan depend on the balance the previous hop
// produced, so callers submit them strictly in order.
func (r *RouterClient) SubmitCall(ctx context.Context, call entities.SwapCall) (string, error) {
	txHash, err := r.client.EstimateAndSend(ctx, common.HexToAddress(call.Target), call.Data)
	if err != nil {
		return "", err
	}

	if _, err := r.client.WaitForReceipt(ctx, txHash); err != nil {
		return txHash.Hex(), err
	}

	r.logger.Info("Swap call confirmed",
		zap.String("pool_id", call.PoolID),
		zap.String("token_in", call.TokenIn),
		zap.String("tx_hash", txHash.Hex()),
	)

	return txHash.Hex(), nil
}
