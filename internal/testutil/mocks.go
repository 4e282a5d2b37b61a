package testutil

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"

	"github.com/radityaw/treasury-agent/internal/domain/entities"
	"github.com/radityaw/treasury-agent/internal/domain/repositories"
)

// MockCall records one invocation of a mock method
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockPositionRepository is a mock implementation of PositionRepository
type MockPositionRepository struct {
	mu        sync.RWMutex
	positions map[string]entities.Position

	// Function hooks for custom behavior
	GetFunc           func(ctx context.Context, walletAddress, tokenSymbol string) (*entities.Position, error)
	ListByWalletFunc  func(ctx context.Context, walletAddress string) ([]entities.Position, error)
	CountByWalletFunc func(ctx context.Context, walletAddress string) (int64, error)
	UpsertFunc        func(ctx context.Context, position *entities.Position) error

	// Call tracking
	Calls []MockCall
}

var _ repositories.PositionRepository = (*MockPositionRepository)(nil)

func NewMockPositionRepository() *MockPositionRepository {
	return &MockPositionRepository{
		positions: make(map[string]entities.Position),
		Calls:     make([]MockCall, 0),
	}
}

func positionKey(wallet, token string) string {
	return strings.ToLower(wallet) + ":" + strings.ToUpper(token)
}

func (m *MockPositionRepository) Get(ctx context.Context, walletAddress, tokenSymbol string) (*entities.Position, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "Get", Args: []interface{}{walletAddress, tokenSymbol}})
	m.mu.Unlock()

	if m.GetFunc != nil {
		return m.GetFunc(ctx, walletAddress, tokenSymbol)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.positions[positionKey(walletAddress, tokenSymbol)]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MockPositionRepository) ListByWallet(ctx context.Context, walletAddress string) ([]entities.Position, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "ListByWallet", Args: []interface{}{walletAddress}})
	m.mu.Unlock()

	if m.ListByWalletFunc != nil {
		return m.ListByWalletFunc(ctx, walletAddress)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]entities.Position, 0)
	for _, p := range m.positions {
		if strings.EqualFold(p.WalletAddress, walletAddress) {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *MockPositionRepository) CountByWallet(ctx context.Context, walletAddress string) (int64, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "CountByWallet", Args: []interface{}{walletAddress}})
	m.mu.Unlock()

	if m.CountByWalletFunc != nil {
		return m.CountByWalletFunc(ctx, walletAddress)
	}

	positions, err := m.ListByWallet(ctx, walletAddress)
	if err != nil {
		return 0, err
	}
	return int64(len(positions)), nil
}

func (m *MockPositionRepository) Upsert(ctx context.Context, position *entities.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{Method: "Upsert", Args: []interface{}{position}})

	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, position)
	}

	key := positionKey(position.WalletAddress, position.TokenSymbol)
	if existing, ok := m.positions[key]; ok {
		// The conflict key preserves deposited_at on update
		position.DepositedAt = existing.DepositedAt
	}
	m.positions[key] = *position
	return nil
}

// AddPosition seeds the mock store
func (m *MockPositionRepository) AddPosition(position entities.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[positionKey(position.WalletAddress, position.TokenSymbol)] = position
}

// GetStored returns a stored position without recording a call
func (m *MockPositionRepository) GetStored(wallet, token string) (entities.Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.positions[positionKey(wallet, token)]
	return p, ok
}

// MockTimelineRepository is a mock implementation of TimelineRepository
type MockTimelineRepository struct {
	mu     sync.RWMutex
	Events []RecordedEvent

	LogEventFunc func(ctx context.Context, walletAddress, eventType string, payload interface{}) error
}

// RecordedEvent is one event captured by the mock timeline
type RecordedEvent struct {
	WalletAddress string
	EventType     string
	Payload       interface{}
}

var _ repositories.TimelineRepository = (*MockTimelineRepository)(nil)

func NewMockTimelineRepository() *MockTimelineRepository {
	return &MockTimelineRepository{Events: make([]RecordedEvent, 0)}
}

func (m *MockTimelineRepository) LogEvent(ctx context.Context, walletAddress, eventType string, payload interface{}) error {
	if m.LogEventFunc != nil {
		return m.LogEventFunc(ctx, walletAddress, eventType, payload)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, RecordedEvent{
		WalletAddress: strings.ToLower(walletAddress),
		EventType:     eventType,
		Payload:       payload,
	})
	return nil
}

func (m *MockTimelineRepository) ListByWallet(ctx context.Context, walletAddress string, limit int) ([]entities.TimelineEvent, error) {
	return nil, nil
}

// EventsOfType returns the recorded events with the given type
func (m *MockTimelineRepository) EventsOfType(eventType string) []RecordedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]RecordedEvent, 0)
	for _, e := range m.Events {
		if e.EventType == eventType {
			result = append(result, e)
		}
	}
	return result
}

// MockRouter is a mock exchange router covering pool listing, per-hop
// quoting, balance reads, swap encoding, and call submission
type MockRouter struct {
	mu    sync.Mutex
	Pools []entities.ExchangePool

	// Balances keyed by token:wallet
	Balances map[string]*big.Int

	// AmountOut values keyed by pool ID; when unset, amountIn is
	// echoed back
	AmountOuts map[string]*big.Int

	ListPoolsFunc    func(ctx context.Context) ([]entities.ExchangePool, error)
	GetAmountOutFunc func(ctx context.Context, poolID, tokenIn string, amountIn *big.Int) (*big.Int, error)
	BalanceOfFunc    func(ctx context.Context, tokenAddress, walletAddress string) (*big.Int, error)
	SubmitCallFunc   func(ctx context.Context, call entities.SwapCall) (string, error)

	ListPoolsCalls int
	Submitted      []entities.SwapCall
}

func NewMockRouter(pools ...entities.ExchangePool) *MockRouter {
	return &MockRouter{
		Pools:      pools,
		Balances:   make(map[string]*big.Int),
		AmountOuts: make(map[string]*big.Int),
		Submitted:  make([]entities.SwapCall, 0),
	}
}

func balanceKey(token, wallet string) string {
	return strings.ToLower(token) + ":" + strings.ToLower(wallet)
}

func (m *MockRouter) ListPools(ctx context.Context) ([]entities.ExchangePool, error) {
	m.mu.Lock()
	m.ListPoolsCalls++
	m.mu.Unlock()

	if m.ListPoolsFunc != nil {
		return m.ListPoolsFunc(ctx)
	}
	return m.Pools, nil
}

func (m *MockRouter) GetAmountOut(ctx context.Context, poolID, tokenIn string, amountIn *big.Int) (*big.Int, error) {
	if m.GetAmountOutFunc != nil {
		return m.GetAmountOutFunc(ctx, poolID, tokenIn, amountIn)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if out, ok := m.AmountOuts[poolID]; ok {
		return new(big.Int).Set(out), nil
	}
	return new(big.Int).Set(amountIn), nil
}

func (m *MockRouter) BalanceOf(ctx context.Context, tokenAddress, walletAddress string) (*big.Int, error) {
	if m.BalanceOfFunc != nil {
		return m.BalanceOfFunc(ctx, tokenAddress, walletAddress)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if bal, ok := m.Balances[balanceKey(tokenAddress, walletAddress)]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

// SetBalance seeds a wallet's balance of a token
func (m *MockRouter) SetBalance(token, wallet string, balance *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Balances[balanceKey(token, wallet)] = new(big.Int).Set(balance)
}

func (m *MockRouter) EncodeSwap(poolID, tokenIn string, amountIn, minAmountOut *big.Int) ([]byte, error) {
	return []byte(poolID + ":" + tokenIn), nil
}

func (m *MockRouter) RouterAddress() string {
	return "0x00000000000000000000000000000000000000aa"
}

func (m *MockRouter) SubmitCall(ctx context.Context, call entities.SwapCall) (string, error) {
	m.mu.Lock()
	m.Submitted = append(m.Submitted, call)
	m.mu.Unlock()

	if m.SubmitCallFunc != nil {
		return m.SubmitCallFunc(ctx, call)
	}
	return "0xtx", nil
}

// MockHealthChecker is a mock implementation of HealthChecker
type MockHealthChecker struct {
	mu sync.RWMutex

	Healthy bool
	Error   error
	Calls   []MockCall
}

func NewMockHealthChecker(healthy bool) *MockHealthChecker {
	var err error
	if !healthy {
		err = errors.New("health check failed")
	}
	return &MockHealthChecker{
		Healthy: healthy,
		Error:   err,
		Calls:   make([]MockCall, 0),
	}
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "HealthCheck", Args: nil})
	m.mu.Unlock()

	return m.Error
}

func (m *MockHealthChecker) SetHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Healthy = healthy
	if healthy {
		m.Error = nil
	} else {
		m.Error = errors.New("health check failed")
	}
}
