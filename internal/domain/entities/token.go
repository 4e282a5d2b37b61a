package entities

import (
	"math/big"
	"strings"
)

// Token represents a monitored ERC-20 token. Reference data is loaded
// once from static configuration and never mutated at runtime.
type Token struct {
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals int    `json:"decimals"`

	// Convertible tokens are automatically swapped into the agent's
	// primary operating token when a deposit is detected.
	Convertible bool `json:"convertible"`
}

// FormatAmount converts a raw on-chain amount into human token units
// using the token's decimal precision.
func (t Token) FormatAmount(raw *big.Int) float64 {
	return FormatUnits(raw, t.Decimals)
}

// FormatUnits converts a raw integer amount into human units for the
// given decimal precision.
func FormatUnits(raw *big.Int, decimals int) float64 {
	if raw == nil || raw.Sign() == 0 {
		return 0
	}

	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	value := new(big.Float).SetInt(raw)
	result, _ := new(big.Float).Quo(value, scale).Float64()
	return result
}

// ParseUnits converts a human amount into a raw integer amount for the
// given decimal precision, truncating sub-unit dust
func ParseUnits(amount float64, decimals int) *big.Int {
	if amount <= 0 {
		return big.NewInt(0)
	}

	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	scaled := new(big.Float).Mul(big.NewFloat(amount), scale)
	raw, _ := scaled.Int(nil)
	return raw
}

// TokenRegistry provides lookups over the configured token set
type TokenRegistry struct {
	bySymbol  map[string]Token
	byAddress map[string]Token
	ordered   []Token
}

// NewTokenRegistry builds a registry from the configured tokens
func NewTokenRegistry(tokens []Token) *TokenRegistry {
	r := &TokenRegistry{
		bySymbol:  make(map[string]Token, len(tokens)),
		byAddress: make(map[string]Token, len(tokens)),
		ordered:   make([]Token, 0, len(tokens)),
	}
	for _, t := range tokens {
		t.Symbol = strings.ToUpper(t.Symbol)
		t.Address = strings.ToLower(t.Address)
		r.bySymbol[t.Symbol] = t
		r.byAddress[t.Address] = t
		r.ordered = append(r.ordered, t)
	}
	return r
}

// BySymbol returns the token with the given symbol
func (r *TokenRegistry) BySymbol(symbol string) (Token, bool) {
	t, ok := r.bySymbol[strings.ToUpper(symbol)]
	return t, ok
}

// ByAddress returns the token at the given address
func (r *TokenRegistry) ByAddress(address string) (Token, bool) {
	t, ok := r.byAddress[strings.ToLower(address)]
	return t, ok
}

// All returns the tokens in configuration order
func (r *TokenRegistry) All() []Token {
	return r.ordered
}
