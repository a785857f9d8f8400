package ethwallet

import (
	"fmt"
	"math/big"
	"strings"
)

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// ParseEther converts a decimal ether amount to wei. The amount must be
// positive and representable in wei (at most 18 decimal places).
func ParseEther(amount string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(amount))
	if !ok {
		return nil, newError(CodeValidation, fmt.Sprintf("invalid amount %q", amount))
	}
	if r.Sign() <= 0 {
		return nil, newError(CodeValidation, "amount must be greater than 0")
	}
	r.Mul(r, new(big.Rat).SetInt(weiPerEther))
	if !r.IsInt() {
		return nil, newError(CodeValidation, fmt.Sprintf("amount %q has more than 18 decimal places", amount))
	}
	return new(big.Int).Set(r.Num()), nil
}

// FormatEther converts wei to a decimal ether string with trailing zeros
// trimmed, e.g. 50000000000000000 -> "0.05".
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	s := new(big.Rat).SetFrac(wei, weiPerEther).FloatString(18)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}
