package utils

import (
	"encoding/json"
	"math"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	ethmath "github.com/ethereum/go-ethereum/common/math"
)

var (
	txHashRe   = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	addressRe  = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	hexDataRe  = regexp.MustCompile(`^0x[0-9a-f]*$`)
	hexQtyRe   = regexp.MustCompile(`^0[xX][0-9a-fA-F]+$`)
	decimalRe  = regexp.MustCompile(`^[0-9]+$`)
	maxUint64B = new(big.Int).SetUint64(math.MaxUint64)
)

// NormalizeTxHash returns v unchanged if it is a 0x-prefixed 32 byte hex string.
func NormalizeTxHash(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || !txHashRe.MatchString(s) {
		return "", false
	}
	return s, true
}

// NormalizeAddress returns the lowercased form of a 0x-prefixed 20 byte hex string.
func NormalizeAddress(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || !addressRe.MatchString(s) {
		return "", false
	}
	return strings.ToLower(s), true
}

// NormalizeHexData lowercases v and accepts "0x" followed by any number of hex digits.
func NormalizeHexData(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.ToLower(s)
	if !hexDataRe.MatchString(s) {
		return "", false
	}
	return s, true
}

// SameHash compares two transaction hashes ignoring case.
func SameHash(a, b string) bool {
	return strings.EqualFold(a, b)
}

// ParseQuantity converts the numeric shapes returned by JSON-RPC nodes and
// in-process providers into a non-negative big integer.
func ParseQuantity(v any) (*big.Int, bool) {
	switch n := v.(type) {
	case nil:
		return nil, false
	case int:
		return fromInt64(int64(n))
	case int8:
		return fromInt64(int64(n))
	case int16:
		return fromInt64(int64(n))
	case int32:
		return fromInt64(int64(n))
	case int64:
		return fromInt64(n)
	case uint:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint64:
		return new(big.Int).SetUint64(n), true
	case float64:
		// encoding/json decodes every number into float64 unless UseNumber is set
		if n < 0 || n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return nil, false
		}
		if n > 1<<53 {
			return nil, false
		}
		return new(big.Int).SetUint64(uint64(n)), true
	case json.Number:
		return parseQuantityString(string(n))
	case *big.Int:
		if n == nil || n.Sign() < 0 {
			return nil, false
		}
		return new(big.Int).Set(n), true
	case big.Int:
		if n.Sign() < 0 {
			return nil, false
		}
		return new(big.Int).Set(&n), true
	case *hexutil.Big:
		if n == nil {
			return nil, false
		}
		return ParseQuantity(n.ToInt())
	case hexutil.Big:
		return ParseQuantity(n.ToInt())
	case hexutil.Uint64:
		return new(big.Int).SetUint64(uint64(n)), true
	case *hexutil.Uint64:
		if n == nil {
			return nil, false
		}
		return new(big.Int).SetUint64(uint64(*n)), true
	case string:
		return parseQuantityString(n)
	default:
		return nil, false
	}
}

// ParseUint64 is ParseQuantity restricted to values that fit into a uint64.
func ParseUint64(v any) (uint64, bool) {
	q, ok := ParseQuantity(v)
	if !ok || q.Cmp(maxUint64B) > 0 {
		return 0, false
	}
	return q.Uint64(), true
}

func fromInt64(n int64) (*big.Int, bool) {
	if n < 0 {
		return nil, false
	}
	return big.NewInt(n), true
}

func parseQuantityString(s string) (*big.Int, bool) {
	if !hexQtyRe.MatchString(s) && !decimalRe.MatchString(s) {
		return nil, false
	}
	return ethmath.ParseBig256(s)
}
