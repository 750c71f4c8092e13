package mint

import (
	"math"
	"math/big"

	"github.com/The-x-35/vibegame-sub000/internal/txerrors"

	"github.com/shopspring/decimal"
)

var maxRaw = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

// ToRaw converts a decimal amount into the mint's integer base unit,
// rounding half away from zero at the last unit. All arithmetic is base 10.
func ToRaw(amount decimal.Decimal, decimals uint8) (uint64, error) {
	if amount.Sign() <= 0 {
		return 0, txerrors.Field("mint.ToRaw", "amount", "must be greater than zero")
	}

	raw := amount.Shift(int32(decimals)).Round(0)
	if raw.Sign() <= 0 {
		return 0, txerrors.Field("mint.ToRaw", "amount", "is smaller than the token's smallest unit")
	}
	if raw.GreaterThan(maxRaw) {
		return 0, txerrors.Field("mint.ToRaw", "amount", "is too large")
	}
	return raw.BigInt().Uint64(), nil
}

// FromRaw converts a raw base-unit amount back to a decimal amount.
func FromRaw(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals))
}
