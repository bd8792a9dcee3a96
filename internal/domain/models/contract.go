package models

import (
	"fmt"
	"time"
)

// OptionRight is the option side.
type OptionRight string

const (
	Call OptionRight = "C"
	Put  OptionRight = "P"
)

// ContractKey identifies an option series. It is a comparable value type
// so it can be used directly as a map key.
type ContractKey struct {
	Underlying string
	Strike     float64
	Right      OptionRight
	Expiration string // YYYY-MM-DD
}

func (k ContractKey) String() string {
	return fmt.Sprintf("%s_%.2f_%s_%s", k.Underlying, k.Strike, k.Right, k.Expiration)
}

// Contract describes a listed option series. Immutable once created.
type Contract struct {
	Key        ContractKey
	Multiplier int // contracts-to-shares, 100 for standard equity options
}

// NewContract builds a Contract with the standard multiplier.
func NewContract(underlying string, strike float64, right OptionRight, expiration string) Contract {
	return Contract{
		Key: ContractKey{
			Underlying: underlying,
			Strike:     strike,
			Right:      right,
			Expiration: expiration,
		},
		Multiplier: 100,
	}
}

// DaysToExpiry returns calendar days until expiration, 0 if unparsable or past.
func (c Contract) DaysToExpiry(now time.Time) int {
	exp, err := time.Parse("2006-01-02", c.Key.Expiration)
	if err != nil {
		return 0
	}
	d := int(exp.Sub(now.Truncate(24*time.Hour)).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
