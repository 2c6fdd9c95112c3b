// AngelaMos | 2026
// tier.go

// Package tier defines the closed set of subscription tiers and their
// total order start < vip < premium.
package tier

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

var ErrUnknown = errors.New("unknown tier")

type Tier uint8

const (
	Start Tier = iota
	VIP
	Premium
)

var names = [...]string{
	Start:   "start",
	VIP:     "vip",
	Premium: "premium",
}

// All lists every tier in ascending order.
func All() []Tier {
	return []Tier{Start, VIP, Premium}
}

func Parse(s string) (Tier, error) {
	for i, name := range names {
		if name == s {
			return Tier(i), nil
		}
	}
	return Start, fmt.Errorf("%w: %q", ErrUnknown, s)
}

func (t Tier) Valid() bool {
	return int(t) < len(names)
}

func (t Tier) String() string {
	if !t.Valid() {
		return fmt.Sprintf("tier(%d)", uint8(t))
	}
	return names[t]
}

func (t Tier) Ordinal() int {
	return int(t)
}

// AtLeast reports whether t grants everything required grants.
func (t Tier) AtLeast(required Tier) bool {
	return t >= required
}

func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknown, uint8(t))
	}
	return []byte(names[t]), nil
}

func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Tier) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknown, uint8(t))
	}
	return names[t], nil
}

func (t *Tier) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return t.UnmarshalText([]byte(v))
	case []byte:
		return t.UnmarshalText(v)
	default:
		return fmt.Errorf("scan tier: unsupported type %T", src)
	}
}
