package tally

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Cash is the reserved symbol of the cash balance, always priced at 1.
const Cash = "CASH"

// Kind is the type of a transaction.
type Kind int

const (
	Buy Kind = iota + 1
	Sell
	Deposit
	Withdraw
)

var kindNames = map[Kind]string{
	Buy:      "BUY",
	Sell:     "SELL",
	Deposit:  "DEPOSIT",
	Withdraw: "WITHDRAW",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind parses a transaction type, case-insensitively.
func ParseKind(s string) (Kind, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown transaction type %q", ErrInvalidArgument, s)
}

// inflow reports whether the traded symbol's units increase.
func (k Kind) inflow() bool { return k == Buy || k == Deposit }

// needsFunds reports whether the cash balance must cover the amount.
func (k Kind) needsFunds() bool { return k == Buy || k == Withdraw }

// isCashMovement reports whether the kind is allowed on the Cash symbol.
func (k Kind) isCashMovement() bool { return k == Deposit || k == Withdraw }

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Value implements driver.Valuer, kinds are stored by name.
func (k Kind) Value() (driver.Value, error) { return k.String(), nil }

// Scan implements sql.Scanner.
func (k *Kind) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return k.UnmarshalText([]byte(v))
	case []byte:
		return k.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into a transaction kind", src)
	}
}
