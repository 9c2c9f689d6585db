package walletcli

import (
	"fmt"
	"strconv"

	"insomnia-keeper/internal/domain"
)

// Flag names understood by the wallet tool.
const (
	FlagFunc      = "func"
	FlagPublicKey = "publicKey"
	FlagSecretKey = "secretKey"
	FlagToAddress = "toAddress"
	FlagAmount    = "amount"
	FlagPayload   = "payload"
	FlagSendMode  = "sendMode"
	FlagAddress   = "address"
)

// Args is an ordered list of named tool parameters. Entries keep insertion
// order; an entry whose value is absent (nil, or a nil pointer) is never
// rendered as a flag.
type Args struct {
	entries []argEntry
}

type argEntry struct {
	key   string
	value any
}

// NewArgs returns an empty argument list.
func NewArgs() *Args {
	return &Args{}
}

// Set appends key with value. Supported values are strings, booleans, the
// integer and float kinds, pointers to those, and fmt.Stringer.
func (a *Args) Set(key string, value any) *Args {
	a.entries = append(a.entries, argEntry{key: key, value: value})
	return a
}

// Len returns the number of entries, present or absent.
func (a *Args) Len() int {
	if a == nil {
		return 0
	}
	return len(a.entries)
}

// Flags renders the present entries as "--key value" pairs.
func (a *Args) Flags() ([]string, error) {
	if a == nil {
		return nil, nil
	}
	flags := make([]string, 0, 2*len(a.entries))
	for _, e := range a.entries {
		s, ok, err := formatValue(e.value)
		if err != nil {
			return nil, domain.NewDomainError("Args.Flags", domain.ErrInvalidInput,
				fmt.Sprintf("parameter %q: %v", e.key, err))
		}
		if !ok {
			continue
		}
		flags = append(flags, "--"+e.key, s)
	}
	return flags, nil
}

// formatValue returns the argument form of v, or ok=false when v is absent.
func formatValue(v any) (s string, ok bool, err error) {
	switch x := v.(type) {
	case nil:
		return "", false, nil
	case string:
		return x, true, nil
	case *string:
		if x == nil {
			return "", false, nil
		}
		return *x, true, nil
	case bool:
		return strconv.FormatBool(x), true, nil
	case int:
		return strconv.Itoa(x), true, nil
	case int8:
		return strconv.FormatInt(int64(x), 10), true, nil
	case int16:
		return strconv.FormatInt(int64(x), 10), true, nil
	case int32:
		return strconv.FormatInt(int64(x), 10), true, nil
	case int64:
		return strconv.FormatInt(x, 10), true, nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), true, nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), true, nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), true, nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), true, nil
	case uint64:
		return strconv.FormatUint(x, 10), true, nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true, nil
	case *int:
		if x == nil {
			return "", false, nil
		}
		return strconv.Itoa(*x), true, nil
	case *int64:
		if x == nil {
			return "", false, nil
		}
		return strconv.FormatInt(*x, 10), true, nil
	case *float64:
		if x == nil {
			return "", false, nil
		}
		return strconv.FormatFloat(*x, 'f', -1, 64), true, nil
	case *bool:
		if x == nil {
			return "", false, nil
		}
		return strconv.FormatBool(*x), true, nil
	case fmt.Stringer:
		return x.String(), true, nil
	default:
		return "", false, fmt.Errorf("unsupported value type %T", v)
	}
}
