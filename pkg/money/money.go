package money

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Cents is a fixed-point currency amount stored as integer hundredths.
// It scans from and stores to DECIMAL(12,2) columns without ever passing
// through floating point, so sums of line totals stay exact.
type Cents int64

// Parse converts a decimal string such as "50.00" or "30" into Cents.
func Parse(raw string) (Cents, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}
	whole, frac := s, ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		whole, frac = s[:idx], s[idx+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two fractional digits", raw)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	hundredths, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	value := units*100 + hundredths
	if negative {
		value = -value
	}
	return Cents(value), nil
}

// MulQuantity returns the amount multiplied by an integer quantity.
func (c Cents) MulQuantity(qty int) Cents {
	return c * Cents(qty)
}

// String renders the amount with two fractional digits.
func (c Cents) String() string {
	value := int64(c)
	sign := ""
	if value < 0 {
		sign = "-"
		value = -value
	}
	return fmt.Sprintf("%s%d.%02d", sign, value/100, value%100)
}

// MarshalJSON encodes the amount as a decimal string.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(c.String())), nil
}

// UnmarshalJSON accepts either a decimal string or a bare number.
func (c *Cents) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Scan implements sql.Scanner for DECIMAL columns.
func (c *Cents) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = 0
		return nil
	case []byte:
		parsed, err := Parse(string(v))
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	case int64:
		// An integer source is ambiguous: it could carry whole units or
		// hundredths depending on the driver. Refuse rather than guess.
		return fmt.Errorf("cannot scan integer %d into Cents: decimal scale unknown", v)
	default:
		return fmt.Errorf("cannot scan %T into Cents", src)
	}
}

// Value implements driver.Valuer, emitting the canonical decimal string.
func (c Cents) Value() (driver.Value, error) {
	return c.String(), nil
}
