// Package phone normalises WhatsApp sender ids so that counters and allow-lists match
// regardless of how the provider or an operator wrote the number.
package phone

import (
	"fmt"
	"strings"

	"github.com/ttacon/libphonenumber"
)

// DefaultRegion is used for numbers written in national format (e.g. 0712...).
const DefaultRegion = "KE"

func parse(raw string) (*libphonenumber.PhoneNumber, error) {
	s := strings.TrimSpace(raw)
	s = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(s)
	if s == "" {
		return nil, fmt.Errorf("empty phone number")
	}

	// Providers send international numbers without the leading plus.
	if !strings.HasPrefix(s, "+") && !strings.HasPrefix(s, "0") {
		s = "+" + s
	}

	num, err := libphonenumber.Parse(s, DefaultRegion)
	if err != nil {
		return nil, fmt.Errorf("failed to parse phone number %q: %w", raw, err)
	}
	return num, nil
}

// Normalize returns the number as E.164 digits without the plus sign, the form Vonage uses.
func Normalize(raw string) (string, error) {
	num, err := parse(raw)
	if err != nil {
		return "", err
	}
	if !libphonenumber.IsPossibleNumber(num) {
		return "", fmt.Errorf("phone number %q is not possible", raw)
	}

	return strings.TrimPrefix(libphonenumber.Format(num, libphonenumber.E164), "+"), nil
}

// NormalizeOrRaw is Normalize without the error; unparseable input is returned trimmed.
func NormalizeOrRaw(raw string) string {
	if n, err := Normalize(raw); err == nil {
		return n
	}
	return strings.TrimSpace(raw)
}

// Possible reports whether raw looks like a dialable number.
func Possible(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}

// NormalizeAll normalises a list, keeping entries that cannot be parsed verbatim.
func NormalizeAll(numbers []string) []string {
	out := make([]string, 0, len(numbers))
	for _, n := range numbers {
		out = append(out, NormalizeOrRaw(n))
	}
	return out
}
