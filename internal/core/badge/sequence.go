package badge

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	counterDigits = 4
	maxCounter    = 9999
)

// NextSequenceCode は部署コードと直前の連番コードから次の連番コードを求めます。
// last が空なら officeCode + "0001" を返します。
func NextSequenceCode(officeCode, last string) (string, error) {
	if strings.TrimSpace(officeCode) == "" {
		return "", ErrInvalidOfficeCode
	}
	if last == "" {
		return formatSequenceCode(officeCode, 1), nil
	}

	counter, err := parseCounter(officeCode, last)
	if err != nil {
		return "", err
	}
	if counter >= maxCounter {
		return "", fmt.Errorf("%s: %w", officeCode, ErrSequenceExhausted)
	}
	return formatSequenceCode(officeCode, counter+1), nil
}

func parseCounter(officeCode, code string) (int, error) {
	suffix, ok := strings.CutPrefix(code, officeCode)
	if !ok || len(suffix) != counterDigits {
		return 0, fmt.Errorf("%q: %w", code, ErrInvalidSequenceCode)
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%q: %w", code, ErrInvalidSequenceCode)
		}
	}
	counter, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", code, ErrInvalidSequenceCode)
	}
	return counter, nil
}

func formatSequenceCode(officeCode string, counter int) string {
	return fmt.Sprintf("%s%0*d", officeCode, counterDigits, counter)
}
