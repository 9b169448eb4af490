package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// Все денежные суммы в системе хранятся в минорных единицах (центах).
// Деление на 100 происходит только здесь, при форматировании.

func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d$", sign, minor/100, minor%100)
}

// ParseAmount разбирает сумму вида "25", "25.5" или "25.50" в центы.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "$"))
	if s == "" {
		return 0, fmt.Errorf("пустая сумма")
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	whole := s
	frac := ""
	if idx := strings.IndexAny(s, ".,"); idx >= 0 {
		whole = s[:idx]
		frac = s[idx+1:]
	}

	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("слишком много знаков после запятой: %s", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	// После снятия знака обе части состоят только из цифр: ParseInt
	// сам по себе пропустил бы второй минус.
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, fmt.Errorf("неверный формат суммы: %s", s)
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("неверный формат суммы: %s", s)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("неверный формат суммы: %s", s)
	}

	minor := units*100 + cents
	if negative {
		minor = -minor
	}
	return minor, nil
}

func digitsOnly(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
