package scanner

func IsDigit[T byte | rune](b T) bool {
	return b >= '0' && b <= '9'
}

func IsNonZeroDigit[T byte | rune](b T) bool {
	return b >= '1' && b <= '9'
}

func IsCtrl[T byte | rune](b T) bool {
	return b < 32
}

// IsSpace reports whether b is JSON insignificant whitespace.
func IsSpace[T byte | rune](b T) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// HexValue returns the value of the hex digit b, or -1 if b is not a hex
// digit.
func HexValue[T byte | rune](b T) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10
	default:
		return -1
	}
}
