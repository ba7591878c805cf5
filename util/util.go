package util

import "unicode"

func IsNumber(b byte) bool {
	return b >= '0' && b <= '9'
}

func IsUnderScore(b byte) bool {
	return b == '_'
}

func IsLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// IsIdentifierStart reports whether b may begin an identifier.
func IsIdentifierStart(b byte) bool {
	return IsLetter(b) || IsUnderScore(b)
}

// IsIdentifierPart reports whether b may continue an identifier.
func IsIdentifierPart(b byte) bool {
	return IsLetter(b) || IsUnderScore(b) || IsNumber(b)
}

func IsSpace(b byte) bool {
	return unicode.IsSpace(rune(b))
}

// IsOperator reports whether b starts one of the operator or punctuation tokens.
func IsOperator(b byte) bool {
	switch b {
	case '+', '-', '*', '/', '(', ')', '{', '}', ';', '=', '!', '<', '>':
		return true
	}
	return false
}

// IsSignedNumber accepts an optional leading '-' followed by at least one digit.
func IsSignedNumber(s string) bool {
	if len(s) > 0 && s[0] == '-' {
		s = s[1:]
	}
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !IsNumber(s[i]) {
			return false
		}
	}
	return true
}
