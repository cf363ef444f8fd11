package lookup

// Accepted serial number lengths, in runes.
const (
	ShortKeyLength = 3  // Lookup key length for 11-character serials
	LongKeyLength  = 4  // Lookup key length for 12-character serials
	ShortSerialLen = 11 // Pre-2010 serial number length
	LongSerialLen  = 12 // 2010-2020 serial number length
)

// DeriveLookupKey validates a raw serial number and returns the 3- or
// 4-character key Apple's product endpoint expects.
//
// The input is not trimmed or case-folded: "abc " is four runes and is
// sent as-is. Length is counted in runes, not bytes or grapheme clusters,
// so a letter followed by a combining mark counts twice.
func DeriveLookupKey(raw string) (string, error) {
	if raw == "" {
		return "", NewEmptyInputError()
	}

	chars := []rune(raw)
	switch len(chars) {
	case ShortKeyLength, LongKeyLength:
		return raw, nil
	case ShortSerialLen:
		return string(chars[len(chars)-ShortKeyLength:]), nil
	case LongSerialLen:
		return string(chars[len(chars)-LongKeyLength:]), nil
	default:
		return "", NewInvalidLengthError()
	}
}

// ValidateSerial reports whether raw would be accepted by DeriveLookupKey
func ValidateSerial(raw string) error {
	_, err := DeriveLookupKey(raw)
	return err
}
