package utils

import (
	"fmt"
	"strings"
)

const (
	firstPrintableByte = 32
	lastPrintableByte  = 126
)

var namedEscapes = map[byte]string{
	0x00: `\0`,
	'\a': `\a`,
	'\b': `\b`,
	'\f': `\f`,
	'\n': `\n`,
	'\r': `\r`,
	'\t': `\t`,
	'\v': `\v`,
	'\\': `\\`,
	'\'': `\'`,
	'"':  `\"`,
}

// EscapeString applies C-style escaping to every byte of value. Printable ASCII
// passes through unchanged except backslash and quotes; other bytes become \xHH.
func EscapeString(value string) string {
	var builder strings.Builder
	builder.Grow(len(value))
	for index := 0; index < len(value); index++ {
		currentByte := value[index]
		if escaped, named := namedEscapes[currentByte]; named {
			builder.WriteString(escaped)
			continue
		}
		if currentByte < firstPrintableByte || currentByte > lastPrintableByte {
			fmt.Fprintf(&builder, `\x%02x`, currentByte)
			continue
		}
		builder.WriteByte(currentByte)
	}
	return builder.String()
}
