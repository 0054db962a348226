package mangle

import (
	"fmt"
	"strconv"
	"strings"
)

// Escape encodes a qualified name such as "package::lib::helper" into a
// single identifier. Path components are joined with "_" and characters
// that cannot appear in an identifier, or would be ambiguous, are escaped:
//
//	_  -> _0
//	<  -> _1
//	>  -> _2
//	,  -> _3
//	other non-identifier bytes -> _4 followed by two hex digits
//
// A "_" followed by anything other than a digit 0-4 separates components,
// which makes the encoding reversible with Demangle.
func Escape(qualified string) string {
	parts := strings.Split(qualified, "::")
	var sb strings.Builder
	for i, p := range parts {
		if i > 0 {
			sb.WriteByte('_')
			// A digit right after the separator would read as an escape.
			if p != "" && p[0] >= '0' && p[0] <= '9' {
				fmt.Fprintf(&sb, "_4%02x", p[0])
				p = p[1:]
			}
		}
		escapeComponent(&sb, p)
	}
	return sb.String()
}

// EscapeComponent encodes a single name, e.g. an instance short name
// "f<f32,4>", without adding separators.
func EscapeComponent(name string) string {
	var sb strings.Builder
	escapeComponent(&sb, name)
	return sb.String()
}

func escapeComponent(sb *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_':
			sb.WriteString("_0")
		case c == '<':
			sb.WriteString("_1")
		case c == '>':
			sb.WriteString("_2")
		case c == ',':
			sb.WriteString("_3")
		case isIdentByte(c):
			sb.WriteByte(c)
		default:
			fmt.Fprintf(sb, "_4%02x", c)
		}
	}
}

// isIdentByte accepts ASCII letters and digits. Bytes of multi-byte UTF-8
// identifiers are escaped as well, which keeps the output plain ASCII.
func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// Demangle decodes a name produced by Escape back into its qualified form.
func Demangle(name string) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c != '_' {
			sb.WriteByte(c)
			continue
		}
		if i+1 >= len(name) {
			return "", fmt.Errorf("demangle %q: trailing escape", name)
		}
		switch name[i+1] {
		case '0':
			sb.WriteByte('_')
			i++
		case '1':
			sb.WriteByte('<')
			i++
		case '2':
			sb.WriteByte('>')
			i++
		case '3':
			sb.WriteByte(',')
			i++
		case '4':
			if i+3 >= len(name) {
				return "", fmt.Errorf("demangle %q: truncated byte escape", name)
			}
			b, err := strconv.ParseUint(name[i+2:i+4], 16, 8)
			if err != nil {
				return "", fmt.Errorf("demangle %q: %w", name, err)
			}
			sb.WriteByte(byte(b))
			i += 3
		default:
			sb.WriteString("::")
		}
	}
	return sb.String(), nil
}
