package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIntLiteral parses a WGSL integer literal such as 42, 42u, 0x2Ai.
// The returned scalar is AbstractInt for unsuffixed literals.
func ParseIntLiteral(lit string) (int64, ScalarType, error) {
	typ := AbstractInt
	body := lit
	switch {
	case strings.HasSuffix(body, "u"):
		typ, body = U32, body[:len(body)-1]
	case strings.HasSuffix(body, "i"):
		typ, body = I32, body[:len(body)-1]
	}

	base := 10
	if strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") {
		base, body = 16, body[2:]
	}
	v, err := strconv.ParseInt(body, base, 64)
	if err != nil {
		// 0xFFFFFFFFu and friends overflow int64 only for abstract values
		u, uerr := strconv.ParseUint(body, base, 64)
		if uerr != nil {
			return 0, typ, fmt.Errorf("invalid integer literal %q", lit)
		}
		v = int64(u) //nolint:gosec // reported by range check below
	}

	switch typ {
	case U32:
		if v < 0 || v > 0xFFFFFFFF {
			return 0, typ, fmt.Errorf("value %s does not fit in u32", lit)
		}
	case I32:
		if v < -1<<31 || v > 1<<31-1 {
			return 0, typ, fmt.Errorf("value %s does not fit in i32", lit)
		}
	}
	return v, typ, nil
}

// ParseFloatLiteral parses a WGSL float literal such as 1.0, 2.5f, 1e3, 0.5h.
func ParseFloatLiteral(lit string) (float64, ScalarType, error) {
	typ := AbstractFloat
	body := lit
	if !strings.HasPrefix(body, "0x") && !strings.HasPrefix(body, "0X") {
		switch {
		case strings.HasSuffix(body, "f"):
			typ, body = F32, body[:len(body)-1]
		case strings.HasSuffix(body, "h"):
			typ, body = F16, body[:len(body)-1]
		}
	}
	if strings.HasSuffix(body, ".") {
		body += "0"
	}
	v, err := strconv.ParseFloat(body, 64)
	if err != nil {
		return 0, typ, fmt.Errorf("invalid float literal %q", lit)
	}
	return v, typ, nil
}
