package codec

import (
	"strconv"
	"strings"
)

var arrayDtypes = map[string]int{
	"float16": 2, "float32": 4, "float64": 8,
	"uint8": 1, "uint16": 2, "uint32": 4, "uint64": 8,
	"int8": 1, "int16": 2, "int32": 4, "int64": 8,
	"bool": 1,
}

// parseIntN matches "int(N)" and returns N.
func parseIntN(s string) (int, bool) {
	if !strings.HasPrefix(s, "int(") || !strings.HasSuffix(s, ")") {
		return 0, false
	}
	inner := s[len("int(") : len(s)-1]
	n, err := strconv.Atoi(inner)
	if err != nil || n <= 0 || n > 8 {
		return 0, false
	}
	return n, true
}

// parseVariadic matches "T[]" and returns the base type-string T.
func parseVariadic(s string) (string, bool) {
	if !strings.HasSuffix(s, "[]") {
		return "", false
	}
	base := s[:len(s)-2]
	if base == "" {
		return "", false
	}
	return base, true
}

// parseArray matches "array(dtype,d1,d2,...)" and returns the
// element dtype and the declared dimensions.
func parseArray(s string) (dtype string, dims []int, ok bool) {
	if !strings.HasPrefix(s, "array(") || !strings.HasSuffix(s, ")") {
		return "", nil, false
	}
	inner := s[len("array(") : len(s)-1]
	parts := strings.Split(inner, ",")
	if len(parts) < 2 {
		return "", nil, false
	}
	dtype = strings.TrimSpace(parts[0])
	if _, known := arrayDtypes[dtype]; !known {
		return "", nil, false
	}
	dims = make([]int, 0, len(parts)-1)
	for _, p := range parts[1:] {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || d <= 0 {
			return "", nil, false
		}
		dims = append(dims, d)
	}
	return dtype, dims, true
}

func dtypeSize(dtype string) int {
	return arrayDtypes[dtype]
}

func dimsProduct(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}
