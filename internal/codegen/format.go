package codegen

import (
	"strconv"
	"strings"
)

// FormatFloat renders v as the shortest decimal that parses back to the same
// float32. The output is a valid C floating literal ("0.1", "-3", "1e-05").
func FormatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

// FormatList renders vals as "v0, v1, ...".
func FormatList(vals []float32) string {
	var sb strings.Builder
	for i, v := range vals {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(FormatFloat(v))
	}
	return sb.String()
}
