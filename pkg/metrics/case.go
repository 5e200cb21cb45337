package metrics

import "strings"

// metricName turns an arbitrary label such as "CallCache" or "my-app.v2"
// into a snake_case segment that is valid inside a Prometheus metric name.
func metricName(s string) string {
	runes := []rune(s)

	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	sep := false
	for i, r := range runes {
		if !isLower(r) && !isUpper(r) && !isDigit(r) {
			sep = b.Len() > 0
			continue
		}

		if isUpper(r) && b.Len() > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && isLower(runes[i+1])
			if isLower(prev) || isDigit(prev) || (isUpper(prev) && nextLower) {
				sep = true
			}
			r += 'a' - 'A'
		} else if isUpper(r) {
			r += 'a' - 'A'
		}

		if sep {
			b.WriteByte('_')
			sep = false
		}
		b.WriteRune(r)
	}

	out := b.String()
	if out != "" && isDigit(rune(out[0])) {
		out = "_" + out
	}
	return out
}

func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }
