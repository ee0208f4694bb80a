package pagenav

const (
	MaxLimit     = 100
	DefaultLimit = 10
)

// IsNormalizedLimitMax clamps limit into [1, maxLimit]; non-positive limits
// fall back to DefaultLimit. The bool reports whether limit was already valid.
func IsNormalizedLimitMax(limit int, maxLimit int) (int, bool) {
	if limit <= 0 {
		return DefaultLimit, false
	} else if limit > maxLimit {
		return maxLimit, false
	}

	return limit, true
}

func NormalizeLimitMax(limit int, maxLimit int) int {
	ret, _ := IsNormalizedLimitMax(limit, maxLimit)
	return ret
}

// NormalizeLimit is NormalizeLimitMax with MaxLimit.
func NormalizeLimit(limit int) int {
	return NormalizeLimitMax(limit, MaxLimit)
}
