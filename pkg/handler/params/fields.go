package params

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/yumyai/bgcselect/pkg/model"
)

const (
	DefaultRunLimit = 20
	MaxRunLimit     = 500
)

// ParseVerdictFilter reads ?verdict=. An absent value matches every verdict.
func ParseVerdictFilter(q url.Values) (model.Verdict, error) {
	raw := q.Get("verdict")
	if raw == "" {
		return "", nil
	}
	v, ok := model.ParseVerdict(raw)
	if !ok {
		return "", fmt.Errorf("unknown verdict %q", raw)
	}
	return v, nil
}

// ParseLimit reads ?limit=, capped at MaxRunLimit.
func ParseLimit(q url.Values) (int, error) {
	raw := q.Get("limit")
	if raw == "" {
		return DefaultRunLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return min(n, MaxRunLimit), nil
}
