// Package health aggregates dependency checks into the JSON document served on the
// readiness and liveness endpoints.
package health

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Check is a named dependency check. The function returns an HTTP status, a message
// (plain text or a nested JSON object) and an optional error.
type Check struct {
	Name  string
	Check func(context.Context, bool) (int, string, error)
}

// CheckAll runs every check and reports 503 if any of them failed.
func CheckAll(ctx context.Context, checkLiveness bool, checks []Check) (int, string, error) {
	var (
		overallStatus = http.StatusOK
		messages      = make([]string, 0, len(checks))
	)

	for _, check := range checks {
		status, message, err := check.Check(ctx, checkLiveness)
		if err != nil || status != http.StatusOK {
			overallStatus = http.StatusServiceUnavailable
		}

		if isJSONObject(message) {
			messages = append(messages, fmt.Sprintf(`{"resource": "%s", "status": "%d", "error": "%v", "dependencies": [%s]}`, check.Name, status, err, message))
		} else {
			messages = append(messages, fmt.Sprintf(`{"resource": "%s", "status": "%d", "error": "%v", "message": "%s"}`, check.Name, status, err, message))
		}
	}

	return overallStatus, fmt.Sprintf(`{"status":"%d", "dependencies":[%s]}`, overallStatus, strings.Join(messages, ",\n")), nil
}

// CheckMinimum fails when count() is below minimum, e.g. connected peers or registered
// wallets.
func CheckMinimum(what string, minimum int, count func() int) func(context.Context, bool) (int, string, error) {
	return func(_ context.Context, _ bool) (int, string, error) {
		n := count()
		if n < minimum {
			return http.StatusServiceUnavailable, fmt.Sprintf("%d %s, need at least %d", n, what, minimum), nil
		}

		return http.StatusOK, fmt.Sprintf("%d %s", n, what), nil
	}
}

func isJSONObject(message string) bool {
	return len(message) > 0 && message[0] == '{' && message[len(message)-1] == '}'
}
