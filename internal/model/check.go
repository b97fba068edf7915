package model

// CheckStatus grades the outcome of a single health check.
type CheckStatus string

const (
	// CheckStatusOK means the check passed.
	CheckStatusOK CheckStatus = "ok"
	// CheckStatusWarning means the check passed but something needs attention.
	CheckStatusWarning CheckStatus = "warning"
	// CheckStatusError means the check failed.
	CheckStatusError CheckStatus = "error"
)

// CheckResult is the outcome of one health check run by the doctor
// service, identified by a stable ID such as "database_reachable".
type CheckResult struct {
	ID      string
	Message string
	Status  CheckStatus
}

// HasErrors reports whether any result in the set failed.
func HasErrors(results []CheckResult) bool {
	for _, r := range results {
		if r.Status == CheckStatusError {
			return true
		}
	}
	return false
}

// CountByStatus tallies check results per status.
func CountByStatus(results []CheckResult) (ok, warnings, errors int) {
	for _, r := range results {
		switch r.Status {
		case CheckStatusOK:
			ok++
		case CheckStatusWarning:
			warnings++
		case CheckStatusError:
			errors++
		}
	}
	return ok, warnings, errors
}
