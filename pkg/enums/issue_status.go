package enums

import "fmt"

// IssueStatus tracks a book loan through its lifecycle.
type IssueStatus string

const (
	IssueStatusRequested IssueStatus = "REQUESTED"
	IssueStatusIssued    IssueStatus = "ISSUED"
	IssueStatusReturned  IssueStatus = "RETURNED"
	IssueStatusRejected  IssueStatus = "REJECTED"
)

var validIssueStatuses = []IssueStatus{
	IssueStatusRequested,
	IssueStatusIssued,
	IssueStatusReturned,
	IssueStatusRejected,
}

// String implements fmt.Stringer.
func (s IssueStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known IssueStatus.
func (s IssueStatus) IsValid() bool {
	for _, candidate := range validIssueStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from the status.
func (s IssueStatus) IsTerminal() bool {
	return s == IssueStatusReturned || s == IssueStatusRejected
}

// ParseIssueStatus converts raw input into an IssueStatus.
func ParseIssueStatus(value string) (IssueStatus, error) {
	for _, candidate := range validIssueStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid issue status %q", value)
}
