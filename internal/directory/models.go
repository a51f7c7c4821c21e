// Package directory resolves the reviewers eligible to handle an approval
// item and their current workload. The identity source itself is external;
// this package adapts it to the engine's needs.
package directory

// User is the identity tuple the external directory returns.
type User struct {
	ID         string `json:"id"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

// Filter narrows a directory lookup. Empty slices mean no restriction on
// that axis.
type Filter struct {
	Roles       []string
	Departments []string
}

// ReviewerInfo is one eligible reviewer with the load-balancing signal
// attached.
type ReviewerInfo struct {
	UserID          string
	Role            string
	Department      string
	OpenAssignments int
}
