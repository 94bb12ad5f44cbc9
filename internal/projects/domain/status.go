package domain

// Project lifecycle statuses. The transition table below is the closed set
// of allowed moves; anything not listed is rejected.
const (
	StatusPending   = "PENDING"
	StatusActive    = "ACTIVE"
	StatusArchived  = "ARCHIVED"
	StatusCompleted = "COMPLETED"
)

var Statuses = []string{StatusPending, StatusActive, StatusArchived, StatusCompleted}

func ValidStatus(s string) bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

type transition struct {
	from, to string
}

var allowedTransitions = map[transition]bool{
	{StatusPending, StatusActive}:     true,
	{StatusActive, StatusCompleted}:   true,
	{StatusActive, StatusArchived}:    true,
	{StatusCompleted, StatusArchived}: true,
}

func CanTransition(from, to string) bool {
	return allowedTransitions[transition{from: from, to: to}]
}

// IsActive reports whether a project still counts as "active" for the
// one-active-project-per-account membership rule.
func IsActive(status string) bool {
	return status == StatusPending || status == StatusActive
}
