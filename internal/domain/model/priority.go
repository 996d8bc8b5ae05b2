package model

// PriorityClass selects the dispatch lane for an event. Lower level means
// higher scheduling precedence.
type PriorityClass int

const (
	PriorityUrgent PriorityClass = iota
	PriorityVIP
	PriorityStandard
	PriorityBackground
)

// PriorityCount is the number of dispatch lanes.
const PriorityCount = 4

// priorityLabels maps each class to its wire/log label.
var priorityLabels = [PriorityCount]string{
	PriorityUrgent:     "URGENT",
	PriorityVIP:        "VIP",
	PriorityStandard:   "STANDARD",
	PriorityBackground: "BACKGROUND",
}

// Valid reports whether the class is one of the four known lanes.
func (p PriorityClass) Valid() bool {
	return p >= PriorityUrgent && p <= PriorityBackground
}

func (p PriorityClass) String() string {
	if !p.Valid() {
		return "UNKNOWN"
	}
	return priorityLabels[p]
}

// ParsePriority maps raw text to a priority class.
func ParsePriority(raw string) (PriorityClass, bool) {
	for i, label := range priorityLabels {
		if label == raw {
			return PriorityClass(i), true
		}
	}
	return 0, false
}
