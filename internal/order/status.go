package order

var allowedTransitions = map[OrderStatus]map[OrderStatus]bool{
	StatusPending: {
		StatusPaid:      true,
		StatusCancelled: true,
	},
	StatusPaid: {
		StatusPreparing: true,
		StatusCancelled: true,
	},
	StatusPreparing: {
		StatusReady:     true,
		StatusCancelled: true,
	},
	StatusReady: {
		StatusCompleted: true,
		StatusCancelled: true,
	},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransition reports whether an order in status from may move to status to.
// Staying in the same status is not a transition and returns false.
func CanTransition(from, to OrderStatus) bool {
	return allowedTransitions[from][to]
}

func IsTerminal(s OrderStatus) bool {
	next, ok := allowedTransitions[s]
	return ok && len(next) == 0
}
