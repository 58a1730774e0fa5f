package booking

import "tourbook-backend/internal/model"

type (
	Status        = model.BookingStatus
	PaymentStatus = model.PaymentStatus
)

// next lists the legal moves out of each status. Completed and cancelled are
// terminal.
var next = map[Status][]Status{
	model.StatusPending:   {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed: {model.StatusCompleted, model.StatusCancelled},
	model.StatusCompleted: nil,
	model.StatusCancelled: nil,
}

var nextPayment = map[PaymentStatus][]PaymentStatus{
	model.PaymentPending:  {model.PaymentPaid},
	model.PaymentPaid:     {model.PaymentRefunded},
	model.PaymentRefunded: nil,
}

func ValidStatus(s Status) bool {
	_, ok := next[s]
	return ok
}

func ValidPaymentStatus(p PaymentStatus) bool {
	_, ok := nextPayment[p]
	return ok
}

// CanTransition reports whether a booking may move from one status to another.
// Staying in the same status is allowed and is a no-op for the caller.
func CanTransition(from, to Status) bool {
	if !ValidStatus(from) || !ValidStatus(to) {
		return false
	}
	if from == to {
		return true
	}
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanTransitionPayment is CanTransition for the payment axis.
func CanTransitionPayment(from, to PaymentStatus) bool {
	if !ValidPaymentStatus(from) || !ValidPaymentStatus(to) {
		return false
	}
	if from == to {
		return true
	}
	for _, p := range nextPayment[from] {
		if p == to {
			return true
		}
	}
	return false
}
