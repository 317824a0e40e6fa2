package domain

import "encoding/json"

type PaymentState string

// Gateway invoice states.
const (
	InvoiceComplete PaymentState = "COMPLETE"
	InvoicePending  PaymentState = "PENDING"
	InvoiceRetry    PaymentState = "RETRY"
	InvoiceFailed   PaymentState = "FAILED"
)

// Terminal orchestrator states. IN_PROGRESS means another attempt for the sender owns the guard.
const (
	PaymentComplete   PaymentState = "COMPLETE"
	PaymentFailed     PaymentState = "FAILED"
	PaymentTimedOut   PaymentState = "TIMED_OUT"
	PaymentInProgress PaymentState = "IN_PROGRESS"
)

const (
	MsgPaymentComplete   = "Payment completed. You can resume conversation."
	MsgPaymentTimedOut   = "Your payment attempt is taking longer than usual. Please check your Mpesa messages."
	MsgPaymentFailed     = "Failed to initiate payment. Please try again."
	MsgPaymentDeclined   = "Your payment was not completed. Please try again."
	MsgPaymentInProgress = "A payment request is already in progress. Please complete the Mpesa prompt on your phone."
)

type Invoice struct {
	InvoiceID string       `json:"invoice_id"`
	State     PaymentState `json:"state,omitempty"`
}

type InitiateRequest struct {
	Amount      json.Number `json:"amount"`
	PhoneNumber string      `json:"phone_number"`
}

type StatusRequest struct {
	InvoiceID string `json:"invoice_id"`
}

// InvoiceResponse wraps both the initiate and the status answers of the gateway.
type InvoiceResponse struct {
	Invoice *Invoice `json:"invoice"`
}

type PaymentOutcome struct {
	State     PaymentState `json:"state"`
	InvoiceID string       `json:"invoiceId,omitempty"`
	Attempts  int          `json:"attempts"`
	Message   string       `json:"message"`
	// Notified is true when the orchestrator already sent Message (or its equivalent) to the user.
	Notified bool `json:"notified"`
}
