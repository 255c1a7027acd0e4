package models

import "time"

// PaymentStatus tracks a payment through the gateway lifecycle. Transitions
// are one-directional toward a terminal state.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Terminal reports whether the status permits no further transitions. Only
// pending payments may still move.
func (s PaymentStatus) Terminal() bool {
	return s != PaymentStatusPending
}

// Payment records a course purchase attempt against the external gateway.
type Payment struct {
	ID            string        `db:"id" json:"id"`
	StudentID     string        `db:"student_id" json:"student_id"`
	CourseID      string        `db:"course_id" json:"course_id"`
	TutorID       string        `db:"tutor_id" json:"tutor_id"`
	Amount        float64       `db:"amount" json:"amount"`
	Currency      string        `db:"currency" json:"currency"`
	OrderID       string        `db:"order_id" json:"order_id"`
	PaymentID     *string       `db:"payment_id" json:"payment_id,omitempty"`
	Signature     *string       `db:"signature" json:"-"`
	Status        PaymentStatus `db:"status" json:"status"`
	PaymentMethod string        `db:"payment_method" json:"payment_method,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// PaymentSummary is the minimal shape shown in the dashboard's recent list.
type PaymentSummary struct {
	ID          string        `db:"id" json:"id"`
	Amount      float64       `db:"amount" json:"amount"`
	Status      PaymentStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	CourseTitle string        `db:"course_title" json:"course_title"`
}

// CreatePaymentRequest opens a pending payment for a course. The order ID
// comes from the gateway checkout session created client-side.
type CreatePaymentRequest struct {
	CourseID      string  `json:"course_id" validate:"required"`
	OrderID       string  `json:"order_id" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Currency      string  `json:"currency"`
	PaymentMethod string  `json:"payment_method"`
}

// ConfirmPaymentRequest completes a pending payment with the gateway's
// payment ID and HMAC signature.
type ConfirmPaymentRequest struct {
	PaymentID string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}
