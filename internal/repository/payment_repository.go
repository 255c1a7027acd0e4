package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorlane/tutorlane-api/internal/models"
)

const paymentColumns = `id, student_id, course_id, tutor_id, amount, currency, order_id, payment_id, signature, status, payment_method, created_at, updated_at`

// PaymentRepository handles persistence of payment records.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// FindByID returns a payment by identifier.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE id = $1 LIMIT 1`, paymentColumns)
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payment by id: %w", err)
	}
	return &payment, nil
}

// FindByOrderID returns a payment by its gateway order identifier.
func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE order_id = $1 LIMIT 1`, paymentColumns)
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, orderID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payment by order id: %w", err)
	}
	return &payment, nil
}

// ListByStudent returns a student's payments, newest first.
func (r *PaymentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE student_id = $1 ORDER BY created_at DESC`, paymentColumns)
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student payments: %w", err)
	}
	return payments, nil
}

// RecentByStudent returns the student's most recent payments resolved with
// course titles, limited for the dashboard.
func (r *PaymentRepository) RecentByStudent(ctx context.Context, studentID string, limit int) ([]models.PaymentSummary, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf(`SELECT p.id, p.amount, p.status, p.created_at, c.title AS course_title
        FROM payments p
        JOIN courses c ON c.id = p.course_id
        WHERE p.student_id = $1
        ORDER BY p.created_at DESC
        LIMIT %d`, limit)
	var summaries []models.PaymentSummary
	if err := r.db.SelectContext(ctx, &summaries, query, studentID); err != nil {
		return nil, fmt.Errorf("recent student payments: %w", err)
	}
	return summaries, nil
}

// Create persists a new payment record.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}

	const query = `INSERT INTO payments (id, student_id, course_id, tutor_id, amount, currency, order_id, payment_id, signature, status, payment_method, created_at, updated_at)
        VALUES (:id, :student_id, :course_id, :tutor_id, :amount, :currency, :order_id, :payment_id, :signature, :status, :payment_method, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// UpdateStatus records the gateway outcome for a payment.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status models.PaymentStatus, paymentID, signature *string, updatedAt time.Time) error {
	const query = `UPDATE payments SET status = $2, payment_id = $3, signature = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, paymentID, signature, updatedAt); err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return nil
}
