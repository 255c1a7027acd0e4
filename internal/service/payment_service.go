package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutorlane/tutorlane-api/internal/models"
	appErrors "github.com/tutorlane/tutorlane-api/pkg/errors"
	"github.com/tutorlane/tutorlane-api/pkg/export"
)

type paymentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	FindByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
	UpdateStatus(ctx context.Context, id string, status models.PaymentStatus, paymentID, signature *string, updatedAt time.Time) error
}

type paymentCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type enroller interface {
	Enroll(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
}

// PaymentConfig defines gateway verification parameters.
type PaymentConfig struct {
	GatewaySecret   string
	DefaultCurrency string
}

// PaymentService records course purchases and verifies gateway callbacks.
type PaymentService struct {
	repo        paymentRepository
	courses     paymentCourseRepository
	enrollments enroller
	pdf         *export.PDFExporter
	validator   *validator.Validate
	logger      *zap.Logger
	config      PaymentConfig
}

// NewPaymentService constructs a PaymentService instance.
func NewPaymentService(repo paymentRepository, courses paymentCourseRepository, enrollments enroller, validate *validator.Validate, logger *zap.Logger, config PaymentConfig) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = "INR"
	}
	return &PaymentService{
		repo:        repo,
		courses:     courses,
		enrollments: enrollments,
		pdf:         export.NewPDFExporter(),
		validator:   validate,
		logger:      logger,
		config:      config,
	}
}

// CreatePayment opens a pending payment record for a checkout session.
func (s *PaymentService) CreatePayment(ctx context.Context, studentID string, req models.CreatePaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if existing, err := s.repo.FindByOrderID(ctx, req.OrderID); err == nil {
		if existing.StudentID != studentID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "order belongs to another student")
		}
		return existing, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing order")
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.config.DefaultCurrency
	}

	payment := &models.Payment{
		ID:            uuid.NewString(),
		StudentID:     studentID,
		CourseID:      course.ID,
		TutorID:       course.TutorID,
		Amount:        req.Amount,
		Currency:      currency,
		OrderID:       req.OrderID,
		Status:        models.PaymentStatusPending,
		PaymentMethod: req.PaymentMethod,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create payment")
	}

	s.logger.Info("payment opened", zap.String("payment_id", payment.ID), zap.String("order_id", payment.OrderID))
	return payment, nil
}

// ConfirmPayment verifies the gateway signature and settles the pending
// payment. A valid signature completes it and enrolls the student; an invalid
// one marks it failed.
func (s *PaymentService) ConfirmPayment(ctx context.Context, studentID, id string, req models.ConfirmPaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid confirmation payload")
	}

	payment, err := s.ownedPayment(ctx, studentID, id)
	if err != nil {
		return nil, err
	}
	if payment.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("payment is already %s", payment.Status))
	}

	now := time.Now().UTC()
	if !s.verifySignature(payment.OrderID, req.PaymentID, req.Signature) {
		if err := s.repo.UpdateStatus(ctx, payment.ID, models.PaymentStatusFailed, &req.PaymentID, nil, now); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment failure")
		}
		payment.Status = models.PaymentStatusFailed
		payment.PaymentID = &req.PaymentID
		payment.UpdatedAt = now
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment signature verification failed")
	}

	if err := s.repo.UpdateStatus(ctx, payment.ID, models.PaymentStatusCompleted, &req.PaymentID, &req.Signature, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete payment")
	}
	payment.Status = models.PaymentStatusCompleted
	payment.PaymentID = &req.PaymentID
	payment.Signature = &req.Signature
	payment.UpdatedAt = now

	if _, err := s.enrollments.Enroll(ctx, payment.StudentID, payment.CourseID); err != nil {
		s.logger.Error("payment completed but enrollment failed",
			zap.String("payment_id", payment.ID),
			zap.String("student_id", payment.StudentID),
			zap.String("course_id", payment.CourseID),
			zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "payment completed but enrollment failed")
	}

	s.logger.Info("payment completed", zap.String("payment_id", payment.ID), zap.String("order_id", payment.OrderID))
	return payment, nil
}

// ListPayments returns the student's payment history, newest first.
func (s *PaymentService) ListPayments(ctx context.Context, studentID string) ([]models.Payment, error) {
	payments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return payments, nil
}

// GetPayment returns a single payment the student owns.
func (s *PaymentService) GetPayment(ctx context.Context, studentID, id string) (*models.Payment, error) {
	return s.ownedPayment(ctx, studentID, id)
}

// Receipt renders a PDF receipt for a completed payment.
func (s *PaymentService) Receipt(ctx context.Context, studentID, id string) ([]byte, error) {
	payment, err := s.ownedPayment(ctx, studentID, id)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrValidation, "receipt is only available for completed payments")
	}

	courseTitle := payment.CourseID
	if course, err := s.courses.FindByID(ctx, payment.CourseID); err == nil {
		courseTitle = course.Title
	}

	paymentID := ""
	if payment.PaymentID != nil {
		paymentID = *payment.PaymentID
	}

	fields := []export.ReceiptField{
		{Label: "Receipt No", Value: payment.ID},
		{Label: "Order ID", Value: payment.OrderID},
		{Label: "Payment ID", Value: paymentID},
		{Label: "Course", Value: courseTitle},
		{Label: "Amount", Value: fmt.Sprintf("%.2f %s", payment.Amount, payment.Currency)},
		{Label: "Status", Value: string(payment.Status)},
		{Label: "Paid At", Value: payment.UpdatedAt.UTC().Format(time.RFC1123)},
	}

	content, err := s.pdf.RenderReceipt("Payment Receipt", fields)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return content, nil
}

func (s *PaymentService) ownedPayment(ctx context.Context, studentID, id string) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if payment.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "payment belongs to another student")
	}
	return payment, nil
}

// verifySignature checks the gateway HMAC: hex(HMAC-SHA256(orderID|paymentID)).
func (s *PaymentService) verifySignature(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(s.config.GatewaySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
