package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	Database  *DatabaseMetrics
	Messaging *MessagingMetrics

	loansCreated         metric.Int64Counter
	loansReturned        metric.Int64Counter
	policyRefusals       metric.Int64Counter
	booksAdded           metric.Int64Counter
	barcodesScanned      metric.Int64Counter
	studentsRegistered   metric.Int64Counter
	notificationsSent    metric.Int64Counter
	notificationFailures metric.Int64Counter

	logger *slog.Logger
}

func New(ctx context.Context, serviceName string, logger *slog.Logger) (*Metrics, error) {
	meter := otel.Meter(serviceName)

	database, err := NewDatabaseMetrics(meter)
	if err != nil {
		return nil, err
	}

	messaging, err := NewMessagingMetrics(meter)
	if err != nil {
		return nil, err
	}

	m := &Metrics{
		Database:  database,
		Messaging: messaging,
		logger:    logger,
	}

	m.loansCreated, err = meter.Int64Counter(
		"library.loans.created",
		metric.WithDescription("Total number of books borrowed"),
		metric.WithUnit("{loan}"),
	)
	if err != nil {
		return nil, err
	}

	m.loansReturned, err = meter.Int64Counter(
		"library.loans.returned",
		metric.WithDescription("Total number of books returned"),
		metric.WithUnit("{loan}"),
	)
	if err != nil {
		return nil, err
	}

	m.policyRefusals, err = meter.Int64Counter(
		"library.loans.policy_refusals",
		metric.WithDescription("Total number of borrow requests refused by lending policy"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.booksAdded, err = meter.Int64Counter(
		"library.books.added",
		metric.WithDescription("Total number of books added to the catalog"),
		metric.WithUnit("{book}"),
	)
	if err != nil {
		return nil, err
	}

	m.barcodesScanned, err = meter.Int64Counter(
		"library.barcodes.scanned",
		metric.WithDescription("Total number of barcode lookups"),
		metric.WithUnit("{scan}"),
	)
	if err != nil {
		return nil, err
	}

	m.studentsRegistered, err = meter.Int64Counter(
		"library.students.registered",
		metric.WithDescription("Total number of students registered"),
		metric.WithUnit("{student}"),
	)
	if err != nil {
		return nil, err
	}

	m.notificationsSent, err = meter.Int64Counter(
		"library.notifications.sent",
		metric.WithDescription("Total number of borrow notifications delivered"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}

	m.notificationFailures, err = meter.Int64Counter(
		"library.notifications.failures",
		metric.WithDescription("Total number of borrow notification delivery failures"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("metrics collectors initialized successfully")

	return m, nil
}

func (m *Metrics) RecordLoanCreated(ctx context.Context) {
	if m != nil && m.loansCreated != nil {
		m.loansCreated.Add(ctx, 1)
	}
}

func (m *Metrics) RecordLoanReturned(ctx context.Context) {
	if m != nil && m.loansReturned != nil {
		m.loansReturned.Add(ctx, 1)
	}
}

func (m *Metrics) RecordPolicyRefusal(ctx context.Context) {
	if m != nil && m.policyRefusals != nil {
		m.policyRefusals.Add(ctx, 1)
	}
}

func (m *Metrics) RecordBookAdded(ctx context.Context) {
	if m != nil && m.booksAdded != nil {
		m.booksAdded.Add(ctx, 1)
	}
}

func (m *Metrics) RecordBarcodeScanned(ctx context.Context) {
	if m != nil && m.barcodesScanned != nil {
		m.barcodesScanned.Add(ctx, 1)
	}
}

func (m *Metrics) RecordStudentRegistration(ctx context.Context) {
	if m != nil && m.studentsRegistered != nil {
		m.studentsRegistered.Add(ctx, 1)
	}
}

func (m *Metrics) RecordNotificationSent(ctx context.Context) {
	if m != nil && m.notificationsSent != nil {
		m.notificationsSent.Add(ctx, 1)
	}
}

func (m *Metrics) RecordNotificationFailure(ctx context.Context) {
	if m != nil && m.notificationFailures != nil {
		m.notificationFailures.Add(ctx, 1)
	}
}

// NewMock creates a no-op Metrics instance for testing
// The returned Metrics will safely ignore all Record* calls
func NewMock() *Metrics {
	return &Metrics{
		Database:  &DatabaseMetrics{},
		Messaging: &MessagingMetrics{},
	}
}
