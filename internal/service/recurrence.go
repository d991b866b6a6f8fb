package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/crm-engine/internal/domain"
	"github.com/kursadbilgin/crm-engine/internal/observability"
	"github.com/kursadbilgin/crm-engine/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultSweepInterval = 24 * time.Hour
	defaultStartupDelay  = 5 * time.Second
	defaultScanLimit     = 100

	invoiceDuePeriod = 30 * 24 * time.Hour
)

// RecurrenceScheduler materializes invoices from recurring series. Each
// sweep picks up series whose next run has passed, writes one successor
// invoice per series, and advances the series clock.
type RecurrenceScheduler struct {
	invoices     repository.InvoiceRepository
	interval     time.Duration
	startupDelay time.Duration
	scanLimit    int
	logger       *zap.Logger
	metrics      *observability.Metrics
	now          func() time.Time
}

func NewRecurrenceScheduler(
	invoices repository.InvoiceRepository,
	interval time.Duration,
	startupDelay time.Duration,
	scanLimit int,
	logger *zap.Logger,
) (*RecurrenceScheduler, error) {
	if invoices == nil {
		return nil, fmt.Errorf("invoice repository is required")
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if startupDelay < 0 {
		startupDelay = defaultStartupDelay
	}
	if scanLimit <= 0 {
		scanLimit = defaultScanLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RecurrenceScheduler{
		invoices:     invoices,
		interval:     interval,
		startupDelay: startupDelay,
		scanLimit:    scanLimit,
		logger:       logger,
		now:          time.Now,
	}, nil
}

func (s *RecurrenceScheduler) SetMetrics(metrics *observability.Metrics) {
	s.metrics = metrics
}

// Start blocks until ctx is cancelled. A first sweep runs after the
// startup delay so boot is not serialized behind catch-up work; further
// sweeps run on the configured interval.
func (s *RecurrenceScheduler) Start(ctx context.Context) error {
	s.logger.Info("recurrence scheduler started",
		zap.Duration("interval", s.interval),
		zap.Duration("startupDelay", s.startupDelay),
	)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.startupDelay):
	}

	if err := s.Sweep(ctx); err != nil {
		s.logger.Error("recurrence sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("recurrence scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("recurrence sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep processes every due series once. A failing series is logged and
// skipped; it does not stop the rest of the batch.
func (s *RecurrenceScheduler) Sweep(ctx context.Context) error {
	now := s.now()

	due, err := s.invoices.GetDueRecurring(ctx, now, s.scanLimit)
	if err != nil {
		return fmt.Errorf("failed to load due recurring invoices: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	s.logger.Info("processing recurring invoices", zap.Int("count", len(due)))

	for i := range due {
		series := &due[i]
		if err := s.processSeries(ctx, series, now); err != nil {
			s.metrics.IncRecurrenceFailure()
			s.logger.Error("failed to process recurring invoice",
				zap.String("invoiceId", series.ID),
				zap.String("clientId", series.ClientID),
				zap.Error(err),
			)
			continue
		}
		s.metrics.IncInvoiceGenerated()
	}

	return nil
}

// processSeries writes the successor invoice first and advances the series
// clock only after the write succeeds, so a failed write is retried on the
// next sweep.
func (s *RecurrenceScheduler) processSeries(ctx context.Context, series *domain.Invoice, now time.Time) error {
	number, err := s.nextInvoiceNumber(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to allocate invoice number: %w", err)
	}

	successor := &domain.Invoice{
		ID:          uuid.NewString(),
		ClientID:    series.ClientID,
		Number:      number,
		Date:        now,
		DueDate:     now.Add(invoiceDuePeriod),
		Status:      domain.InvoiceStatusSent,
		Items:       series.Items,
		Total:       series.Total,
		Currency:    series.Currency,
		IsRecurring: false,
	}
	if err := s.invoices.Create(ctx, successor); err != nil {
		return fmt.Errorf("failed to create invoice %s: %w", number, err)
	}

	frequency := domain.FrequencyMonthly
	if series.Frequency != nil {
		frequency = *series.Frequency
	}

	nextRun := ComputeNextRun(frequency, now)
	if err := s.invoices.UpdateNextRun(ctx, series.ID, nextRun); err != nil {
		return fmt.Errorf("failed to advance series: %w", err)
	}

	s.logger.Info("recurring invoice generated",
		zap.String("invoiceId", successor.ID),
		zap.String("number", number),
		zap.String("seriesId", series.ID),
		zap.Time("nextRun", nextRun),
	)
	return nil
}

// nextInvoiceNumber allocates the next sequential number within the
// current year, e.g. INV-2026-0042.
func (s *RecurrenceScheduler) nextInvoiceNumber(ctx context.Context, now time.Time) (string, error) {
	prefix := fmt.Sprintf("INV-%d", now.Year())
	count, err := s.invoices.CountByNumberPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%04d", prefix, count+1), nil
}

// ComputeNextRun advances a series clock from a reference time. WEEKLY adds
// exactly seven days and keeps the time of day; MONTHLY and ANNUAL land on
// the same calendar day of the next period at midnight, letting the
// calendar normalize overflow (Jan 31 monthly advances to Mar 2 in a
// non-leap year). Unknown frequencies fall back to monthly.
func ComputeNextRun(frequency domain.Frequency, from time.Time) time.Time {
	switch frequency {
	case domain.FrequencyWeekly:
		return from.Add(7 * 24 * time.Hour)
	case domain.FrequencyAnnual:
		return time.Date(from.Year()+1, from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	default:
		return time.Date(from.Year(), from.Month()+1, from.Day(), 0, 0, 0, 0, from.Location())
	}
}
