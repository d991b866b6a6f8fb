package domain

import (
	"fmt"
	"strings"
	"time"
)

// Frequency represents how often a recurring invoice series fires.
type Frequency string

const (
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
	FrequencyAnnual  Frequency = "ANNUAL"
)

func (f Frequency) String() string { return string(f) }

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyAnnual:
		return true
	}
	return false
}

func ParseFrequencyFromString(s string) (Frequency, error) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", fmt.Errorf("%w: invalid frequency %q", ErrValidation, s)
	}
	return f, nil
}

// InvoiceStatus represents the billing state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "DRAFT"
	InvoiceStatusSent    InvoiceStatus = "SENT"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE"
)

func (s InvoiceStatus) String() string { return string(s) }

// Invoice is the billing entity. An invoice with IsRecurring set acts as a
// series template: the recurrence sweep materializes ordinary non-recurring
// successors from it and advances NextRun. The template itself is never
// marked paid or sent on behalf of a successor.
type Invoice struct {
	ID          string
	ClientID    string
	Number      string
	Date        time.Time
	DueDate     time.Time
	Status      InvoiceStatus
	Items       string
	Total       float64
	Currency    string
	IsRecurring bool
	Frequency   *Frequency
	NextRun     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
