package service

import (
	"strings"
	"time"

	"github.com/jpmelo/financio-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// FinancingService handles financing lifecycle and schedule reads.
type FinancingService struct {
	financingRepo domain.FinancingRepository
	paymentRepo   domain.FinancingPaymentRepository
}

// NewFinancingService creates a new FinancingService
func NewFinancingService(financingRepo domain.FinancingRepository, paymentRepo domain.FinancingPaymentRepository) *FinancingService {
	return &FinancingService{
		financingRepo: financingRepo,
		paymentRepo:   paymentRepo,
	}
}

// CreateFinancingInput contains input for creating a financing
type CreateFinancingInput struct {
	Name         string
	Principal    decimal.Decimal
	PeriodicRate decimal.Decimal
	TermPeriods  int32
	Method       domain.AmortizationMethod
	StartDate    time.Time
	Notes        *string
}

// CreateFinancing validates the parameters and creates the financing with its
// cached aggregates initialized to the unpaid state.
func (s *FinancingService) CreateFinancing(workspaceID int32, input CreateFinancingInput) (*domain.Financing, error) {
	financing := &domain.Financing{
		WorkspaceID:       workspaceID,
		Name:              strings.TrimSpace(input.Name),
		Principal:         input.Principal,
		PeriodicRate:      input.PeriodicRate,
		TermPeriods:       input.TermPeriods,
		Method:            input.Method,
		StartDate:         input.StartDate,
		CurrentBalance:    input.Principal,
		TotalPaid:         decimal.Zero,
		TotalInterestPaid: decimal.Zero,
		PaidInstallments:  0,
		Status:            domain.FinancingStatusActive,
		Notes:             input.Notes,
	}
	if err := financing.Validate(); err != nil {
		return nil, err
	}

	// Parameters that cannot produce a schedule are rejected up front.
	if _, err := GenerateSchedule(ScheduleInputFromFinancing(financing)); err != nil {
		return nil, err
	}

	return s.financingRepo.Create(financing)
}

// GetFinancings retrieves all financings for a workspace
func (s *FinancingService) GetFinancings(workspaceID int32) ([]*domain.Financing, error) {
	return s.financingRepo.GetAllByWorkspace(workspaceID)
}

// GetFinancingByID retrieves a financing by ID within a workspace
func (s *FinancingService) GetFinancingByID(workspaceID int32, id int32) (*domain.Financing, error) {
	return s.financingRepo.GetByID(workspaceID, id)
}

// DeleteFinancing soft-deletes a financing. A financing with recorded payments
// can never be deleted.
func (s *FinancingService) DeleteFinancing(workspaceID int32, id int32) error {
	financing, err := s.financingRepo.GetByID(workspaceID, id)
	if err != nil {
		return err
	}
	payments, err := s.paymentRepo.GetByFinancing(financing.ID)
	if err != nil {
		return err
	}
	if len(payments) > 0 {
		return domain.ErrFinancingHasPayments
	}
	return s.financingRepo.SoftDelete(workspaceID, id)
}

// ScheduleEntry is a theoretical schedule row enriched with the payment that
// occupies it, when one exists.
type ScheduleEntry struct {
	ScheduleRow
	Paid      bool   `json:"paid"`
	PaymentID *int32 `json:"paymentId,omitempty"`
}

// GetSchedule regenerates the theoretical schedule for a stored financing and
// marks the rows already covered by committed payments.
func (s *FinancingService) GetSchedule(workspaceID int32, id int32) ([]ScheduleEntry, error) {
	financing, err := s.financingRepo.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}

	rows, err := GenerateSchedule(ScheduleInputFromFinancing(financing))
	if err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.GetByFinancing(financing.ID)
	if err != nil {
		return nil, err
	}
	paidBy := make(map[int32]int32, len(payments))
	for _, p := range payments {
		if p.InstallmentNumber != nil {
			paidBy[*p.InstallmentNumber] = p.ID
		}
	}

	entries := make([]ScheduleEntry, len(rows))
	for i, row := range rows {
		entries[i] = ScheduleEntry{ScheduleRow: row}
		if paymentID, ok := paidBy[row.InstallmentNumber]; ok {
			entries[i].Paid = true
			id := paymentID
			entries[i].PaymentID = &id
		}
	}
	return entries, nil
}

// PreviewSchedule generates a schedule for parameters that have not been
// persisted yet.
func (s *FinancingService) PreviewSchedule(input ScheduleInput) ([]ScheduleRow, error) {
	return GenerateSchedule(input)
}
