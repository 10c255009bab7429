package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jpmelo/financio-backend/internal/domain"
	"github.com/jpmelo/financio-backend/internal/websocket"
	"github.com/shopspring/decimal"
)

// MockTx is the opaque transaction handle the mock manager hands to
// repository fakes.
type MockTx struct{}

// MockTxManager is a mock implementation of domain.TxManager. It runs the
// function inline and records whether the unit of work committed or rolled
// back.
type MockTxManager struct {
	Calls      int
	Committed  int
	RolledBack int
	BeginErr   error
}

// NewMockTxManager creates a new MockTxManager
func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

// WithinTx runs fn with a mock transaction handle
func (m *MockTxManager) WithinTx(ctx context.Context, fn func(tx interface{}) error) error {
	m.Calls++
	if m.BeginErr != nil {
		return m.BeginErr
	}
	if err := fn(&MockTx{}); err != nil {
		m.RolledBack++
		return err
	}
	m.Committed++
	return nil
}

// MockUserRepository is a mock implementation of domain.UserRepository
type MockUserRepository struct {
	Users map[string]*domain.User
}

// NewMockUserRepository creates a new MockUserRepository
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{Users: make(map[string]*domain.User)}
}

// GetBySubject retrieves a user by subject
func (m *MockUserRepository) GetBySubject(subject string) (*domain.User, error) {
	if user, ok := m.Users[subject]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// CreateOrGetBySubject creates or retrieves a user by subject
func (m *MockUserRepository) CreateOrGetBySubject(subject, email string, name *string) (*domain.User, error) {
	if user, ok := m.Users[subject]; ok {
		return user, nil
	}
	user := &domain.User{
		ID:      uuid.New(),
		Subject: subject,
		Email:   email,
		Name:    name,
	}
	m.Users[subject] = user
	return user, nil
}

// MockWorkspaceRepository is a mock implementation of domain.WorkspaceRepository
type MockWorkspaceRepository struct {
	Workspaces map[int32]*domain.Workspace
	ByUserID   map[uuid.UUID]*domain.Workspace
	nextID     int32
}

// NewMockWorkspaceRepository creates a new MockWorkspaceRepository
func NewMockWorkspaceRepository() *MockWorkspaceRepository {
	return &MockWorkspaceRepository{
		Workspaces: make(map[int32]*domain.Workspace),
		ByUserID:   make(map[uuid.UUID]*domain.Workspace),
	}
}

// GetByID retrieves a workspace by ID
func (m *MockWorkspaceRepository) GetByID(id int32) (*domain.Workspace, error) {
	if workspace, ok := m.Workspaces[id]; ok {
		return workspace, nil
	}
	return nil, domain.ErrWorkspaceNotFound
}

// GetByUserID retrieves a workspace by owner
func (m *MockWorkspaceRepository) GetByUserID(userID uuid.UUID) (*domain.Workspace, error) {
	if workspace, ok := m.ByUserID[userID]; ok {
		return workspace, nil
	}
	return nil, domain.ErrWorkspaceNotFound
}

// Create creates a new workspace
func (m *MockWorkspaceRepository) Create(workspace *domain.Workspace) (*domain.Workspace, error) {
	m.nextID++
	workspace.ID = m.nextID
	workspace.CreatedAt = time.Now()
	m.Workspaces[workspace.ID] = workspace
	m.ByUserID[workspace.UserID] = workspace
	return workspace, nil
}

// MockAccountRepository is a mock implementation of domain.AccountRepository
type MockAccountRepository struct {
	Accounts map[int32]*domain.Account
	DebitErr error
	nextID   int32
}

// NewMockAccountRepository creates a new MockAccountRepository
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{Accounts: make(map[int32]*domain.Account)}
}

// Create creates a new account
func (m *MockAccountRepository) Create(account *domain.Account) (*domain.Account, error) {
	m.nextID++
	account.ID = m.nextID
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	m.Accounts[account.ID] = account
	return account, nil
}

// GetByID retrieves an account by ID within a workspace
func (m *MockAccountRepository) GetByID(workspaceID int32, id int32) (*domain.Account, error) {
	account, ok := m.Accounts[id]
	if !ok || account.WorkspaceID != workspaceID || account.DeletedAt != nil {
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}

// GetByIDForUpdateTx retrieves an account inside a transaction
func (m *MockAccountRepository) GetByIDForUpdateTx(tx interface{}, workspaceID int32, id int32) (*domain.Account, error) {
	return m.GetByID(workspaceID, id)
}

// GetAllByWorkspace retrieves all accounts in a workspace
func (m *MockAccountRepository) GetAllByWorkspace(workspaceID int32) ([]*domain.Account, error) {
	var accounts []*domain.Account
	for _, account := range m.Accounts {
		if account.WorkspaceID == workspaceID && account.DeletedAt == nil {
			accounts = append(accounts, account)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

// DebitTx decrements the account balance
func (m *MockAccountRepository) DebitTx(tx interface{}, workspaceID int32, id int32, amount decimal.Decimal) error {
	if m.DebitErr != nil {
		return m.DebitErr
	}
	account, err := m.GetByID(workspaceID, id)
	if err != nil {
		return err
	}
	account.Balance = account.Balance.Sub(amount)
	return nil
}

// MockCategoryRepository is a mock implementation of domain.CategoryRepository
type MockCategoryRepository struct {
	Categories map[int32]*domain.Category
}

// NewMockCategoryRepository creates a new MockCategoryRepository
func NewMockCategoryRepository() *MockCategoryRepository {
	return &MockCategoryRepository{Categories: make(map[int32]*domain.Category)}
}

// GetByID retrieves a category by ID within a workspace
func (m *MockCategoryRepository) GetByID(workspaceID int32, id int32) (*domain.Category, error) {
	category, ok := m.Categories[id]
	if !ok || category.WorkspaceID != workspaceID {
		return nil, domain.ErrNotFound
	}
	return category, nil
}

// FindDefaultExpense returns the workspace's default expense category, or nil
func (m *MockCategoryRepository) FindDefaultExpense(workspaceID int32) (*domain.Category, error) {
	for _, category := range m.Categories {
		if category.WorkspaceID == workspaceID && category.Kind == domain.CategoryKindExpense && category.IsDefault {
			return category, nil
		}
	}
	return nil, nil
}

// FindDefaultExpenseTx is the transactional variant of FindDefaultExpense
func (m *MockCategoryRepository) FindDefaultExpenseTx(tx interface{}, workspaceID int32) (*domain.Category, error) {
	return m.FindDefaultExpense(workspaceID)
}

// MockTransactionRepository is a mock implementation of domain.TransactionRepository
type MockTransactionRepository struct {
	Transactions map[int32]*domain.Transaction
	CreateErr    error
	nextID       int32
}

// NewMockTransactionRepository creates a new MockTransactionRepository
func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{Transactions: make(map[int32]*domain.Transaction)}
}

// CreateTx creates a transaction inside a unit of work
func (m *MockTransactionRepository) CreateTx(tx interface{}, transaction *domain.Transaction) (*domain.Transaction, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	if err := transaction.Validate(); err != nil {
		return nil, err
	}
	m.nextID++
	transaction.ID = m.nextID
	transaction.CreatedAt = time.Now()
	m.Transactions[transaction.ID] = transaction
	return transaction, nil
}

// GetByID retrieves a transaction by ID within a workspace
func (m *MockTransactionRepository) GetByID(workspaceID int32, id int32) (*domain.Transaction, error) {
	transaction, ok := m.Transactions[id]
	if !ok || transaction.WorkspaceID != workspaceID {
		return nil, domain.ErrNotFound
	}
	return transaction, nil
}

// GetByAccount retrieves a page of transactions for an account
func (m *MockTransactionRepository) GetByAccount(workspaceID int32, accountID int32, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	var matches []*domain.Transaction
	for _, transaction := range m.Transactions {
		if transaction.WorkspaceID != workspaceID || transaction.AccountID != accountID {
			continue
		}
		if filters != nil {
			if filters.StartDate != nil && transaction.TransactionDate.Before(*filters.StartDate) {
				continue
			}
			if filters.EndDate != nil && transaction.TransactionDate.After(*filters.EndDate) {
				continue
			}
			if filters.Direction != nil && transaction.Direction != *filters.Direction {
				continue
			}
		}
		matches = append(matches, transaction)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID > matches[j].ID })

	page, pageSize := int32(1), int32(domain.DefaultPageSize)
	if filters != nil {
		if filters.Page > 0 {
			page = filters.Page
		}
		if filters.PageSize > 0 {
			pageSize = filters.PageSize
		}
	}

	total := int64(len(matches))
	start := int((page - 1) * pageSize)
	if start > len(matches) {
		start = len(matches)
	}
	end := start + int(pageSize)
	if end > len(matches) {
		end = len(matches)
	}

	totalPages := int32((total + int64(pageSize) - 1) / int64(pageSize))
	return &domain.PaginatedTransactions{
		Data:       matches[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

// MockFinancingRepository is a mock implementation of domain.FinancingRepository
type MockFinancingRepository struct {
	Financings   map[int32]*domain.Financing
	AggregateErr error
	nextID       int32
}

// NewMockFinancingRepository creates a new MockFinancingRepository
func NewMockFinancingRepository() *MockFinancingRepository {
	return &MockFinancingRepository{Financings: make(map[int32]*domain.Financing)}
}

// Create creates a new financing
func (m *MockFinancingRepository) Create(financing *domain.Financing) (*domain.Financing, error) {
	m.nextID++
	financing.ID = m.nextID
	financing.CreatedAt = time.Now()
	financing.UpdatedAt = financing.CreatedAt
	m.Financings[financing.ID] = financing
	return financing, nil
}

// GetByID retrieves a financing by ID within a workspace
func (m *MockFinancingRepository) GetByID(workspaceID int32, id int32) (*domain.Financing, error) {
	financing, ok := m.Financings[id]
	if !ok || financing.WorkspaceID != workspaceID || financing.DeletedAt != nil {
		return nil, domain.ErrFinancingNotFound
	}
	return financing, nil
}

// GetByIDForUpdateTx retrieves a financing inside a transaction
func (m *MockFinancingRepository) GetByIDForUpdateTx(tx interface{}, workspaceID int32, id int32) (*domain.Financing, error) {
	return m.GetByID(workspaceID, id)
}

// GetAllByWorkspace retrieves all financings in a workspace
func (m *MockFinancingRepository) GetAllByWorkspace(workspaceID int32) ([]*domain.Financing, error) {
	var financings []*domain.Financing
	for _, financing := range m.Financings {
		if financing.WorkspaceID == workspaceID && financing.DeletedAt == nil {
			financings = append(financings, financing)
		}
	}
	sort.Slice(financings, func(i, j int) bool { return financings[i].ID < financings[j].ID })
	return financings, nil
}

// UpdateAggregatesTx writes the projected aggregates onto the cached columns
func (m *MockFinancingRepository) UpdateAggregatesTx(tx interface{}, id int32, aggregates domain.FinancingAggregates) error {
	if m.AggregateErr != nil {
		return m.AggregateErr
	}
	financing, ok := m.Financings[id]
	if !ok {
		return domain.ErrFinancingNotFound
	}
	financing.CurrentBalance = aggregates.CurrentBalance
	financing.TotalPaid = aggregates.TotalPaid
	financing.TotalInterestPaid = aggregates.TotalInterestPaid
	financing.PaidInstallments = aggregates.PaidInstallments
	financing.Status = aggregates.Status
	financing.UpdatedAt = time.Now()
	return nil
}

// SoftDelete marks a financing as deleted
func (m *MockFinancingRepository) SoftDelete(workspaceID int32, id int32) error {
	financing, err := m.GetByID(workspaceID, id)
	if err != nil {
		return err
	}
	now := time.Now()
	financing.DeletedAt = &now
	return nil
}

// MockFinancingPaymentRepository is a mock implementation of
// domain.FinancingPaymentRepository. It enforces the same one-payment-per-
// installment rule the partial unique index does.
type MockFinancingPaymentRepository struct {
	Payments map[int32]*domain.FinancingPayment
	// WorkspaceByFinancing scopes GetByID and the update methods the way the
	// SQL join on financings does. Entries are optional.
	WorkspaceByFinancing map[int32]int32
	CreateErr            error
	nextID               int32
}

// NewMockFinancingPaymentRepository creates a new MockFinancingPaymentRepository
func NewMockFinancingPaymentRepository() *MockFinancingPaymentRepository {
	return &MockFinancingPaymentRepository{
		Payments:             make(map[int32]*domain.FinancingPayment),
		WorkspaceByFinancing: make(map[int32]int32),
	}
}

func (m *MockFinancingPaymentRepository) inWorkspace(payment *domain.FinancingPayment, workspaceID int32) bool {
	owner, scoped := m.WorkspaceByFinancing[payment.FinancingID]
	return !scoped || owner == workspaceID
}

// CreateTx creates a payment inside a unit of work
func (m *MockFinancingPaymentRepository) CreateTx(tx interface{}, payment *domain.FinancingPayment) (*domain.FinancingPayment, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	if payment.InstallmentNumber != nil {
		for _, existing := range m.Payments {
			if existing.FinancingID == payment.FinancingID &&
				existing.InstallmentNumber != nil &&
				*existing.InstallmentNumber == *payment.InstallmentNumber {
				return nil, domain.ErrDuplicateInstallment
			}
		}
	}
	m.nextID++
	payment.ID = m.nextID
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = payment.CreatedAt
	m.Payments[payment.ID] = payment
	return payment, nil
}

// GetByID retrieves a payment by ID within a workspace
func (m *MockFinancingPaymentRepository) GetByID(workspaceID int32, id int32) (*domain.FinancingPayment, error) {
	payment, ok := m.Payments[id]
	if !ok || !m.inWorkspace(payment, workspaceID) {
		return nil, domain.ErrPaymentNotFound
	}
	return payment, nil
}

// GetByFinancing retrieves all payments of a financing ordered by ID
func (m *MockFinancingPaymentRepository) GetByFinancing(financingID int32) ([]*domain.FinancingPayment, error) {
	var payments []*domain.FinancingPayment
	for _, payment := range m.Payments {
		if payment.FinancingID == financingID {
			payments = append(payments, payment)
		}
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID < payments[j].ID })
	return payments, nil
}

// GetByFinancingTx is the transactional variant of GetByFinancing
func (m *MockFinancingPaymentRepository) GetByFinancingTx(tx interface{}, financingID int32) ([]*domain.FinancingPayment, error) {
	return m.GetByFinancing(financingID)
}

// GetByInstallmentTx retrieves the payment occupying an installment slot
func (m *MockFinancingPaymentRepository) GetByInstallmentTx(tx interface{}, financingID int32, installmentNumber int32) (*domain.FinancingPayment, error) {
	for _, payment := range m.Payments {
		if payment.FinancingID == financingID &&
			payment.InstallmentNumber != nil &&
			*payment.InstallmentNumber == installmentNumber {
			return payment, nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

// UpdateObservation updates a payment's observation
func (m *MockFinancingPaymentRepository) UpdateObservation(workspaceID int32, id int32, observation *string) (*domain.FinancingPayment, error) {
	payment, err := m.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}
	payment.Observation = observation
	payment.UpdatedAt = time.Now()
	return payment, nil
}

// UpdateReceiptKey updates a payment's receipt key
func (m *MockFinancingPaymentRepository) UpdateReceiptKey(workspaceID int32, id int32, receiptKey *string) (*domain.FinancingPayment, error) {
	payment, err := m.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}
	payment.ReceiptKey = receiptKey
	payment.UpdatedAt = time.Now()
	return payment, nil
}

// Delete removes a payment with no linked ledger transaction
func (m *MockFinancingPaymentRepository) Delete(workspaceID int32, id int32) error {
	payment, err := m.GetByID(workspaceID, id)
	if err != nil {
		return err
	}
	if payment.TransactionID != nil {
		return domain.ErrLinkedTransactionExists
	}
	delete(m.Payments, id)
	return nil
}

// PublishedEvent is one event captured by RecordingPublisher
type PublishedEvent struct {
	WorkspaceID int32
	Event       websocket.Event
}

// RecordingPublisher captures published events for assertions
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
}

// Publish records the event
func (p *RecordingPublisher) Publish(workspaceID int32, event websocket.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, PublishedEvent{WorkspaceID: workspaceID, Event: event})
}

// EventTypes returns the captured event types in order
func (p *RecordingPublisher) EventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.Events))
	for i, published := range p.Events {
		types[i] = published.Event.Type
	}
	return types
}
