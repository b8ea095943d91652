package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/app/repository"
	"github.com/ManuelReschke/PayFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/PayFox/internal/pkg/lock"
)

type memLogs struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]models.WebhookLog
}

func newMemLogs() *memLogs {
	return &memLogs{rows: map[uint]models.WebhookLog{}}
}

func (m *memLogs) Create(_ context.Context, l *models.WebhookLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkKey(l); err != nil {
		return err
	}
	m.nextID++
	l.ID = m.nextID
	m.rows[l.ID] = *l
	return nil
}

func (m *memLogs) Save(_ context.Context, l *models.WebhookLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkKey(l); err != nil {
		return err
	}
	m.rows[l.ID] = *l
	return nil
}

// checkKey mimics the unique processed_key index.
func (m *memLogs) checkKey(l *models.WebhookLog) error {
	if l.ProcessedKey == nil {
		return nil
	}
	for id, row := range m.rows {
		if id != l.ID && row.ProcessedKey != nil && *row.ProcessedKey == *l.ProcessedKey {
			return gorm.ErrDuplicatedKey
		}
	}
	return nil
}

func (m *memLogs) FindProcessed(_ context.Context, provider, transactionID string) (*models.WebhookLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.Provider == provider && row.TransactionID == transactionID && row.Status == models.WebhookStatusProcessed {
			r := row
			return &r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memLogs) FinalizeStale(_ context.Context, cutoff time.Time, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, row := range m.rows {
		if row.Status == models.WebhookStatusProcessing && row.ProcessingStartedAt.Before(cutoff) {
			row.Status = models.WebhookStatusFailed
			row.ErrorMessage = reason
			m.rows[id] = row
			n++
		}
	}
	return n, nil
}

func (m *memLogs) CountByStatus(_ context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int64{}
	for _, row := range m.rows {
		out[row.Status]++
	}
	return out, nil
}

func (m *memLogs) byStatus(status string) []models.WebhookLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.WebhookLog
	for _, row := range m.rows {
		if row.Status == status {
			out = append(out, row)
		}
	}
	return out
}

func (m *memLogs) all() []models.WebhookLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.WebhookLog, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, row)
	}
	return out
}

// lookupFailingLogs fails the idempotency lookup and records everything else.
type lookupFailingLogs struct {
	*memLogs
}

func (lookupFailingLogs) FindProcessed(context.Context, string, string) (*models.WebhookLog, error) {
	return nil, errors.New("db down")
}

type memTransactions struct {
	mu     sync.Mutex
	nextID uint
	rows   []*models.PaymentTransaction
	saves  int
	panic  bool
}

func (m *memTransactions) add(tx *models.PaymentTransaction) *models.PaymentTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	tx.ID = m.nextID
	m.rows = append(m.rows, tx)
	return tx
}

func (m *memTransactions) find(match func(*models.PaymentTransaction) bool) (*models.PaymentTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.panic {
		panic("transaction store exploded")
	}
	for _, row := range m.rows {
		if match(row) {
			return row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memTransactions) GetByTransactionID(_ context.Context, id string) (*models.PaymentTransaction, error) {
	return m.find(func(tx *models.PaymentTransaction) bool { return id != "" && tx.TransactionID == id })
}

func (m *memTransactions) GetByReference(_ context.Context, ref string) (*models.PaymentTransaction, error) {
	return m.find(func(tx *models.PaymentTransaction) bool { return ref != "" && tx.Reference == ref })
}

func (m *memTransactions) Create(_ context.Context, tx *models.PaymentTransaction) error {
	m.add(tx)
	m.mu.Lock()
	m.saves++
	m.mu.Unlock()
	return nil
}

func (m *memTransactions) Save(_ context.Context, _ *models.PaymentTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	return nil
}

func (m *memTransactions) writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type memInvoices struct {
	mu   sync.Mutex
	rows map[string]*models.Invoice
}

func (m *memInvoices) ApplyPayment(_ context.Context, number string, amount float64, now time.Time) (*models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.rows[number]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	inv.ApplyPayment(amount, now)
	cp := *inv
	return &cp, nil
}

type memPaymentMethods struct {
	mu   sync.Mutex
	rows []models.PaymentMethod
}

func (m *memPaymentMethods) CountActivePrimary(_ context.Context, customerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, row := range m.rows {
		if row.CustomerID == customerID && row.IsActive && row.IsPrimary {
			n++
		}
	}
	return n, nil
}

func (m *memPaymentMethods) Create(_ context.Context, method *models.PaymentMethod) error {
	if err := method.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, *method)
	return nil
}

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
	err  error
}

func newMemLocker() *memLocker {
	return &memLocker{held: map[string]bool{}}
}

func (l *memLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	if l.held[key] {
		return nil, lock.ErrNotAcquired
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, nil
}

type recordedJob struct {
	Type    jobqueue.JobType
	Payload map[string]interface{}
}

type memFanOut struct {
	mu   sync.Mutex
	jobs []recordedJob
	fail map[jobqueue.JobType]bool
}

func (f *memFanOut) EnqueueJob(_ context.Context, jobType jobqueue.JobType, payload map[string]interface{}) (*jobqueue.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[jobType] {
		return nil, errors.New("redis unavailable")
	}
	f.jobs = append(f.jobs, recordedJob{Type: jobType, Payload: payload})
	return &jobqueue.Job{ID: "job", Type: jobType, Payload: payload}, nil
}

func (f *memFanOut) types() []jobqueue.JobType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]jobqueue.JobType, 0, len(f.jobs))
	for _, j := range f.jobs {
		out = append(out, j.Type)
	}
	return out
}

type prefixSealer struct{}

func (prefixSealer) Seal(plaintext []byte) (string, error) {
	return "sealed:" + string(plaintext), nil
}

type fixture struct {
	logs     *memLogs
	txs      *memTransactions
	invoices *memInvoices
	methods  *memPaymentMethods
	locker   *memLocker
	fanOut   *memFanOut
	engine   *Engine
}

func newFixture(mutate func(*Options)) *fixture {
	f := &fixture{
		logs:     newMemLogs(),
		txs:      &memTransactions{},
		invoices: &memInvoices{rows: map[string]*models.Invoice{}},
		methods:  &memPaymentMethods{},
		locker:   newMemLocker(),
		fanOut:   &memFanOut{fail: map[jobqueue.JobType]bool{}},
	}
	opts := Options{
		Provider: "netcash",
		Repositories: &repository.Repositories{
			WebhookLog:    f.logs,
			Transaction:   f.txs,
			Invoice:       f.invoices,
			PaymentMethod: f.methods,
		},
		Locker: f.locker,
		FanOut: f.fanOut,
		Sealer: prefixSealer{},
	}
	if mutate != nil {
		mutate(&opts)
	}
	f.engine = NewEngine(opts)
	return f
}
