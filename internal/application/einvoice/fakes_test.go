package einvoice_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/buku-api/internal/application/einvoice"
	"github.com/jhoicas/buku-api/internal/domain"
	"github.com/jhoicas/buku-api/internal/domain/entity"
	"github.com/jhoicas/buku-api/internal/domain/repository"
	"github.com/jhoicas/buku-api/internal/infrastructure/myinvois"
	"github.com/jhoicas/buku-api/internal/infrastructure/vault"
	"github.com/jhoicas/buku-api/pkg/logger"
	pkgmyinvois "github.com/jhoicas/buku-api/pkg/myinvois"
)

const (
	testCompany      = "company-1"
	otherCompany     = "company-2"
	testClientSecret = "s3cr3t"
)

var t0 = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

// ── Reloj ─────────────────────────────────────────────────────────────────────

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ── Configuración ─────────────────────────────────────────────────────────────

type fakeConfigRepo struct {
	mu          sync.Mutex
	byCompany   map[string]*entity.EInvoiceConfig
	tokenWrites int
}

func newFakeConfigRepo() *fakeConfigRepo {
	return &fakeConfigRepo{byCompany: map[string]*entity.EInvoiceConfig{}}
}

var _ repository.EInvoiceConfigRepository = (*fakeConfigRepo)(nil)

func (r *fakeConfigRepo) GetActive(_ context.Context, companyID string) (*entity.EInvoiceConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.byCompany[companyID]
	if !ok {
		return nil, nil
	}
	c := *cfg
	return &c, nil
}

func (r *fakeConfigRepo) Create(_ context.Context, cfg *entity.EInvoiceConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *cfg
	r.byCompany[cfg.CompanyID] = &c
	return nil
}

func (r *fakeConfigRepo) Update(_ context.Context, cfg *entity.EInvoiceConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCompany[cfg.CompanyID]; !ok {
		return domain.ErrNotFound
	}
	c := *cfg
	r.byCompany[cfg.CompanyID] = &c
	return nil
}

func (r *fakeConfigRepo) UpdateToken(_ context.Context, id, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cfg := range r.byCompany {
		if cfg.ID == id {
			cfg.AccessToken = token
			cfg.TokenExpiresAt = &expiresAt
			r.tokenWrites++
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeConfigRepo) UpdateTestResult(_ context.Context, id string, testedAt time.Time, ok bool, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cfg := range r.byCompany {
		if cfg.ID == id {
			cfg.LastTestedAt = &testedAt
			cfg.LastTestOK = &ok
			cfg.LastTestMessage = message
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeConfigRepo) get(companyID string) *entity.EInvoiceConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *r.byCompany[companyID]
	return &c
}

// ── Envíos ────────────────────────────────────────────────────────────────────

type fakeSubmissionRepo struct {
	mu        sync.Mutex
	rows      []*entity.EInvoiceSubmission // orden de creación
	createErr error
	updateErr error
}

var _ repository.EInvoiceSubmissionRepository = (*fakeSubmissionRepo)(nil)

// Create aplica la misma regla que el índice único parcial: un solo envío pending/valid por documento.
func (r *fakeSubmissionRepo) Create(_ context.Context, s *entity.EInvoiceSubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if s.IsOutstanding() {
		for _, row := range r.rows {
			if row.Subject == s.Subject && row.IsOutstanding() {
				return fmt.Errorf("%w: envío vigente para %s", domain.ErrConflict, s.Subject)
			}
		}
	}
	r.insert(s)
	return nil
}

func (r *fakeSubmissionRepo) insert(s *entity.EInvoiceSubmission) {
	c := *s
	r.rows = append(r.rows, &c)
}

func (r *fakeSubmissionRepo) Update(_ context.Context, s *entity.EInvoiceSubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	for i, row := range r.rows {
		if row.ID == s.ID {
			c := *s
			r.rows[i] = &c
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeSubmissionRepo) GetByID(_ context.Context, id string) (*entity.EInvoiceSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == id {
			c := *row
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeSubmissionRepo) GetLatestBySubject(_ context.Context, subject entity.SubjectRef) (*entity.EInvoiceSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].Subject == subject {
			c := *r.rows[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeSubmissionRepo) ListBySubject(_ context.Context, subject entity.SubjectRef) ([]*entity.EInvoiceSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.EInvoiceSubmission
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].Subject == subject {
			c := *r.rows[i]
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeSubmissionRepo) ListPending(_ context.Context, limit int) ([]*entity.EInvoiceSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.EInvoiceSubmission
	for i := len(r.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if r.rows[i].Status == entity.SubmissionPending {
			c := *r.rows[i]
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeSubmissionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *fakeSubmissionRepo) stored(t *testing.T, id string) *entity.EInvoiceSubmission {
	t.Helper()
	s, _ := r.GetByID(context.Background(), id)
	require.NotNil(t, s, "envío %s no persistido", id)
	return s
}

// ── Documentos fuente ─────────────────────────────────────────────────────────

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[string]*entity.Invoice
	items    map[string][]*entity.LineItem
}

var _ repository.InvoiceRepository = (*fakeInvoiceRepo)(nil)

func (r *fakeInvoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, nil
	}
	c := *inv
	return &c, nil
}

func (r *fakeInvoiceRepo) GetItems(_ context.Context, invoiceID string) ([]*entity.LineItem, error) {
	return r.items[invoiceID], nil
}

func (r *fakeInvoiceRepo) SetEInvoiceLongID(_ context.Context, invoiceID, longID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[invoiceID]
	if !ok {
		return domain.ErrNotFound
	}
	inv.EInvoiceLongID = longID
	return nil
}

type fakeCreditNoteRepo struct {
	mu    sync.Mutex
	notes map[string]*entity.CreditNote
	items map[string][]*entity.LineItem
}

var _ repository.CreditNoteRepository = (*fakeCreditNoteRepo)(nil)

func (r *fakeCreditNoteRepo) GetByID(_ context.Context, id string) (*entity.CreditNote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cn, ok := r.notes[id]
	if !ok {
		return nil, nil
	}
	c := *cn
	return &c, nil
}

func (r *fakeCreditNoteRepo) GetItems(_ context.Context, id string) ([]*entity.LineItem, error) {
	return r.items[id], nil
}

func (r *fakeCreditNoteRepo) SetEInvoiceLongID(_ context.Context, id, longID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cn, ok := r.notes[id]
	if !ok {
		return domain.ErrNotFound
	}
	cn.EInvoiceLongID = longID
	return nil
}

type fakeCustomerRepo struct {
	customers map[string]*entity.Customer
}

func (r *fakeCustomerRepo) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	return r.customers[id], nil
}

type fakeProfileRepo struct {
	profiles map[string]*entity.BusinessProfile
}

func (r *fakeProfileRepo) GetByCompany(_ context.Context, companyID string) (*entity.BusinessProfile, error) {
	return r.profiles[companyID], nil
}

// fakeTxRunner ejecuta fn con los mismos fakes (sin rollback real).
type fakeTxRunner struct {
	subs        *fakeSubmissionRepo
	invoices    *fakeInvoiceRepo
	creditNotes *fakeCreditNoteRepo
	calls       int
}

func (r *fakeTxRunner) RunEInvoice(_ context.Context, fn func(
	repository.EInvoiceSubmissionRepository,
	repository.InvoiceRepository,
	repository.CreditNoteRepository,
) error) error {
	r.calls++
	return fn(r.subs, r.invoices, r.creditNotes)
}

// ── Autoridad ─────────────────────────────────────────────────────────────────

type fakeAuthority struct {
	mu sync.Mutex

	tokenResp  *myinvois.TokenResponse
	tokenErr   error
	tokenDelay time.Duration
	tokenCalls int
	lastSecret string

	submitResp  *myinvois.SubmitResponse
	submitErr   error
	submitCalls int
	lastDocs    []myinvois.SubmissionDocument

	details     map[string]*myinvois.DocumentDetails
	detailsErr  error
	detailCalls int

	cancelErr        error
	cancelCalls      int
	lastCancelReason string

	taxpayerValid bool
	taxpayerCalls int
}

var _ myinvois.Authority = (*fakeAuthority)(nil)

func newFakeAuthority() *fakeAuthority {
	return &fakeAuthority{
		tokenResp: &myinvois.TokenResponse{AccessToken: "fresh-token", TokenType: "Bearer", ExpiresIn: 3600},
		details:   map[string]*myinvois.DocumentDetails{},
	}
}

func (a *fakeAuthority) RequestToken(_ context.Context, _, _, clientSecret string) (*myinvois.TokenResponse, error) {
	a.mu.Lock()
	a.tokenCalls++
	a.lastSecret = clientSecret
	resp, err, delay := a.tokenResp, a.tokenErr, a.tokenDelay
	a.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	c := *resp
	return &c, nil
}

func (a *fakeAuthority) SubmitDocuments(_ context.Context, _, _ string, docs []myinvois.SubmissionDocument) (*myinvois.SubmitResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.submitCalls++
	a.lastDocs = docs
	if a.submitErr != nil {
		return nil, a.submitErr
	}
	return a.submitResp, nil
}

func (a *fakeAuthority) GetDocumentDetails(_ context.Context, _, _, documentUID string) (*myinvois.DocumentDetails, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detailCalls++
	if a.detailsErr != nil {
		return nil, a.detailsErr
	}
	d, ok := a.details[documentUID]
	if !ok {
		return nil, &myinvois.HTTPError{Op: "document details", StatusCode: 404, Body: "not found"}
	}
	return d, nil
}

func (a *fakeAuthority) CancelDocument(_ context.Context, _, _, documentUID, reason string) (*myinvois.StateResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelCalls++
	a.lastCancelReason = reason
	if a.cancelErr != nil {
		return nil, a.cancelErr
	}
	return &myinvois.StateResponse{UUID: documentUID, Status: "Cancelled", Raw: []byte(`{"uuid":"` + documentUID + `","status":"Cancelled"}`)}, nil
}

func (a *fakeAuthority) ValidateTaxpayer(context.Context, string, string, string, string, string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.taxpayerCalls++
	return a.taxpayerValid, nil
}

func (a *fakeAuthority) accept(uid string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.submitResp = &myinvois.SubmitResponse{
		SubmissionUID:     "sub-" + uid,
		AcceptedDocuments: []myinvois.AcceptedDocument{{UUID: uid, InvoiceCodeNumber: "INV-0001"}},
		Raw:               []byte(`{"submissionUid":"sub-` + uid + `"}`),
	}
}

func (a *fakeAuthority) setStatus(uid, status, longID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.details[uid] = &myinvois.DocumentDetails{
		UUID:   uid,
		Status: status,
		LongID: longID,
		Raw:    []byte(`{"uuid":"` + uid + `","status":"` + status + `"}`),
	}
}

func (a *fakeAuthority) calls() (token, submit, detail, cancel int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tokenCalls, a.submitCalls, a.detailCalls, a.cancelCalls
}

// ── Eventos ───────────────────────────────────────────────────────────────────

type fakePublisher struct {
	mu     sync.Mutex
	events []einvoice.SubmissionEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, evt einvoice.SubmissionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// ── Harness ───────────────────────────────────────────────────────────────────

type harness struct {
	clock       *fakeClock
	vault       *vault.Vault
	configs     *fakeConfigRepo
	subs        *fakeSubmissionRepo
	invoices    *fakeInvoiceRepo
	creditNotes *fakeCreditNoteRepo
	tx          *fakeTxRunner
	authority   *fakeAuthority
	events      *fakePublisher

	tokens       *einvoice.TokenManager
	reconciler   *einvoice.Reconciler
	orchestrator *einvoice.Orchestrator
	settings     *einvoice.SettingsUseCase
}

// newHarness arma el motor completo con una empresa configurada (sin token en caché),
// la factura INV-0001 (1000.00 + 60.00 SST) y la nota crédito CN-0001 contra ella.
func newHarness(t *testing.T) *harness {
	t.Helper()
	v, err := vault.New("llave-de-prueba")
	require.NoError(t, err)
	enc, err := v.Encrypt(testClientSecret)
	require.NoError(t, err)

	h := &harness{
		clock:     &fakeClock{now: t0},
		vault:     v,
		configs:   newFakeConfigRepo(),
		subs:      &fakeSubmissionRepo{},
		authority: newFakeAuthority(),
		events:    &fakePublisher{},
	}
	h.configs.byCompany[testCompany] = &entity.EInvoiceConfig{
		ID:                    "cfg-1",
		CompanyID:             testCompany,
		TIN:                   "IG12345678901",
		ClientID:              "client-1",
		ClientSecretEncrypted: enc,
		Environment:           entity.EInvoiceEnvSandbox,
		CreatedAt:             t0,
		UpdatedAt:             t0,
	}

	h.invoices = &fakeInvoiceRepo{
		invoices: map[string]*entity.Invoice{
			"inv-1": {
				ID: "inv-1", CompanyID: testCompany, CustomerID: "cust-1", Number: "INV-0001",
				IssueDate: t0.Add(-24 * time.Hour), Currency: "MYR",
				Subtotal: dec("1000.00"), TaxTotal: dec("60.00"), Total: dec("1060.00"), AmountDue: dec("1060.00"),
			},
		},
		items: map[string][]*entity.LineItem{
			"inv-1": {{
				ID: "it-1", DocumentID: "inv-1", Description: "Consulting services",
				Quantity: dec("10"), UnitPrice: dec("100.00"), TaxRate: dec("6"),
				TaxAmount: dec("60.00"), Subtotal: dec("1000.00"),
			}},
		},
	}
	h.creditNotes = &fakeCreditNoteRepo{
		notes: map[string]*entity.CreditNote{
			"cn-1": {
				ID: "cn-1", CompanyID: testCompany, InvoiceID: "inv-1", CustomerID: "cust-1", Number: "CN-0001",
				IssueDate: t0, Currency: "MYR", Reason: "goods returned",
				Subtotal: dec("100.00"), TaxTotal: dec("6.00"), Total: dec("106.00"),
			},
		},
		items: map[string][]*entity.LineItem{
			"cn-1": {{
				ID: "cit-1", DocumentID: "cn-1", Description: "Consulting services",
				Quantity: dec("1"), UnitPrice: dec("100.00"), TaxRate: dec("6"),
				TaxAmount: dec("6.00"), Subtotal: dec("100.00"),
			}},
		},
	}
	customers := &fakeCustomerRepo{customers: map[string]*entity.Customer{
		"cust-1": {
			ID: "cust-1", CompanyID: testCompany, Name: "Syarikat Contoh Sdn Bhd",
			TIN: "C2584563200", IDType: pkgmyinvois.IDTypeBRN, IDValue: "201901000005",
			Email: "ap@contoh.my", AddressLine1: "Lot 66", City: "Kuala Lumpur",
			PostalCode: "50480", StateCode: "14", CountryCode: "MYS",
		},
	}}
	profiles := &fakeProfileRepo{profiles: map[string]*entity.BusinessProfile{
		testCompany: {
			ID: "bp-1", CompanyID: testCompany, LegalName: "Kedai Runcit Aminah",
			TIN: "IG12345678901", IDType: pkgmyinvois.IDTypeNRIC, IDValue: "900101015555",
			MSICCode: "47111", BusinessActivity: "Retail sale", Email: "aminah@example.my",
			AddressLine1: "12 Jalan Ampang", City: "Kuala Lumpur", PostalCode: "50450",
			StateCode: "14", CountryCode: "MYS", BankAccountNumber: "1234567890",
		},
	}}
	h.tx = &fakeTxRunner{subs: h.subs, invoices: h.invoices, creditNotes: h.creditNotes}

	log := logger.Nop()
	h.tokens = einvoice.NewTokenManager(h.configs, h.authority, v, log).WithClock(h.clock.Now)
	h.reconciler = einvoice.NewReconciler(h.subs, h.tx, h.tokens, h.authority, h.events, log).WithClock(h.clock.Now)
	h.orchestrator = einvoice.NewOrchestrator(
		h.tokens, h.authority, myinvois.NewDocumentBuilder(), h.reconciler,
		h.subs, h.invoices, h.creditNotes, customers, profiles, h.events, log,
	).WithClock(h.clock.Now)
	h.settings = einvoice.NewSettingsUseCase(h.configs, v, h.tokens, h.authority).WithClock(h.clock.Now)
	return h
}

// seedToken deja un token en caché que vence en ttl.
func (h *harness) seedToken(token string, ttl time.Duration) {
	h.configs.mu.Lock()
	defer h.configs.mu.Unlock()
	exp := h.clock.Now().Add(ttl)
	cfg := h.configs.byCompany[testCompany]
	cfg.AccessToken = token
	cfg.TokenExpiresAt = &exp
}

// seedSubmission inserta un envío directamente en el repositorio.
func (h *harness) seedSubmission(s entity.EInvoiceSubmission) *entity.EInvoiceSubmission {
	if s.CompanyID == "" {
		s.CompanyID = testCompany
	}
	if s.Subject.IsZero() {
		s.Subject = entity.InvoiceSubject("inv-1")
	}
	if s.Kind == "" {
		s.Kind = entity.KindInvoice
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = h.clock.Now()
	}
	// sin la regla de unicidad: los tests arman historiales arbitrarios
	h.subs.mu.Lock()
	h.subs.insert(&s)
	h.subs.mu.Unlock()
	return &s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var errNetwork = errors.New("dial tcp: connection refused")
