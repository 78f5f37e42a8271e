package payments

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/nyashahama/learnhub-payments/internal/db"
	"github.com/nyashahama/learnhub-payments/internal/email"
	"github.com/nyashahama/learnhub-payments/internal/plans"
	"github.com/nyashahama/learnhub-payments/internal/store"
	stripeinternal "github.com/nyashahama/learnhub-payments/internal/stripe"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCatalog() *plans.Catalog {
	c, err := plans.NewCatalog("usd",
		plans.Plan{Tier: plans.TierPremium, Title: "Premium", AmountCents: 2900},
		plans.Plan{Tier: plans.TierEnterprise, Title: "Enterprise", AmountCents: 9900, Period: 365 * 24 * time.Hour},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// ─── GATEWAY ──────────────────────────────────────────────────────────────────

type fakeGateway struct {
	mu       sync.Mutex
	payments map[string]stripeinternal.PaymentRecord
	fetchErr error
	fetches  int

	createErrs []error // consumed one per call; nil entries succeed
	creates    []stripeinternal.CreateIntentParams
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{payments: map[string]stripeinternal.PaymentRecord{}}
}

func (g *fakeGateway) set(rec stripeinternal.PaymentRecord) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payments[rec.ID] = rec
}

func (g *fakeGateway) FetchPayment(_ context.Context, id string) (stripeinternal.PaymentRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetches++
	if g.fetchErr != nil {
		return stripeinternal.PaymentRecord{}, g.fetchErr
	}
	rec, ok := g.payments[id]
	if !ok {
		return stripeinternal.PaymentRecord{}, stripeinternal.ErrPaymentNotFound
	}
	return rec, nil
}

func (g *fakeGateway) CreatePaymentIntent(_ context.Context, p stripeinternal.CreateIntentParams) (stripeinternal.IntentRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.creates = append(g.creates, p)
	if len(g.createErrs) > 0 {
		err := g.createErrs[0]
		g.createErrs = g.createErrs[1:]
		if err != nil {
			return stripeinternal.IntentRef{}, err
		}
	}
	id := "cs_" + p.ExternalReference
	return stripeinternal.IntentRef{ID: id, RedirectURL: "https://checkout.test/" + id}, nil
}

// ─── LEDGER ───────────────────────────────────────────────────────────────────

// fakeLedger mirrors the conditional writes of the Postgres store under one
// mutex: approval only succeeds for a row that is not yet approved, and the
// entitlement upsert never lowers an active, unexpired tier.
type fakeLedger struct {
	mu            sync.Mutex
	rows          map[uuid.UUID]*db.PaymentLedger
	entitlements  map[uuid.UUID]db.Entitlement
	notifications []store.NotificationParams

	upgrades   int
	applyErr   error
	createErrs []error
	now        func() time.Time
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		rows:         map[uuid.UUID]*db.PaymentLedger{},
		entitlements: map[uuid.UUID]db.Entitlement{},
		now:          time.Now,
	}
}

func (l *fakeLedger) seed(row db.PaymentLedger) db.PaymentLedger {
	l.mu.Lock()
	defer l.mu.Unlock()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.Status == "" {
		row.Status = db.LedgerStatusPending
	}
	if row.Currency == "" {
		row.Currency = "usd"
	}
	l.rows[row.ID] = &row
	return row
}

func (l *fakeLedger) get(id uuid.UUID) db.PaymentLedger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.rows[id]
}

func (l *fakeLedger) entitlement(user uuid.UUID) (db.Entitlement, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entitlements[user]
	return e, ok
}

func (l *fakeLedger) approvedCount(paymentID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, r := range l.rows {
		if r.ExternalPaymentID.String == paymentID && r.Status == db.LedgerStatusApproved {
			n++
		}
	}
	return n
}

func (l *fakeLedger) byPayment(id string) *db.PaymentLedger {
	for _, r := range l.rows {
		if r.ExternalPaymentID.Valid && r.ExternalPaymentID.String == id {
			return r
		}
	}
	return nil
}

func (l *fakeLedger) byReference(ref string) *db.PaymentLedger {
	for _, r := range l.rows {
		if r.ExternalReference == ref {
			return r
		}
	}
	return nil
}

func (l *fakeLedger) CreatePending(_ context.Context, p store.CreatePendingParams) (db.PaymentLedger, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.createErrs) > 0 {
		err := l.createErrs[0]
		l.createErrs = l.createErrs[1:]
		if err != nil {
			return db.PaymentLedger{}, err
		}
	}
	if l.byReference(p.ExternalReference) != nil {
		return db.PaymentLedger{}, store.ErrDuplicateReference
	}
	row := &db.PaymentLedger{
		ID:                uuid.New(),
		ExternalReference: p.ExternalReference,
		UserID:            p.UserID,
		PlanTier:          p.Tier,
		AmountCents:       p.AmountCents,
		Currency:          p.Currency,
		Status:            db.LedgerStatusPending,
		PayerEmail:        sql.NullString{String: p.PayerEmail, Valid: p.PayerEmail != ""},
	}
	l.rows[row.ID] = row
	return *row, nil
}

func (l *fakeLedger) AttachGatewayIntent(_ context.Context, id uuid.UUID, intentID string) (db.PaymentLedger, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.rows[id]
	if !ok {
		return db.PaymentLedger{}, store.ErrNotFound
	}
	r.GatewayIntentID = sql.NullString{String: intentID, Valid: true}
	return *r, nil
}

func (l *fakeLedger) MarkIntentRejected(_ context.Context, id uuid.UUID, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.rows[id]
	if !ok || r.Status != db.LedgerStatusPending {
		return store.ErrLedgerWriteConflict
	}
	r.Status = db.LedgerStatusRejected
	r.ReviewReason = sql.NullString{String: reason, Valid: true}
	return nil
}

func (l *fakeLedger) FindByPaymentID(_ context.Context, id string) (db.PaymentLedger, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r := l.byPayment(id); r != nil {
		return *r, nil
	}
	return db.PaymentLedger{}, store.ErrNotFound
}

func (l *fakeLedger) FindOpenByReference(_ context.Context, ref string) (db.PaymentLedger, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.byReference(ref)
	if r == nil || r.Status == db.LedgerStatusApproved || r.ExternalPaymentID.Valid {
		return db.PaymentLedger{}, store.ErrNotFound
	}
	return *r, nil
}

func (l *fakeLedger) RecordRejection(_ context.Context, p store.RecordRejectionParams) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.rows[p.LedgerID]
	if !ok || r.Status != db.LedgerStatusPending {
		return false, nil
	}
	if r.ExternalPaymentID.Valid && r.ExternalPaymentID.String != p.ExternalPaymentID {
		return false, nil
	}
	r.Status = db.LedgerStatusRejected
	r.ExternalPaymentID = sql.NullString{String: p.ExternalPaymentID, Valid: true}
	return true, nil
}

func (l *fakeLedger) ApplyApproval(_ context.Context, p store.ApplyApprovalParams) (store.ApprovalResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.applyErr != nil {
		return store.ApprovalResult{}, l.applyErr
	}

	var row *db.PaymentLedger
	if p.LedgerID != uuid.Nil {
		row = l.rows[p.LedgerID]
		if row == nil || row.Status == db.LedgerStatusApproved {
			return store.ApprovalResult{}, store.ErrLedgerWriteConflict
		}
		if row.ExternalPaymentID.Valid && row.ExternalPaymentID.String != p.ExternalPaymentID {
			return store.ApprovalResult{}, store.ErrLedgerWriteConflict
		}
		if other := l.byPayment(p.ExternalPaymentID); other != nil && other != row {
			return store.ApprovalResult{}, store.ErrLedgerWriteConflict
		}
		if p.UserID.Valid {
			row.UserID = p.UserID
		}
		if p.PayerEmail != "" {
			row.PayerEmail = sql.NullString{String: p.PayerEmail, Valid: true}
		}
	} else {
		if l.byPayment(p.ExternalPaymentID) != nil || l.byReference(p.ExternalReference) != nil {
			return store.ApprovalResult{}, store.ErrLedgerWriteConflict
		}
		row = &db.PaymentLedger{
			ID:                uuid.New(),
			ExternalReference: p.ExternalReference,
			UserID:            p.UserID,
			PlanTier:          p.Tier,
			AmountCents:       p.AmountCents,
			Currency:          p.Currency,
			PayerEmail:        sql.NullString{String: p.PayerEmail, Valid: p.PayerEmail != ""},
		}
		l.rows[row.ID] = row
	}
	row.Status = db.LedgerStatusApproved
	row.ExternalPaymentID = sql.NullString{String: p.ExternalPaymentID, Valid: true}
	row.NeedsReview = p.ReviewReason != ""
	row.ReviewReason = sql.NullString{String: p.ReviewReason, Valid: p.ReviewReason != ""}
	row.GatewaySnapshot = pqtype.NullRawMessage{RawMessage: p.Snapshot, Valid: len(p.Snapshot) > 0}

	res := store.ApprovalResult{}
	if p.UserID.Valid && p.ReviewReason == "" {
		res.Entitlement = l.upsert(p.UserID.UUID, row.PlanTier, p.PeriodEnd, row.ID)
		res.Granted = true
		res.Superseded = flagSuperseded(row, res.Entitlement)
	}
	res.Ledger = *row
	return res, nil
}

func (l *fakeLedger) ResolveDeferred(_ context.Context, p store.ResolveDeferredParams) (store.ApprovalResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	row, ok := l.rows[p.LedgerID]
	if !ok || row.Status != db.LedgerStatusApproved || !row.NeedsReview {
		return store.ApprovalResult{}, store.ErrLedgerWriteConflict
	}
	row.UserID = uuid.NullUUID{UUID: p.UserID, Valid: true}
	row.NeedsReview = false
	row.ReviewReason = sql.NullString{}
	ent := l.upsert(p.UserID, row.PlanTier, p.PeriodEnd, row.ID)
	superseded := flagSuperseded(row, ent)
	return store.ApprovalResult{Ledger: *row, Entitlement: ent, Granted: true, Superseded: superseded}, nil
}

// flagSuperseded mirrors the store flagging a row whose tier was kept behind
// a higher active one. Callers hold l.mu.
func flagSuperseded(row *db.PaymentLedger, ent db.Entitlement) bool {
	if ent.PlanTier == row.PlanTier {
		return false
	}
	row.NeedsReview = true
	row.ReviewReason = sql.NullString{String: store.ReasonSuperseded, Valid: true}
	return true
}

// upsert must be called with l.mu held.
func (l *fakeLedger) upsert(user uuid.UUID, tier db.PlanTier, periodEnd sql.NullTime, ledgerID uuid.UUID) db.Entitlement {
	l.upgrades++
	cur, ok := l.entitlements[user]
	next := db.Entitlement{
		UserID:       user,
		PlanTier:     tier,
		Status:       db.EntitlementStatusActive,
		PeriodEnd:    periodEnd,
		LastLedgerID: uuid.NullUUID{UUID: ledgerID, Valid: true},
		UpdatedAt:    l.now(),
	}
	if ok && cur.Status == db.EntitlementStatusActive &&
		(!cur.PeriodEnd.Valid || cur.PeriodEnd.Time.After(l.now())) &&
		plans.Tier(cur.PlanTier).Rank() > plans.Tier(tier).Rank() {
		next.PlanTier = cur.PlanTier
		next.PeriodEnd = cur.PeriodEnd
	}
	l.entitlements[user] = next
	return next
}

func (l *fakeLedger) RecordNotification(_ context.Context, p store.NotificationParams) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notifications = append(l.notifications, p)
	return nil
}

func (l *fakeLedger) outcomes() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.notifications))
	for _, n := range l.notifications {
		out = append(out, n.Outcome)
	}
	return out
}

// ─── DIRECTORY ────────────────────────────────────────────────────────────────

type fakeDirectory struct {
	byEmail map[string]uuid.UUID
	ids     map[uuid.UUID]bool
	err     error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{byEmail: map[string]uuid.UUID{}, ids: map[uuid.UUID]bool{}}
}

func (d *fakeDirectory) add(email string, id uuid.UUID) {
	d.byEmail[strings.ToLower(email)] = id
	d.ids[id] = true
}

func (d *fakeDirectory) FindUserByEmail(_ context.Context, email string) (uuid.UUID, bool, error) {
	if d.err != nil {
		return uuid.Nil, false, d.err
	}
	id, ok := d.byEmail[strings.ToLower(strings.TrimSpace(email))]
	return id, ok, nil
}

func (d *fakeDirectory) FindUserByID(_ context.Context, id uuid.UUID) (uuid.UUID, bool, error) {
	if d.err != nil {
		return uuid.Nil, false, d.err
	}
	return id, d.ids[id], nil
}

// ─── MAILER ───────────────────────────────────────────────────────────────────

type fakeMailer struct {
	mu       sync.Mutex
	upgrades []email.UpgradeParams
	alerts   []email.ReviewAlertParams
	err      error
}

func (m *fakeMailer) SendUpgradeConfirmation(_ context.Context, p email.UpgradeParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upgrades = append(m.upgrades, p)
	return m.err
}

func (m *fakeMailer) SendReviewAlert(_ context.Context, p email.ReviewAlertParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, p)
	return m.err
}

var errBoom = errors.New("boom")
