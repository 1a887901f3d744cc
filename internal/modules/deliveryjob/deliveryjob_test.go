// README: DB-backed tests for the delivery job workflow (skip without SOKO_TEST_DSN).
package deliveryjob

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"soko/internal/testdb"
	"soko/internal/types"
	"soko/internal/workflow"
)

func setupTestStore(t *testing.T, legacy LegacySyncer) (*Store, *pgxpool.Pool) {
	t.Helper()
	db := testdb.Connect(t)
	testdb.Truncate(t, db,
		"delivery_job_logs", "delivery_jobs", "deliveries", "payments", "orders", "agencies", "users")
	return NewStore(db, legacy), db
}

func seedUser(t *testing.T, db *pgxpool.Pool, id, name, role string) {
	t.Helper()
	_, err := db.Exec(context.Background(), `
		INSERT INTO users (id, name, email, role) VALUES ($1, $2, $3, $4)`,
		id, name, id+"@example.test", role)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func seedOrder(t *testing.T, db *pgxpool.Pool, id, customerID, vendorID, status string) {
	t.Helper()
	_, err := db.Exec(context.Background(), `
		INSERT INTO orders (id, customer_id, vendor_id, status, total_amount, currency)
		VALUES ($1, $2, $3, $4, 15000, 'XAF')`,
		id, customerID, vendorID, status)
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func seedAgency(t *testing.T, db *pgxpool.Pool, id, city string, active bool) {
	t.Helper()
	_, err := db.Exec(context.Background(), `
		INSERT INTO agencies (id, name, city, is_active) VALUES ($1, $2, $3, $4)`,
		id, "Agency "+id, city, active)
	if err != nil {
		t.Fatalf("seed agency: %v", err)
	}
}

func seedJob(t *testing.T, db *pgxpool.Pool, id, orderID, status string, createdAt time.Time) {
	t.Helper()
	_, err := db.Exec(context.Background(), `
		INSERT INTO delivery_jobs (id, order_id, status, pickup_city, dropoff_city, created_at)
		VALUES ($1, $2, $3, 'Douala', 'Yaounde', $4)`,
		id, orderID, status, createdAt)
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}
}

func seedCODPayment(t *testing.T, db *pgxpool.Pool, id, orderID string) {
	t.Helper()
	_, err := db.Exec(context.Background(), `
		INSERT INTO payments (id, order_id, amount, currency, method, status)
		VALUES ($1, $2, 15000, 'XAF', 'COD', 'INITIATED')`,
		id, orderID)
	if err != nil {
		t.Fatalf("seed payment: %v", err)
	}
}

func seedLegacyDelivery(t *testing.T, db *pgxpool.Pool, id, orderID string) {
	t.Helper()
	_, err := db.Exec(context.Background(), `
		INSERT INTO deliveries (id, order_id, status) VALUES ($1, $2, 'PENDING')`,
		id, orderID)
	if err != nil {
		t.Fatalf("seed legacy delivery: %v", err)
	}
}

func seedOpenJobScenario(t *testing.T, db *pgxpool.Pool) {
	t.Helper()
	seedUser(t, db, "cust1", "Alice", "CUSTOMER")
	seedUser(t, db, "vend1", "Bob's Shop", "VENDOR")
	seedOrder(t, db, "ord1", "cust1", "vend1", "CONFIRMED")
	seedAgency(t, db, "ag1", "Douala", true)
	seedJob(t, db, "job1", "ord1", "OPEN", time.Now())
}

func TestAssignToAgency(t *testing.T) {
	ctx := context.Background()
	store, db := setupTestStore(t, PGLegacySyncer{})
	svc := NewService(store, nil, nil)

	seedOpenJobScenario(t, db)
	seedLegacyDelivery(t, db, "del1", "ord1")

	job, err := svc.AssignToAgency(ctx, AssignCommand{JobID: "job1", AgencyID: "ag1", AdminID: "admin1"})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if job.Status != StatusAccepted {
		t.Errorf("job status = %s, want ACCEPTED", job.Status)
	}
	if job.AgencyID == nil || *job.AgencyID != "ag1" {
		t.Errorf("agency id = %v, want ag1", job.AgencyID)
	}
	if job.StatusVersion != 1 {
		t.Errorf("status version = %d, want 1", job.StatusVersion)
	}
	if job.AcceptedAt == nil {
		t.Error("accepted_at not set")
	}

	var orderStatus string
	if err := db.QueryRow(ctx, "SELECT status FROM orders WHERE id = 'ord1'").Scan(&orderStatus); err != nil {
		t.Fatalf("read order: %v", err)
	}
	if orderStatus != "IN_TRANSIT" {
		t.Errorf("order status = %s, want IN_TRANSIT", orderStatus)
	}

	var legacyStatus, legacyAgency string
	if err := db.QueryRow(ctx, "SELECT status, agency_id FROM deliveries WHERE order_id = 'ord1'").
		Scan(&legacyStatus, &legacyAgency); err != nil {
		t.Fatalf("read legacy delivery: %v", err)
	}
	if legacyStatus != "ASSIGNED" || legacyAgency != "ag1" {
		t.Errorf("legacy delivery = %s/%s, want ASSIGNED/ag1", legacyStatus, legacyAgency)
	}

	logs, err := svc.Logs(ctx, "job1")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("got %d log rows, want 1", len(logs))
	}
	l := logs[0]
	if l.Event != EventAdminAssigned || l.PreviousStatus != StatusOpen || l.NewStatus != StatusAccepted {
		t.Errorf("unexpected log row: %+v", l)
	}
	if l.ActorID == nil || *l.ActorID != "admin1" || l.ActorType != workflow.ActorAdmin {
		t.Errorf("unexpected log actor: %+v", l)
	}
	if len(l.Metadata) == 0 {
		t.Error("assignment log missing agency metadata")
	}
}

func TestAssignToAgency_InactiveAgency(t *testing.T) {
	ctx := context.Background()
	store, db := setupTestStore(t, NoopLegacySyncer{})
	svc := NewService(store, nil, nil)

	seedOpenJobScenario(t, db)
	seedAgency(t, db, "ag_off", "Douala", false)

	_, err := svc.AssignToAgency(ctx, AssignCommand{JobID: "job1", AgencyID: "ag_off", AdminID: "admin1"})
	if !errors.Is(err, workflow.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}

	job, err := svc.Get(ctx, "job1")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != StatusOpen {
		t.Errorf("job status = %s, want OPEN untouched", job.Status)
	}
}

func TestAgencyLifecycle_DeliveredSettlesCOD(t *testing.T) {
	ctx := context.Background()
	store, db := setupTestStore(t, PGLegacySyncer{})
	svc := NewService(store, nil, nil)

	seedOpenJobScenario(t, db)
	seedCODPayment(t, db, "pay1", "ord1")
	seedLegacyDelivery(t, db, "del1", "ord1")

	if _, err := svc.Accept(ctx, AcceptCommand{JobID: "job1", AgencyID: "ag1"}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.MarkPickedUp(ctx, ProgressCommand{JobID: "job1", AgencyID: "ag1"}); err != nil {
		t.Fatalf("pick up: %v", err)
	}
	if _, err := svc.MarkInTransit(ctx, ProgressCommand{JobID: "job1", AgencyID: "ag1"}); err != nil {
		t.Fatalf("in transit: %v", err)
	}
	job, err := svc.MarkDelivered(ctx, ProgressCommand{JobID: "job1", AgencyID: "ag1"})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if job.Status != StatusDelivered || job.DeliveredAt == nil {
		t.Errorf("job = %s/%v, want DELIVERED with timestamp", job.Status, job.DeliveredAt)
	}
	if job.StatusVersion != 4 {
		t.Errorf("status version = %d, want 4", job.StatusVersion)
	}

	var orderStatus string
	if err := db.QueryRow(ctx, "SELECT status FROM orders WHERE id = 'ord1'").Scan(&orderStatus); err != nil {
		t.Fatalf("read order: %v", err)
	}
	if orderStatus != "DELIVERED" {
		t.Errorf("order status = %s, want DELIVERED", orderStatus)
	}

	var payStatus string
	var paidAt *time.Time
	if err := db.QueryRow(ctx, "SELECT status, paid_at FROM payments WHERE id = 'pay1'").Scan(&payStatus, &paidAt); err != nil {
		t.Fatalf("read payment: %v", err)
	}
	if payStatus != "SUCCESS" || paidAt == nil {
		t.Errorf("COD payment = %s/%v, want SUCCESS with paid_at", payStatus, paidAt)
	}

	var legacyStatus string
	if err := db.QueryRow(ctx, "SELECT status FROM deliveries WHERE order_id = 'ord1'").Scan(&legacyStatus); err != nil {
		t.Fatalf("read legacy delivery: %v", err)
	}
	if legacyStatus != "DELIVERED" {
		t.Errorf("legacy delivery status = %s, want DELIVERED", legacyStatus)
	}

	logs, err := svc.Logs(ctx, "job1")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	wantEvents := []string{EventAgencyAccepted, EventPickedUp, EventInTransit, EventDelivered}
	if len(logs) != len(wantEvents) {
		t.Fatalf("got %d log rows, want %d", len(logs), len(wantEvents))
	}
	for i, want := range wantEvents {
		if logs[i].Event != want {
			t.Errorf("log[%d].Event = %s, want %s", i, logs[i].Event, want)
		}
	}
}

func TestProgress_WrongAgency(t *testing.T) {
	ctx := context.Background()
	store, db := setupTestStore(t, NoopLegacySyncer{})
	svc := NewService(store, nil, nil)

	seedOpenJobScenario(t, db)
	seedAgency(t, db, "ag2", "Yaounde", true)

	if _, err := svc.Accept(ctx, AcceptCommand{JobID: "job1", AgencyID: "ag1"}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	_, err := svc.MarkPickedUp(ctx, ProgressCommand{JobID: "job1", AgencyID: "ag2"})
	if !errors.Is(err, workflow.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for wrong agency, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	store, db := setupTestStore(t, NoopLegacySyncer{})
	svc := NewService(store, nil, nil)

	seedOpenJobScenario(t, db)

	job, err := svc.Cancel(ctx, CancelCommand{JobID: "job1", AdminID: "admin1", Reason: "customer unreachable"})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if job.Status != StatusCancelled || job.CancelledAt == nil {
		t.Errorf("job = %s/%v, want CANCELLED with timestamp", job.Status, job.CancelledAt)
	}

	var orderStatus string
	if err := db.QueryRow(ctx, "SELECT status FROM orders WHERE id = 'ord1'").Scan(&orderStatus); err != nil {
		t.Fatalf("read order: %v", err)
	}
	if orderStatus != "CANCELLED" {
		t.Errorf("order status = %s, want CANCELLED", orderStatus)
	}

	logs, err := svc.Logs(ctx, "job1")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Event != EventAdminCancelled {
		t.Fatalf("unexpected logs: %+v", logs)
	}
	if logs[0].Notes == nil || *logs[0].Notes != "customer unreachable" {
		t.Errorf("cancel notes = %v, want reason recorded", logs[0].Notes)
	}

	// Terminal: nothing moves a cancelled job.
	_, err = svc.AssignToAgency(ctx, AssignCommand{JobID: "job1", AgencyID: "ag1", AdminID: "admin1"})
	if !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on cancelled job, got %v", err)
	}
}

// failingSyncer simulates an outage of the superseded deliveries table.
type failingSyncer struct{}

func (failingSyncer) Sync(context.Context, pgx.Tx, types.ID, string, *types.ID) error {
	return errors.New("deliveries table unavailable")
}

func TestTransition_LegacySyncFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store, db := setupTestStore(t, failingSyncer{})
	svc := NewService(store, nil, nil)

	seedOpenJobScenario(t, db)

	if _, err := svc.AssignToAgency(ctx, AssignCommand{JobID: "job1", AgencyID: "ag1", AdminID: "admin1"}); err == nil {
		t.Fatal("expected assign to fail when legacy sync fails")
	}

	job, err := svc.Get(ctx, "job1")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != StatusOpen || job.StatusVersion != 0 || job.AgencyID != nil {
		t.Errorf("job mutated despite rollback: %+v", job)
	}

	var orderStatus string
	if err := db.QueryRow(ctx, "SELECT status FROM orders WHERE id = 'ord1'").Scan(&orderStatus); err != nil {
		t.Fatalf("read order: %v", err)
	}
	if orderStatus != "CONFIRMED" {
		t.Errorf("order status = %s, want CONFIRMED untouched", orderStatus)
	}

	var logCount int
	if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM delivery_job_logs").Scan(&logCount); err != nil {
		t.Fatalf("count logs: %v", err)
	}
	if logCount != 0 {
		t.Errorf("got %d log rows after rollback, want 0", logCount)
	}
}

func TestFindAll_Filters(t *testing.T) {
	ctx := context.Background()
	store, db := setupTestStore(t, NoopLegacySyncer{})
	svc := NewService(store, nil, nil)

	seedUser(t, db, "cust1", "Alice", "CUSTOMER")
	seedUser(t, db, "vend1", "Bob's Shop", "VENDOR")
	for _, id := range []string{"ord1", "ord2", "ord3"} {
		seedOrder(t, db, id, "cust1", "vend1", "CONFIRMED")
	}
	seedJob(t, db, "job1", "ord1", "OPEN", time.Now().Add(-2*time.Hour))
	seedJob(t, db, "job2", "ord2", "OPEN", time.Now().Add(-time.Hour))
	seedJob(t, db, "job3", "ord3", "DELIVERED", time.Now())

	open := StatusOpen
	jobs, total, err := svc.FindAll(ctx, Filter{Status: &open})
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	if total != 2 || len(jobs) != 2 {
		t.Fatalf("got %d/%d open jobs, want 2/2", len(jobs), total)
	}
	// Newest first.
	if jobs[0].ID != "job2" || jobs[1].ID != "job1" {
		t.Errorf("unexpected order: %s, %s", jobs[0].ID, jobs[1].ID)
	}

	jobs, total, err = svc.FindAll(ctx, Filter{City: "Douala", Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("find by city: %v", err)
	}
	if total != 3 || len(jobs) != 2 {
		t.Fatalf("got %d jobs (total %d), want page of 2 from 3", len(jobs), total)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	store, db := setupTestStore(t, NoopLegacySyncer{})
	svc := NewService(store, nil, nil)

	seedUser(t, db, "cust1", "Alice", "CUSTOMER")
	seedUser(t, db, "vend1", "Bob's Shop", "VENDOR")
	for _, id := range []string{"ord1", "ord2", "ord3"} {
		seedOrder(t, db, id, "cust1", "vend1", "CONFIRMED")
	}
	seedJob(t, db, "job_fresh", "ord1", "OPEN", time.Now())
	seedJob(t, db, "job_stale", "ord2", "OPEN", time.Now().Add(-StaleJobAge-time.Minute))
	seedJob(t, db, "job_done", "ord3", "DELIVERED", time.Now())

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ByStatus[StatusOpen] != 2 || stats.ByStatus[StatusDelivered] != 1 {
		t.Errorf("unexpected counts: %+v", stats.ByStatus)
	}
	if stats.Stale != 1 {
		t.Errorf("stale = %d, want 1", stats.Stale)
	}
}
