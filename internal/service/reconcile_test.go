package service

import (
	"context"
	"testing"

	"github.com/ShakerUp/tg-bot-sproxy/internal/models"
	"github.com/ShakerUp/tg-bot-sproxy/internal/repository"
)

func seedUser(repo *fakeRepo, telegramID int64, balance int64, refCode string) {
	repo.users[telegramID] = &models.User{
		TelegramID: telegramID,
		ChatID:     telegramID,
		Username:   "user",
		Role:       models.RoleUser,
		Balance:    balance,
		RefCode:    refCode,
	}
}

func seedTransaction(repo *fakeRepo, telegramID int64, invoiceID string, amount int64, status string) *models.Transaction {
	txn := &models.Transaction{
		UserTelegramID: telegramID,
		InvoiceID:      invoiceID,
		Amount:         amount,
		Currency:       840,
		Status:         status,
	}
	_ = repo.CreateTransaction(context.Background(), txn)
	return txn
}

func TestReconcileCreditsSuccessfulTransaction(t *testing.T) {
	repo := newFakeRepo()
	seedUser(repo, 100, 0, "")
	seedTransaction(repo, 100, "inv-1", 2500, models.StatusCreated)

	gw := &fakeGateway{statuses: map[string]string{"inv-1": models.StatusSuccess}}
	svc := newTestService(repo, gw)

	txns, _ := repo.GetAllTransactions(context.Background())
	failed := svc.Reconcile(context.Background(), txns)
	if len(failed) != 0 {
		t.Fatalf("unexpected failures: %v", failed)
	}

	user, _ := repo.GetUser(context.Background(), 100)
	if user.Balance != 2500 {
		t.Errorf("balance = %d, want 2500", user.Balance)
	}

	stored, _ := repo.GetTransactionByInvoiceID(context.Background(), "inv-1")
	if stored.Status != models.StatusSuccess {
		t.Errorf("stored status = %s, want success", stored.Status)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	seedUser(repo, 100, 0, "")
	seedTransaction(repo, 100, "inv-1", 2500, models.StatusCreated)

	gw := &fakeGateway{statuses: map[string]string{"inv-1": models.StatusSuccess}}
	svc := newTestService(repo, gw)

	for i := 0; i < 3; i++ {
		txns, _ := repo.GetAllTransactions(context.Background())
		if failed := svc.Reconcile(context.Background(), txns); len(failed) != 0 {
			t.Fatalf("pass %d: unexpected failures: %v", i, failed)
		}
	}

	user, _ := repo.GetUser(context.Background(), 100)
	if user.Balance != 2500 {
		t.Errorf("balance after repeated reconcile = %d, want 2500", user.Balance)
	}
	if len(repo.topUps) != 1 {
		t.Errorf("top-up records = %d, want 1", len(repo.topUps))
	}
}

func TestReconcileDuplicateInsertIsNoop(t *testing.T) {
	// Конкурент успел вставить запись о зачислении первым: вставка
	// возвращает нарушение уникальности, баланс не трогаем.
	repo := newFakeRepo()
	seedUser(repo, 100, 0, "")
	seedTransaction(repo, 100, "inv-1", 2500, models.StatusCreated)
	repo.failCreate = repository.ErrDuplicateTopUp

	gw := &fakeGateway{statuses: map[string]string{"inv-1": models.StatusSuccess}}
	svc := newTestService(repo, gw)

	txns, _ := repo.GetAllTransactions(context.Background())
	failed := svc.Reconcile(context.Background(), txns)
	if len(failed) != 0 {
		t.Fatalf("duplicate insert should not be reported as failure: %v", failed)
	}

	user, _ := repo.GetUser(context.Background(), 100)
	if user.Balance != 0 {
		t.Errorf("balance = %d, want 0 (credit already applied elsewhere)", user.Balance)
	}
}

func TestReconcilePaysReferralBonus(t *testing.T) {
	repo := newFakeRepo()
	seedUser(repo, 200, 0, "")    // реферер
	seedUser(repo, 100, 0, "200") // пополняющий
	seedTransaction(repo, 100, "inv-1", 2500, models.StatusCreated)

	gw := &fakeGateway{statuses: map[string]string{"inv-1": models.StatusSuccess}}
	svc := newTestService(repo, gw)

	txns, _ := repo.GetAllTransactions(context.Background())
	if failed := svc.Reconcile(context.Background(), txns); len(failed) != 0 {
		t.Fatalf("unexpected failures: %v", failed)
	}

	payer, _ := repo.GetUser(context.Background(), 100)
	if payer.Balance != 2500 {
		t.Errorf("payer balance = %d, want 2500", payer.Balance)
	}

	referrer, _ := repo.GetUser(context.Background(), 200)
	if referrer.Balance != 250 {
		t.Errorf("referrer balance = %d, want 250 (10%% of 2500)", referrer.Balance)
	}
	if referrer.RefEarnings != 250 {
		t.Errorf("referrer earnings = %d, want 250", referrer.RefEarnings)
	}
}

func TestReconcileMissingReferrerStillCredits(t *testing.T) {
	repo := newFakeRepo()
	seedUser(repo, 100, 0, "999") // реферер не существует
	seedTransaction(repo, 100, "inv-1", 2500, models.StatusCreated)

	gw := &fakeGateway{statuses: map[string]string{"inv-1": models.StatusSuccess}}
	svc := newTestService(repo, gw)

	txns, _ := repo.GetAllTransactions(context.Background())
	if failed := svc.Reconcile(context.Background(), txns); len(failed) != 0 {
		t.Fatalf("unexpected failures: %v", failed)
	}

	user, _ := repo.GetUser(context.Background(), 100)
	if user.Balance != 2500 {
		t.Errorf("balance = %d, want 2500", user.Balance)
	}
}

func TestReconcileReversalRestoresBalance(t *testing.T) {
	repo := newFakeRepo()
	seedUser(repo, 100, 0, "")
	seedTransaction(repo, 100, "inv-1", 2500, models.StatusCreated)

	gw := &fakeGateway{statuses: map[string]string{"inv-1": models.StatusSuccess}}
	svc := newTestService(repo, gw)

	txns, _ := repo.GetAllTransactions(context.Background())
	svc.Reconcile(context.Background(), txns)

	gw.statuses["inv-1"] = models.StatusReversed
	txns, _ = repo.GetAllTransactions(context.Background())
	if failed := svc.Reconcile(context.Background(), txns); len(failed) != 0 {
		t.Fatalf("unexpected failures: %v", failed)
	}

	user, _ := repo.GetUser(context.Background(), 100)
	if user.Balance != 0 {
		t.Errorf("balance after reversal = %d, want 0", user.Balance)
	}
	if len(repo.topUps) != 0 {
		t.Errorf("top-up records after reversal = %d, want 0", len(repo.topUps))
	}

	// Повторный reversed без записи о зачислении ничего не делает.
	txns, _ = repo.GetAllTransactions(context.Background())
	if failed := svc.Reconcile(context.Background(), txns); len(failed) != 0 {
		t.Fatalf("repeated reversal reported failures: %v", failed)
	}
	user, _ = repo.GetUser(context.Background(), 100)
	if user.Balance != 0 {
		t.Errorf("balance after repeated reversal = %d, want 0", user.Balance)
	}
}

func TestReconcileGatewayFailureIsIsolated(t *testing.T) {
	repo := newFakeRepo()
	seedUser(repo, 100, 0, "")
	seedTransaction(repo, 100, "inv-1", 1000, models.StatusCreated)
	seedTransaction(repo, 100, "inv-2", 2000, models.StatusCreated) // статус недоступен

	gw := &fakeGateway{statuses: map[string]string{"inv-1": models.StatusSuccess}}
	svc := newTestService(repo, gw)

	txns, _ := repo.GetAllTransactions(context.Background())
	failed := svc.Reconcile(context.Background(), txns)

	if len(failed) != 1 {
		t.Fatalf("failed = %v, want exactly inv-2", failed)
	}
	if _, ok := failed["inv-2"]; !ok {
		t.Errorf("failed map missing inv-2: %v", failed)
	}

	user, _ := repo.GetUser(context.Background(), 100)
	if user.Balance != 1000 {
		t.Errorf("balance = %d, want 1000 (inv-1 applied despite inv-2 failure)", user.Balance)
	}

	// Локальный статус inv-2 не изменился.
	stored, _ := repo.GetTransactionByInvoiceID(context.Background(), "inv-2")
	if stored.Status != models.StatusCreated {
		t.Errorf("inv-2 status = %s, want created", stored.Status)
	}
}

func TestReconcileSkipsTerminalNegativeStatuses(t *testing.T) {
	repo := newFakeRepo()
	seedUser(repo, 100, 0, "")
	seedTransaction(repo, 100, "inv-1", 1000, models.StatusExpired)
	seedTransaction(repo, 100, "inv-2", 2000, models.StatusFailure)

	gw := &fakeGateway{statuses: map[string]string{}}
	svc := newTestService(repo, gw)

	txns, _ := repo.GetAllTransactions(context.Background())
	if failed := svc.Reconcile(context.Background(), txns); len(failed) != 0 {
		t.Fatalf("unexpected failures: %v", failed)
	}
	if gw.calls != 0 {
		t.Errorf("gateway calls = %d, want 0 for terminal statuses", gw.calls)
	}
}

func TestCreateTopUpValidatesAmount(t *testing.T) {
	repo := newFakeRepo()
	seedUser(repo, 100, 0, "")
	gw := &fakeGateway{}
	svc := newTestService(repo, gw)

	for _, amount := range []int64{0, 50, -100, 200000} {
		if _, err := svc.CreateTopUp(context.Background(), 100, amount); err != ErrInvalidAmount {
			t.Errorf("CreateTopUp(%d) err = %v, want ErrInvalidAmount", amount, err)
		}
	}
	if gw.invoices != 0 {
		t.Errorf("invoices created = %d, want 0", gw.invoices)
	}
}

func TestCreateTopUpPersistsTransaction(t *testing.T) {
	repo := newFakeRepo()
	seedUser(repo, 100, 0, "")
	gw := &fakeGateway{}
	svc := newTestService(repo, gw)

	txn, err := svc.CreateTopUp(context.Background(), 100, 2500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txn.InvoiceID == "" || txn.PageURL == "" {
		t.Errorf("transaction missing invoice data: %+v", txn)
	}
	if txn.Status != models.StatusCreated {
		t.Errorf("status = %s, want created", txn.Status)
	}
	if txn.Amount != 2500 || txn.Currency != 840 {
		t.Errorf("amount/currency = %d/%d, want 2500/840", txn.Amount, txn.Currency)
	}

	stored, _ := repo.GetTransactionByInvoiceID(context.Background(), txn.InvoiceID)
	if stored == nil {
		t.Fatal("transaction was not persisted")
	}
}
