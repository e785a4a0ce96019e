package transactions

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/umoja-bank/umoja/internal/account"
	"github.com/umoja-bank/umoja/internal/ledger"
	"github.com/umoja-bank/umoja/internal/logging"
	"github.com/umoja-bank/umoja/internal/notification"
)

// testNotifier records dispatched messages and can be told to fail.
type testNotifier struct {
	sent    []notification.Message
	failErr error
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	if n.failErr != nil {
		return n.failErr
	}
	n.sent = append(n.sent, msg)
	return nil
}

type fixture struct {
	svc      *Service
	accounts *account.Service
	ledger   ledger.Ledger
	notifier *testNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	book := ledger.NewInMemory(ledger.DefaultPolicy())
	accounts := account.NewService(account.NewMemoryRepository(), book)
	notifier := &testNotifier{}
	svc := NewService(book, accounts, notifier, logging.Discard())
	return &fixture{svc: svc, accounts: accounts, ledger: book, notifier: notifier}
}

// openAccount provisions an account for a fresh owner and returns both.
func (f *fixture) openAccount(t *testing.T) (account.Account, string) {
	t.Helper()
	ownerID := uuid.NewString()
	acct, err := f.accounts.Open(context.Background(), account.OpenInput{OwnerID: ownerID, Kind: account.KindSavings})
	if err != nil {
		t.Fatalf("open account: %v", err)
	}
	return acct, ownerID
}

func TestDepositNotifiesOwner(t *testing.T) {
	f := newFixture(t)
	acct, owner := f.openAccount(t)

	res, err := f.svc.Deposit(context.Background(), DepositInput{
		AccountID:       acct.ID,
		Amount:          1500,
		RequestorUserID: owner,
	})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if res.Kind != ledger.KindDeposit || res.Balance != 1500 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(f.notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(f.notifier.sent))
	}
	msg := f.notifier.sent[0]
	if msg.Kind != notification.KindDeposit || msg.Destination != owner || msg.Amount != 1500 {
		t.Fatalf("unexpected notification: %+v", msg)
	}
}

func TestDepositRejectsNonOwner(t *testing.T) {
	f := newFixture(t)
	acct, _ := f.openAccount(t)

	_, err := f.svc.Deposit(context.Background(), DepositInput{
		AccountID:       acct.ID,
		Amount:          1500,
		RequestorUserID: uuid.NewString(),
	})
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if len(f.notifier.sent) != 0 {
		t.Fatal("rejected operation must not notify")
	}
}

func TestDepositUnknownAccount(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Deposit(context.Background(), DepositInput{AccountID: uuid.NewString(), Amount: 1500})
	if !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestNotifierFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	acct, owner := f.openAccount(t)
	f.notifier.failErr = errors.New("smtp down")

	res, err := f.svc.Deposit(context.Background(), DepositInput{
		AccountID:       acct.ID,
		Amount:          1500,
		RequestorUserID: owner,
	})
	if err != nil {
		t.Fatalf("deposit must commit despite notifier failure: %v", err)
	}
	if res.Balance != 1500 {
		t.Fatalf("balance = %d, want 1500", res.Balance)
	}
}

func TestWithdrawPropagatesPolicyErrors(t *testing.T) {
	f := newFixture(t)
	acct, owner := f.openAccount(t)
	ledger.SeedBalance(f.ledger, acct.ID, 400)

	_, err := f.svc.Withdraw(context.Background(), WithdrawInput{
		AccountID:       acct.ID,
		Amount:          500,
		RequestorUserID: owner,
	})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestTransferByAccountNumber(t *testing.T) {
	f := newFixture(t)
	sender, senderOwner := f.openAccount(t)
	receiver, receiverOwner := f.openAccount(t)
	ledger.SeedBalance(f.ledger, sender.ID, 5000)

	res, err := f.svc.Transfer(context.Background(), TransferInput{
		FromAccountID:   sender.ID,
		ToAccountNumber: receiver.Number,
		Amount:          2000,
		RequestorUserID: senderOwner,
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if res.FromBalance != 3000 || res.ToBalance != 2000 {
		t.Fatalf("unexpected balances: %+v", res)
	}

	if len(f.notifier.sent) != 2 {
		t.Fatalf("expected sender and receiver notifications, got %d", len(f.notifier.sent))
	}
	if f.notifier.sent[0].Destination != senderOwner || f.notifier.sent[1].Destination != receiverOwner {
		t.Fatalf("notifications addressed wrong: %+v", f.notifier.sent)
	}
}

func TestTransferUnknownReceiverNumber(t *testing.T) {
	f := newFixture(t)
	sender, owner := f.openAccount(t)
	ledger.SeedBalance(f.ledger, sender.ID, 5000)

	_, err := f.svc.Transfer(context.Background(), TransferInput{
		FromAccountID:   sender.ID,
		ToAccountNumber: 999999,
		Amount:          2000,
		RequestorUserID: owner,
	})
	if !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if len(f.notifier.sent) != 0 {
		t.Fatal("failed transfer must not notify")
	}
}

func TestLoanFlowThroughService(t *testing.T) {
	f := newFixture(t)
	acct, owner := f.openAccount(t)
	ledger.SeedBalance(f.ledger, acct.ID, 1000)

	loan, err := f.svc.RequestLoan(context.Background(), LoanInput{
		AccountID:       acct.ID,
		Amount:          5000,
		RequestorUserID: owner,
	})
	if err != nil {
		t.Fatalf("request loan: %v", err)
	}

	if _, err := f.svc.ApproveLoan(context.Background(), loan.ID); err != nil {
		t.Fatalf("approve loan: %v", err)
	}

	res, err := f.svc.PayLoan(context.Background(), PayLoanInput{
		LoanID:          loan.ID,
		RequestorUserID: owner,
	})
	if err != nil {
		t.Fatalf("pay loan: %v", err)
	}
	if res.Kind != ledger.KindLoanPayment || res.Balance != 1000 {
		t.Fatalf("unexpected payoff result: %+v", res)
	}

	kinds := make([]string, 0, len(f.notifier.sent))
	for _, msg := range f.notifier.sent {
		kinds = append(kinds, msg.Kind)
	}
	want := []string{notification.KindLoanRequested, notification.KindLoanApproved, notification.KindLoanPaid}
	if len(kinds) != len(want) {
		t.Fatalf("notification kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("notification kinds = %v, want %v", kinds, want)
		}
	}
}

func TestPayLoanWorksAcrossMultipleAccounts(t *testing.T) {
	f := newFixture(t)

	// One owner holding several accounts; the loan lives on the first one.
	ownerID := uuid.NewString()
	borrowing, err := f.accounts.Open(context.Background(), account.OpenInput{OwnerID: ownerID, Kind: account.KindSavings})
	if err != nil {
		t.Fatalf("open account: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := f.accounts.Open(context.Background(), account.OpenInput{OwnerID: ownerID, Kind: account.KindCurrent}); err != nil {
			t.Fatalf("open extra account %d: %v", i, err)
		}
	}
	ledger.SeedBalance(f.ledger, borrowing.ID, 100000)

	loan, err := f.svc.RequestLoan(context.Background(), LoanInput{
		AccountID:       borrowing.ID,
		Amount:          5000,
		RequestorUserID: ownerID,
	})
	if err != nil {
		t.Fatalf("request loan: %v", err)
	}
	if _, err := f.svc.ApproveLoan(context.Background(), loan.ID); err != nil {
		t.Fatalf("approve loan: %v", err)
	}

	res, err := f.svc.PayLoan(context.Background(), PayLoanInput{
		LoanID:          loan.ID,
		RequestorUserID: ownerID,
	})
	if err != nil {
		t.Fatalf("owner must be able to pay their own loan: %v", err)
	}
	if res.Kind != ledger.KindLoanPayment {
		t.Fatalf("unexpected payoff result: %+v", res)
	}
}

func TestPayLoanRejectsForeignLoan(t *testing.T) {
	f := newFixture(t)
	borrower, borrowerOwner := f.openAccount(t)
	_, strangerOwner := f.openAccount(t)
	ledger.SeedBalance(f.ledger, borrower.ID, 100000)

	loan, err := f.svc.RequestLoan(context.Background(), LoanInput{
		AccountID:       borrower.ID,
		Amount:          5000,
		RequestorUserID: borrowerOwner,
	})
	if err != nil {
		t.Fatalf("request loan: %v", err)
	}
	if _, err := f.svc.ApproveLoan(context.Background(), loan.ID); err != nil {
		t.Fatalf("approve loan: %v", err)
	}

	_, err = f.svc.PayLoan(context.Background(), PayLoanInput{
		LoanID:          loan.ID,
		RequestorUserID: strangerOwner,
	})
	if !errors.Is(err, ledger.ErrLoanNotFound) {
		t.Fatalf("foreign loan must read as not found, got %v", err)
	}
}

func TestStatement(t *testing.T) {
	f := newFixture(t)
	acct, owner := f.openAccount(t)

	if _, err := f.svc.Deposit(context.Background(), DepositInput{AccountID: acct.ID, Amount: 2000, RequestorUserID: owner}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := f.svc.Withdraw(context.Background(), WithdrawInput{AccountID: acct.ID, Amount: 500, RequestorUserID: owner}); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	st, err := f.svc.Statement(context.Background(), StatementInput{
		AccountID:       acct.ID,
		RequestorUserID: owner,
	})
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if st.AccountNumber != acct.Number {
		t.Fatalf("statement number = %d, want %d", st.AccountNumber, acct.Number)
	}
	if st.Balance != 1500 {
		t.Fatalf("statement balance = %d, want 1500", st.Balance)
	}
	if len(st.Records) != 2 {
		t.Fatalf("statement has %d records, want 2", len(st.Records))
	}

	// Statement access is owner-only.
	if _, err := f.svc.Statement(context.Background(), StatementInput{
		AccountID:       acct.ID,
		RequestorUserID: uuid.NewString(),
	}); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
}
