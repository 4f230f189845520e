package memory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/wal"
)

type failingJournal struct {
	appends int
}

func (f *failingJournal) Append(any) error {
	f.appends++
	return errors.New("disk full")
}

func (f *failingJournal) Replay(func([]byte) error) error { return nil }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

func TestSaveAssignsIDsAndReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a, err := s.Save(ctx, domain.NewAccount("n-1", "Alice", "1234"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	b, _ := s.Save(ctx, domain.NewAccount("n-2", "Bob", "1234"))
	if a.ID != 1 || b.ID != 2 {
		t.Fatalf("ids = %d, %d; want 1, 2", a.ID, b.ID)
	}

	a.Balance = domain.NewMoneyFromInt(999)
	stored, err := s.FindByID(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.Balance.IsZero() {
		t.Fatalf("store shares state with caller: balance = %s", stored.Balance)
	}
}

func TestFindByIDMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.FindByID(context.Background(), 42)
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestFindByOwnerNameAndAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, name := range []string{"Alice", "Bob", "Alice", "alice"} {
		if _, err := s.Save(ctx, domain.NewAccount(name, name, "1234")); err != nil {
			t.Fatal(err)
		}
	}

	got, _ := s.FindByOwnerName(ctx, "Alice")
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Fatalf("FindByOwnerName = %+v, want ids [1 3]", got)
	}
	none, _ := s.FindByOwnerName(ctx, "Carol")
	if none == nil || len(none) != 0 {
		t.Fatalf("FindByOwnerName(Carol) = %v, want empty slice", none)
	}
	all, _ := s.FindAll(ctx)
	if len(all) != 4 {
		t.Fatalf("FindAll len = %d, want 4", len(all))
	}
	for i, acct := range all {
		if acct.ID != int64(i+1) {
			t.Fatalf("FindAll not sorted by id: %v", all)
		}
	}
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	acct, _ := s.Save(ctx, domain.NewAccount("n", "Alice", "1234"))

	boom := errors.New("boom")
	err := s.WithTransaction(ctx, func(tx usecase.Store) error {
		a, _ := tx.FindByID(ctx, acct.ID)
		a.Balance = domain.NewMoneyFromInt(50)
		if _, err := tx.Save(ctx, a); err != nil {
			return err
		}
		// read-your-writes
		again, _ := tx.FindByID(ctx, acct.ID)
		if !again.Balance.Equal(domain.NewMoneyFromInt(50)) {
			t.Errorf("staged balance = %s, want 50", again.Balance)
		}
		if _, err := tx.AppendTransaction(ctx, domain.NewTransaction(a, domain.TransactionTypeDeposit, domain.NewMoneyFromInt(50), time.Now())); err != nil {
			return err
		}
		staged, _ := tx.FindTransactionsByAccount(ctx, acct.ID)
		if len(staged) != 1 {
			t.Errorf("staged history len = %d, want 1", len(staged))
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	after, _ := s.FindByID(ctx, acct.ID)
	if !after.Balance.IsZero() {
		t.Fatalf("balance = %s after rollback, want 0", after.Balance)
	}
	history, _ := s.FindTransactionsByAccount(ctx, acct.ID)
	if len(history) != 0 {
		t.Fatalf("history len = %d after rollback, want 0", len(history))
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	acct, _ := s.Save(ctx, domain.NewAccount("n", "Alice", "1234"))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(time.Minute), base.Add(time.Minute), base.Add(-time.Minute)}
	for i, ts := range times {
		tran := domain.NewTransaction(acct, domain.TransactionTypeDeposit, domain.NewMoneyFromInt(int64(i+1)), ts)
		appended, err := s.AppendTransaction(ctx, tran)
		if err != nil {
			t.Fatal(err)
		}
		if appended.ID.String() == "00000000-0000-0000-0000-000000000000" {
			t.Fatal("AppendTransaction did not assign an id")
		}
	}

	history, _ := s.FindTransactionsByAccount(ctx, acct.ID)
	want := []int64{3, 2, 1, 4}
	if len(history) != len(want) {
		t.Fatalf("history len = %d, want %d", len(history), len(want))
	}
	for i, amount := range want {
		if !history[i].Amount.Equal(domain.NewMoneyFromInt(amount)) {
			t.Errorf("history[%d].Amount = %s, want %d", i, history[i].Amount, amount)
		}
	}
}

func TestWALFailureAppliesNothing(t *testing.T) {
	ctx := context.Background()
	journal := &failingJournal{}
	s, err := NewStore(journal)
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Save(ctx, domain.NewAccount("n", "Alice", "1234"))
	if !errors.Is(err, domain.ErrWALWriteFailed) {
		t.Fatalf("err = %v, want ErrWALWriteFailed", err)
	}
	if journal.appends != 1 {
		t.Fatalf("appends = %d, want 1", journal.appends)
	}
	all, _ := s.FindAll(ctx)
	if len(all) != 0 {
		t.Fatalf("accounts after failed commit = %d, want 0", len(all))
	}
}

func TestWALReplayRestoresState(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.wal")

	w, err := wal.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewStore(w)
	if err != nil {
		t.Fatal(err)
	}
	ledger := usecase.NewLedger(s)
	alice, _ := ledger.CreateAccount(ctx, "Alice", "1111")
	bob, _ := ledger.CreateAccount(ctx, "Bob", "2222")
	if _, err := ledger.Deposit(ctx, alice.ID, domain.MustParseMoney("100.25")); err != nil {
		t.Fatal(err)
	}
	if _, err := ledger.Transfer(ctx, alice.ID, "1111", domain.NewMoneyFromInt(40), bob.ID); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	w2, err := wal.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w2.Close()
	restored, err := NewStore(w2)
	if err != nil {
		t.Fatalf("NewStore(replay) error = %v", err)
	}

	a, _ := restored.FindByID(ctx, alice.ID)
	b, _ := restored.FindByID(ctx, bob.ID)
	if !a.Balance.Equal(domain.MustParseMoney("60.25")) || !b.Balance.Equal(domain.NewMoneyFromInt(40)) {
		t.Fatalf("balances after replay = %s / %s, want 60.25 / 40", a.Balance, b.Balance)
	}
	if a.PIN != "1111" {
		t.Fatalf("pin not restored")
	}
	history, _ := restored.FindTransactionsByAccount(ctx, alice.ID)
	if len(history) != 2 || history[0].Type != domain.TransactionTypeTransferOut {
		t.Fatalf("alice history after replay = %+v", history)
	}

	carol, err := restored.Save(ctx, domain.NewAccount("n-3", "Carol", "3333"))
	if err != nil {
		t.Fatal(err)
	}
	if carol.ID != 3 {
		t.Fatalf("next id after replay = %d, want 3", carol.ID)
	}
}
