package resilient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// flakyStore 在 down 為 true 時所有操作失敗
type flakyStore struct {
	usecase.Store
	mu   sync.Mutex
	down bool
}

var errConnRefused = errors.New("connection refused")

func (f *flakyStore) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *flakyStore) isDown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.down
}

func (f *flakyStore) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	if f.isDown() {
		return nil, errConnRefused
	}
	return f.Store.FindByID(ctx, id)
}

type stateRecorder struct {
	mu     sync.Mutex
	states []string
}

func (r *stateRecorder) ObserveCircuitState(_, state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func newFlaky(t *testing.T) *flakyStore {
	t.Helper()
	inner, err := memory.NewStore(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &flakyStore{Store: inner}
}

func TestBusinessErrorsDoNotTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore("test", newFlaky(t), Config{ConsecutiveFailures: 2}, nil, nil)

	for i := 0; i < 5; i++ {
		if _, err := s.FindByID(ctx, 42); !errors.Is(err, domain.ErrAccountNotFound) {
			t.Fatalf("err = %v, want ErrAccountNotFound", err)
		}
	}
	if s.State() != gobreaker.StateClosed {
		t.Fatalf("state = %s, want closed", s.State())
	}
}

func TestOpensAfterConsecutiveFailuresAndRecovers(t *testing.T) {
	ctx := context.Background()
	flaky := newFlaky(t)
	rec := &stateRecorder{}
	s := NewStore("test", flaky, Config{ConsecutiveFailures: 2, Timeout: 50 * time.Millisecond}, nil, rec)

	acct, err := s.Save(ctx, domain.NewAccount("n", "Alice", "1234"))
	if err != nil {
		t.Fatal(err)
	}

	flaky.setDown(true)
	for i := 0; i < 2; i++ {
		if _, err := s.FindByID(ctx, acct.ID); !errors.Is(err, errConnRefused) {
			t.Fatalf("err = %v, want connection refused", err)
		}
	}
	_, err = s.FindByID(ctx, acct.ID)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
	if domain.Classify(err) != "store_unavailable" {
		t.Fatalf("Classify = %s", domain.Classify(err))
	}

	flaky.setDown(false)
	time.Sleep(80 * time.Millisecond)
	if _, err := s.FindByID(ctx, acct.ID); err != nil {
		t.Fatalf("half-open probe failed: %v", err)
	}
	if s.State() != gobreaker.StateClosed {
		t.Fatalf("state = %s, want closed", s.State())
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	want := []string{"open", "half-open", "closed"}
	if len(rec.states) != len(want) {
		t.Fatalf("states = %v, want %v", rec.states, want)
	}
	for i := range want {
		if rec.states[i] != want[i] {
			t.Fatalf("states = %v, want %v", rec.states, want)
		}
	}
}

func TestLedgerThroughResilientStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore("test", newFlaky(t), DefaultConfig(), nil, nil)
	ledger := usecase.NewLedger(s)

	alice, err := ledger.CreateAccount(ctx, "Alice", "1111")
	if err != nil {
		t.Fatal(err)
	}
	bob, _ := ledger.CreateAccount(ctx, "Bob", "2222")
	if _, err := ledger.Deposit(ctx, alice.ID, domain.NewMoneyFromInt(20)); err != nil {
		t.Fatal(err)
	}
	if _, err := ledger.Transfer(ctx, alice.ID, "1111", domain.NewMoneyFromInt(25), bob.ID); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if _, err := ledger.Transfer(ctx, alice.ID, "1111", domain.NewMoneyFromInt(5), bob.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := s.FindByID(ctx, bob.ID)
	if !got.Balance.Equal(domain.NewMoneyFromInt(5)) {
		t.Fatalf("bob balance = %s, want 5", got.Balance)
	}
}
