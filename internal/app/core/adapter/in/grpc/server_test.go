package grpc_test

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	ledgergrpc "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	grpcpool "github.com/JoeShih716/go-bank-ledger/pkg/grpc"
)

type observed struct {
	method, code string
}

type fakeObserver struct {
	mu    sync.Mutex
	calls []observed
}

func (o *fakeObserver) ObserveGRPC(method, code string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, observed{method, code})
}

func (o *fakeObserver) snapshot() []observed {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]observed(nil), o.calls...)
}

// startServer 以 bufconn 啟動完整的 gRPC server，回傳 client 與 observer
func startServer(t *testing.T) (*ledgergrpc.Client, *grpc.ClientConn, *fakeObserver) {
	t.Helper()
	store, err := memory.NewStore(nil)
	if err != nil {
		t.Fatal(err)
	}
	ledger := usecase.NewLedger(store)
	query := usecase.NewQueryService(store)

	observer := &fakeObserver{}
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(ledgergrpc.UnaryServerInterceptor(nil, observer)))
	ledgergrpc.RegisterLedgerServiceServer(srv, ledgergrpc.NewServer(ledger, query, nil))

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	pool := grpcpool.NewPool()
	t.Cleanup(func() { _ = pool.Close() })
	conn, err := pool.GetConnection("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	if err != nil {
		t.Fatalf("GetConnection: %v", err)
	}
	return ledgergrpc.NewClient(conn), conn, observer
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClient_EndToEnd(t *testing.T) {
	client, _, _ := startServer(t)
	ctx := testContext(t)

	alice, err := client.CreateAccount(ctx, "Alice", "1234")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	bob, err := client.CreateAccount(ctx, "Bob", "5678")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if alice.AccountNumber == "" || !alice.Balance.IsZero() {
		t.Fatalf("unexpected new account %+v", alice)
	}

	if _, err := client.Deposit(ctx, alice.ID, domain.MustParseMoney("100.50")); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if _, err := client.Withdraw(ctx, alice.ID, "1234", domain.MustParseMoney("0.50")); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	from, err := client.Transfer(ctx, alice.ID, "1234", domain.MustParseMoney("40"), bob.ID)
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if want := domain.MustParseMoney("60"); !from.Balance.Equal(want) {
		t.Errorf("source balance = %s, want %s", from.Balance, want)
	}

	got, err := client.GetAccount(ctx, bob.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if want := domain.MustParseMoney("40"); !got.Balance.Equal(want) {
		t.Errorf("destination balance = %s, want %s", got.Balance, want)
	}

	trans, err := client.ListTransactions(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	wantTypes := []domain.TransactionType{
		domain.TransactionTypeTransferOut,
		domain.TransactionTypeWithdraw,
		domain.TransactionTypeDeposit,
	}
	if len(trans) != len(wantTypes) {
		t.Fatalf("got %d transactions, want %d", len(trans), len(wantTypes))
	}
	for i, tt := range wantTypes {
		if trans[i].Type != tt {
			t.Errorf("transaction[%d].Type = %s, want %s", i, trans[i].Type, tt)
		}
	}

	all, err := client.ListAccounts(ctx, "")
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListAccounts returned %d accounts, want 2", len(all))
	}
	byName, err := client.ListAccounts(ctx, "Bob")
	if err != nil {
		t.Fatalf("ListAccounts(Bob): %v", err)
	}
	if len(byName) != 1 || byName[0].ID != bob.ID {
		t.Errorf("ListAccounts(Bob) = %+v", byName)
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	client, _, _ := startServer(t)
	ctx := testContext(t)

	acct, err := client.CreateAccount(ctx, "Carol", "1111")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	tests := []struct {
		name     string
		call     func() error
		sentinel error
		code     codes.Code
	}{
		{
			name: "invalid name",
			call: func() error {
				_, err := client.CreateAccount(ctx, "Bad!Name", "1111")
				return err
			},
			sentinel: domain.ErrInvalidName,
			code:     codes.InvalidArgument,
		},
		{
			name: "malformed pin on create",
			call: func() error {
				_, err := client.CreateAccount(ctx, "John Doe", "12a4")
				return err
			},
			sentinel: domain.ErrInvalidPin,
			code:     codes.InvalidArgument,
		},
		{
			name: "malformed pin on withdraw",
			call: func() error {
				_, err := client.Withdraw(ctx, acct.ID, "12a4", domain.MustParseMoney("1"))
				return err
			},
			sentinel: domain.ErrInvalidPin,
			code:     codes.Unauthenticated,
		},
		{
			name: "wrong pin",
			call: func() error {
				_, err := client.Withdraw(ctx, acct.ID, "9999", domain.MustParseMoney("1"))
				return err
			},
			sentinel: domain.ErrInvalidPin,
			code:     codes.Unauthenticated,
		},
		{
			name: "insufficient balance",
			call: func() error {
				_, err := client.Withdraw(ctx, acct.ID, "1111", domain.MustParseMoney("1"))
				return err
			},
			sentinel: domain.ErrInsufficientBalance,
			code:     codes.FailedPrecondition,
		},
		{
			name: "unknown account",
			call: func() error {
				_, err := client.GetAccount(ctx, 999)
				return err
			},
			sentinel: domain.ErrAccountNotFound,
			code:     codes.NotFound,
		},
		{
			name: "self transfer",
			call: func() error {
				_, err := client.Transfer(ctx, acct.ID, "1111", domain.MustParseMoney("1"), acct.ID)
				return err
			},
			sentinel: domain.ErrInvalidRequest,
			code:     codes.InvalidArgument,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("error = %v, want %v", err, tt.sentinel)
			}
			if got := status.Code(err); got != tt.code {
				t.Errorf("code = %s, want %s", got, tt.code)
			}
		})
	}
}

func TestServer_RejectsMalformedFields(t *testing.T) {
	_, conn, observer := startServer(t)
	ctx := testContext(t)

	in, err := structpb.NewStruct(map[string]any{"id": 1.5, "amount": "10"})
	if err != nil {
		t.Fatal(err)
	}
	err = conn.Invoke(ctx, "/"+ledgergrpc.ServiceName+"/"+ledgergrpc.MethodDeposit, in, new(structpb.Struct))
	if got := status.Code(err); got != codes.InvalidArgument {
		t.Fatalf("code = %s, want InvalidArgument (err = %v)", got, err)
	}

	calls := observer.snapshot()
	if len(calls) != 1 {
		t.Fatalf("observed %d calls, want 1", len(calls))
	}
	if calls[0].method != ledgergrpc.MethodDeposit || calls[0].code != codes.InvalidArgument.String() {
		t.Errorf("observed %+v", calls[0])
	}
}

func TestServer_AcceptsNumericAmount(t *testing.T) {
	client, conn, _ := startServer(t)
	ctx := testContext(t)

	acct, err := client.CreateAccount(ctx, "Dave", "2222")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	in, err := structpb.NewStruct(map[string]any{"id": acct.ID, "amount": 12.25})
	if err != nil {
		t.Fatal(err)
	}
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, "/"+ledgergrpc.ServiceName+"/"+ledgergrpc.MethodDeposit, in, out); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if got := out.GetFields()["balance"].GetStringValue(); got != domain.MustParseMoney("12.25").String() {
		t.Errorf("balance = %q", got)
	}
}
