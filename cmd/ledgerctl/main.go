package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	grpc_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	grpcpool "github.com/JoeShih716/go-bank-ledger/pkg/grpc"
)

// ledgerctl 透過 gRPC 對帳務服務做壓力測試:
// 建立帳戶、存入初始金額、併發互轉，最後確認總額不變且沒有負餘額
func main() {
	var (
		addr        = flag.String("addr", "localhost:50051", "ledger gRPC address")
		accounts    = flag.Int("accounts", 10, "number of accounts to create")
		transfers   = flag.Int("transfers", 10000, "total number of transfers")
		concurrency = flag.Int("concurrency", 100, "concurrent workers")
		initial     = flag.String("initial", "1000", "initial deposit per account")
		amount      = flag.String("amount", "1.25", "amount per transfer")
		timeout     = flag.Duration("timeout", 2*time.Minute, "overall timeout")
	)
	flag.Parse()

	initialAmount, err := domain.ParseMoney(*initial)
	if err != nil {
		log.Fatalf("invalid -initial: %v", err)
	}
	transferAmount, err := domain.ParseMoney(*amount)
	if err != nil {
		log.Fatalf("invalid -amount: %v", err)
	}
	if *accounts < 2 {
		log.Fatal("-accounts must be at least 2")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool := grpcpool.NewPool()
	defer pool.Close()
	conn, err := pool.GetConnection(*addr)
	if err != nil {
		log.Fatalf("connect %s: %v", *addr, err)
	}
	client := grpc_adapter.NewClient(conn)

	ids, err := setup(ctx, client, *accounts, initialAmount)
	if err != nil {
		log.Fatalf("setup: %v", err)
	}

	res := runTransfers(ctx, client, ids, *transfers, *concurrency, transferAmount)
	fmt.Printf("Completed %d transfers in %v\n", *transfers, res.elapsed)
	fmt.Printf("TPS: %.2f\n", float64(*transfers)/res.elapsed.Seconds())
	fmt.Printf("ok=%d busy=%d insufficient=%d failed=%d\n", res.ok.Load(), res.busy.Load(), res.insufficient.Load(), res.failed.Load())

	if err := verify(ctx, client, ids, initialAmount); err != nil {
		fmt.Fprintf(os.Stderr, "verification failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Verification passed: total balance conserved, no negative balances")
}

const pin = "1234"

func setup(ctx context.Context, client *grpc_adapter.Client, n int, initial domain.Money) ([]int64, error) {
	ids := make([]int64, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(16)
	for i := range n {
		g.Go(func() error {
			acct, err := client.CreateAccount(gctx, fmt.Sprintf("Load Test %d", i), pin)
			if err != nil {
				return fmt.Errorf("create account %d: %w", i, err)
			}
			if _, err := client.Deposit(gctx, acct.ID, initial); err != nil {
				return fmt.Errorf("deposit to %d: %w", acct.ID, err)
			}
			ids[i] = acct.ID
			return nil
		})
	}
	return ids, g.Wait()
}

type result struct {
	elapsed                        time.Duration
	ok, busy, insufficient, failed atomic.Int64
}

func runTransfers(ctx context.Context, client *grpc_adapter.Client, ids []int64, total, concurrency int, amount domain.Money) *result {
	res := &result{}
	jobs := make(chan struct{})
	var wg sync.WaitGroup

	start := time.Now()
	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				from := ids[rand.IntN(len(ids))]
				to := ids[rand.IntN(len(ids))]
				for to == from {
					to = ids[rand.IntN(len(ids))]
				}
				_, err := client.Transfer(ctx, from, pin, amount, to)
				switch {
				case err == nil:
					res.ok.Add(1)
				case errors.Is(err, domain.ErrBusy):
					res.busy.Add(1)
				case errors.Is(err, domain.ErrInsufficientBalance):
					res.insufficient.Add(1)
				default:
					if res.failed.Add(1) <= 10 {
						log.Printf("transfer %d -> %d failed: %v", from, to, err)
					}
				}
			}
		}()
	}
	for range total {
		jobs <- struct{}{}
	}
	close(jobs)
	wg.Wait()
	res.elapsed = time.Since(start)
	return res
}

func verify(ctx context.Context, client *grpc_adapter.Client, ids []int64, initial domain.Money) error {
	total := domain.Zero
	for _, id := range ids {
		acct, err := client.GetAccount(ctx, id)
		if err != nil {
			return fmt.Errorf("get account %d: %w", id, err)
		}
		if acct.Balance.IsNegative() {
			return fmt.Errorf("account %d has negative balance %s", id, acct.Balance)
		}
		total = total.Add(acct.Balance)
	}
	want := domain.Zero
	for range ids {
		want = want.Add(initial)
	}
	if !total.Equal(want) {
		return fmt.Errorf("total balance %s, want %s", total, want)
	}
	return nil
}
