package mysql

import (
	"context"
	"errors"
	"strings"
	"testing"

	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// offlineDB 不會真的連線的 *gorm.DB，只用來產生 SQL
func offlineDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		DSN:                       "ledger:ledger@tcp(127.0.0.1:3306)/ledger?parseTime=True&loc=UTC",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Discard,
	})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	return db
}

func TestFindByIDLocksRowsOnlyInsideTransaction(t *testing.T) {
	db := offlineDB(t)

	tests := []struct {
		desc      string
		inTx      bool
		forUpdate bool
	}{
		{"outside transaction", false, false},
		{"inside transaction", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			s := &Store{db: db, inTx: tt.inTx}
			sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
				var row sqlAccount
				return s.accountByID(tx, 7).First(&row)
			})
			if !strings.Contains(sql, "`accounts`") || !strings.Contains(sql, "id = 7") {
				t.Fatalf("unexpected sql %q", sql)
			}
			if got := strings.HasSuffix(sql, "FOR UPDATE"); got != tt.forUpdate {
				t.Fatalf("sql %q: FOR UPDATE = %v, want %v", sql, got, tt.forUpdate)
			}
		})
	}
}

func TestWithTransactionJoinsOuterTransaction(t *testing.T) {
	outer := &Store{db: offlineDB(t), inTx: true}
	want := errors.New("rollback")

	var got usecase.Store
	err := outer.WithTransaction(context.Background(), func(tx usecase.Store) error {
		got = tx
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want the callback error unchanged", err)
	}
	if got != usecase.Store(outer) {
		t.Fatal("nested WithTransaction must reuse the outer transaction")
	}
}
