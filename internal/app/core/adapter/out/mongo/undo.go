package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// undoAction 還原一次寫入
type undoAction func(ctx context.Context, s *Store) error

// undoLog 依寫入順序記錄還原動作
type undoLog struct {
	actions []undoAction
	// seen: 同一帳戶只需還原到第一次寫入前的狀態
	seen map[int64]bool
}

// recordAccount previous 為 nil 代表帳戶是新建的，還原時刪除
func (u *undoLog) recordAccount(id int64, previous *accountDoc) {
	if u.seen == nil {
		u.seen = make(map[int64]bool)
	}
	if u.seen[id] {
		return
	}
	u.seen[id] = true

	if previous == nil {
		u.actions = append(u.actions, func(ctx context.Context, s *Store) error {
			_, err := s.accounts.DeleteOne(ctx, bson.M{"_id": id})
			return err
		})
		return
	}
	doc := *previous
	u.actions = append(u.actions, func(ctx context.Context, s *Store) error {
		_, err := s.accounts.ReplaceOne(ctx, bson.M{"_id": id}, &doc)
		return err
	})
}

func (u *undoLog) recordTransaction(id string) {
	u.actions = append(u.actions, func(ctx context.Context, s *Store) error {
		_, err := s.transactions.DeleteOne(ctx, bson.M{"_id": id})
		return err
	})
}

// compensate 依相反順序執行所有還原動作，回傳所有失敗
func (u *undoLog) compensate(ctx context.Context, s *Store) error {
	var errs []error
	for i := len(u.actions) - 1; i >= 0; i-- {
		if err := u.actions[i](ctx, s); err != nil {
			errs = append(errs, fmt.Errorf("undo step %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
