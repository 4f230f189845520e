package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// lockTable 每個帳戶一把互斥鎖 (weight 1 的 semaphore)，用 id 查表
// 以參考計數管理: 沒有人持有或等待時就移除，表的大小只取決於進行中的操作
type lockTable struct {
	mu    sync.Mutex
	locks map[int64]*lockEntry
}

type lockEntry struct {
	sem *semaphore.Weighted
	// refs: 持有加上等待中的數量，只在 lockTable.mu 下修改
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[int64]*lockEntry)}
}

// ref 取得 id 的鎖並增加參考計數，用完必須呼叫 unref
func (t *lockTable) ref(id int64) *semaphore.Weighted {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.locks[id]
	if !ok {
		entry = &lockEntry{sem: semaphore.NewWeighted(1)}
		t.locks[id] = entry
	}
	entry.refs++
	return entry.sem
}

func (t *lockTable) unref(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.locks[id]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(t.locks, id)
	}
}

// size 目前表內的鎖數量
func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}

// lockIDs 由小到大排序並去除重複，所有多帳戶操作都以這個順序取鎖，避免死鎖
func lockIDs(ids ...int64) []int64 {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}

// acquire 依序取得 ids 的鎖，最多等待 timeout
//
// 回傳:
//
//	func(): 釋放所有已取得的鎖
//	error: 逾時回傳 domain.ErrBusy；ctx 先被取消則回傳 ctx 的錯誤
func (t *lockTable) acquire(ctx context.Context, timeout time.Duration, ids ...int64) (func(), error) {
	ordered := lockIDs(ids...)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type heldLock struct {
		id  int64
		sem *semaphore.Weighted
	}
	held := make([]heldLock, 0, len(ordered))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].sem.Release(1)
			t.unref(held[i].id)
		}
		held = nil
	}

	for _, id := range ordered {
		sem := t.ref(id)
		if err := sem.Acquire(waitCtx, 1); err != nil {
			t.unref(id)
			release()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: waited %s for account %d", domain.ErrBusy, timeout, id)
			}
			return nil, err
		}
		held = append(held, heldLock{id: id, sem: sem})
	}
	return release, nil
}
