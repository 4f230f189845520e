package wal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const (
	// rw------- WAL 內含帳戶資料，只允許擁有者讀寫
	FileModePrivate fs.FileMode = 0600
	// rwxr-xr-x WAL 所在目錄
	DirModeDefault fs.FileMode = 0755
)

// WAL 以 JSON Lines 格式追加寫入的 Write-Ahead Log
// 每次 Append 都會 fsync，回傳 nil 代表資料已落盤
type WAL struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// Open 開啟或建立 WAL 檔案 (目錄不存在時一併建立)
//
// O_APPEND 每次寫入時自動跳到檔案末尾
func Open(path string) (*WAL, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, DirModeDefault); err != nil {
			return nil, fmt.Errorf("create wal dir: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModePrivate)
	if err != nil {
		return nil, fmt.Errorf("open wal %s: %w", path, err)
	}
	return &WAL{file: file, path: path}, nil
}

// Path 檔案路徑
func (w *WAL) Path() string {
	return w.path
}

// Append 寫入一筆紀錄並 fsync
func (w *WAL) Append(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode wal record: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.file.Write(line); err != nil {
		return fmt.Errorf("write wal record: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync wal: %w", err)
	}
	return nil
}

// Replay 從頭依序讀出每一筆紀錄
//
// 檔案結尾若有一行不完整 (寫到一半當機)，視為未提交並忽略；
// 中間的損壞紀錄則回傳錯誤
func (w *WAL) Replay(fn func(raw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek wal: %w", err)
	}
	reader := bufio.NewReader(w.file)
	for n := 1; ; n++ {
		line, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			// 最後一行沒有換行: 未完成的寫入
			return nil
		}
		if err != nil {
			return fmt.Errorf("read wal: %w", err)
		}
		if !json.Valid(line) {
			return fmt.Errorf("corrupt wal record at line %d", n)
		}
		if err := fn(line); err != nil {
			return fmt.Errorf("replay wal line %d: %w", n, err)
		}
	}
}

// Close 關閉檔案
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
