package wal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

type record struct {
	Seq  int    `json:"seq"`
	Note string `json:"note"`
}

func TestAppendAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.wal")

	w, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for i := 1; i <= 3; i++ {
		if err := w.Append(record{Seq: i, Note: "r"}); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	w, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer w.Close()

	var got []record
	err = w.Replay(func(raw []byte) error {
		var r record
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		got = append(got, r)
		return nil
	})
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("replayed %d records, want 3", len(got))
	}
	for i, r := range got {
		if r.Seq != i+1 {
			t.Errorf("record %d seq = %d, want %d", i, r.Seq, i+1)
		}
	}
}

func TestReplayIgnoresTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")
	content := `{"seq":1,"note":"ok"}` + "\n" + `{"seq":2,"no`
	if err := os.WriteFile(path, []byte(content), FileModePrivate); err != nil {
		t.Fatal(err)
	}
	w, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	count := 0
	if err := w.Replay(func([]byte) error { count++; return nil }); err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("replayed %d records, want 1", count)
	}
}

func TestReplayRejectsCorruptMiddle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")
	content := `{"seq":1}` + "\n" + `garbage` + "\n" + `{"seq":3}` + "\n"
	if err := os.WriteFile(path, []byte(content), FileModePrivate); err != nil {
		t.Fatal(err)
	}
	w, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Replay(func([]byte) error { return nil }); err == nil {
		t.Fatal("expected error for corrupt record")
	}
}
