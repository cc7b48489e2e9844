package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func openFileLog(t *testing.T, path string) (*Log, *FileStore) {
	t.Helper()
	store, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("failed to open file store: %v", err)
	}
	log, err := Open(context.Background(), store)
	if err != nil {
		t.Fatalf("failed to open log: %v", err)
	}
	return log, store
}

func TestFileStore_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, _ := openFileLog(t, path)

	for _, guard := range []string{"email", "phone"} {
		if _, err := log.Append(context.Background(), Record{
			RunID:       "run-1",
			GuardID:     guard,
			EntityKinds: []string{guard},
			Severities:  []string{"high"},
			Action:      ActionMasked,
		}); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	_ = log.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	defer f.Close()

	var lines []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("failed to parse log line as JSON: %v", err)
		}
		lines = append(lines, m)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for _, key := range []string{"sequence_no", "timestamp", "run_id", "guard_id", "entity_kinds", "severities", "action_taken", "prev_hash", "entry_hash"} {
		if _, ok := lines[1][key]; !ok {
			t.Errorf("line missing %q: %v", key, lines[1])
		}
	}
	if lines[1]["prev_hash"] != lines[0]["entry_hash"] {
		t.Error("second line does not chain onto the first")
	}
}

func TestFileStore_ReopenContinuesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, _ := openFileLog(t, path)
	for range 3 {
		if _, err := log.Append(context.Background(), Record{GuardID: "g", Action: ActionNone}); err != nil {
			t.Fatal(err)
		}
	}
	_ = log.Close()

	log, _ = openFileLog(t, path)
	defer log.Close()
	e, err := log.Append(context.Background(), Record{GuardID: "g", Action: ActionNone})
	if err != nil {
		t.Fatal(err)
	}
	if e.Sequence != 3 {
		t.Errorf("expected sequence 3 after reopen, got %d", e.Sequence)
	}

	res, err := log.Verify(context.Background(), All)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Valid || res.Checked != 4 {
		t.Errorf("expected 4 valid entries, got %+v", res)
	}
}

func TestFileStore_DropsTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, _ := openFileLog(t, path)
	for range 2 {
		if _, err := log.Append(context.Background(), Record{GuardID: "g", Action: ActionNone}); err != nil {
			t.Fatal(err)
		}
	}
	_ = log.Close()

	// Simulate a crash midway through a write.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString(`{"sequence_no":2,"timest`)
	_ = f.Close()

	log, store := openFileLog(t, path)
	defer log.Close()
	if log.Head() != 2 {
		t.Fatalf("expected head 2 after recovery, got %d", log.Head())
	}

	if _, err := log.Append(context.Background(), Record{GuardID: "g", Action: ActionNone}); err != nil {
		t.Fatalf("append after recovery failed: %v", err)
	}
	res, err := log.Verify(context.Background(), All)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Valid || res.Checked != 3 {
		t.Errorf("expected 3 valid entries after recovery, got %+v", res)
	}

	data, _ := os.ReadFile(store.Path())
	for i, line := range strings.Split(strings.TrimSuffix(string(data), "\n"), "\n") {
		if !json.Valid([]byte(line)) {
			t.Errorf("line %d is not valid JSON after recovery: %q", i, line)
		}
	}
}

func TestFileStore_DetectsEditedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, _ := openFileLog(t, path)
	for range 4 {
		if _, err := log.Append(context.Background(), Record{GuardID: "phone", Action: ActionBlocked}); err != nil {
			t.Fatal(err)
		}
	}
	_ = log.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.SplitAfter(string(data), "\n")
	lines[2] = strings.Replace(lines[2], `"action_taken":"blocked"`, `"action_taken":"none"`, 1)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "")), 0600); err != nil {
		t.Fatal(err)
	}

	log, _ = openFileLog(t, path)
	defer log.Close()
	res, err := log.Verify(context.Background(), All)
	if err != nil {
		t.Fatal(err)
	}
	if res.Valid {
		t.Fatal("expected verification to fail")
	}
	if res.BrokenAt != 2 {
		t.Errorf("expected break at 2, got %d", res.BrokenAt)
	}
}

func TestFileStore_RejectsOutOfOrder(t *testing.T) {
	store, err := OpenFileStore(filepath.Join(t.TempDir(), "audit.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if err := store.Append(context.Background(), Entry{Sequence: 1}); err == nil {
		t.Fatal("expected out of order append to fail")
	}
	if _, ok, _ := store.Tail(context.Background()); ok {
		t.Error("rejected append must not change the tail")
	}
}

func TestFileStore_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "audit.jsonl")
	store, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("expected directory to be created: %v", err)
	}
	_ = store.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600 permissions, got %o", perm)
	}
}

func TestFileStore_ReadsLargeEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, _ := openFileLog(t, path)
	ctx := context.Background()

	kinds := make([]string, 200_000)
	for i := range kinds {
		kinds[i] = "email"
	}
	for _, rec := range []Record{
		{RunID: "run-1", GuardID: "email", EntityKinds: kinds, Action: ActionMasked},
		{RunID: "run-1", GuardID: "phone", Action: ActionNone},
	} {
		if _, err := log.Append(ctx, rec); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Size() <= 1<<20 {
		t.Fatalf("expected a trail over 1 MiB, got %d bytes", info.Size())
	}
	_ = log.Close()

	log, _ = openFileLog(t, path)
	defer log.Close()
	res, err := log.Verify(ctx, All)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !res.Valid || res.Checked != 2 {
		t.Errorf("verify = %+v, want 2 valid entries", res)
	}
	entries, err := log.Entries(ctx, All)
	if err != nil {
		t.Fatalf("entries failed: %v", err)
	}
	if len(entries) != 2 || len(entries[0].EntityKinds) != len(kinds) || entries[1].GuardID != "phone" {
		t.Errorf("unexpected entries read back: %d", len(entries))
	}
}
