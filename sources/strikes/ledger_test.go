package strikes

import (
	"os"
	"path/filepath"
	"testing"

	"claudir/sources/platform"
	"claudir/sources/tracing"
)

func newTestLedger(t *testing.T, maxStrikes int) *Ledger {
	t.Helper()
	l, err := New(t.TempDir(), maxStrikes, tracing.NewConsoleLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l
}

func TestRecordSpamMonotonicAndBanOnThreshold(t *testing.T) {
	l := newTestLedger(t, 3)
	user := platform.UserID(42)

	var lastCount uint
	for i := 1; i <= 5; i++ {
		count, shouldBan, err := l.RecordSpam(user)
		if err != nil {
			t.Fatalf("RecordSpam() error = %v", err)
		}
		if count <= lastCount {
			t.Errorf("strike count not monotonic: %d <= %d", count, lastCount)
		}
		lastCount = count

		expectBan := count == 3
		if shouldBan != expectBan {
			t.Errorf("iteration %d: shouldBan = %v, expected %v (count=%d)", i, shouldBan, expectBan, count)
		}
	}

	if got := l.Count(user); got != 5 {
		t.Errorf("Count() = %d, expected 5", got)
	}
}

func TestRecordSpamPersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	log := tracing.NewConsoleLogger()

	l1, err := New(dir, 3, log)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, _, err := l1.RecordSpam(platform.UserID(7)); err != nil {
		t.Fatalf("RecordSpam() error = %v", err)
	}

	l2, err := New(dir, 3, log)
	if err != nil {
		t.Fatalf("New() (reload) error = %v", err)
	}
	if got := l2.Count(platform.UserID(7)); got != 1 {
		t.Errorf("Count() after reload = %d, expected 1", got)
	}
}

func TestSaveWritesTempThenRenames(t *testing.T) {
	dir := t.TempDir()
	l := newTestLedger(t, 3)
	l.path = filepath.Join(dir, "strikes.json")

	if _, _, err := l.RecordSpam(platform.UserID(1)); err != nil {
		t.Fatalf("RecordSpam() error = %v", err)
	}

	if _, err := os.Stat(l.path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file %s.tmp should not survive a successful save", l.path)
	}
	if _, err := os.Stat(l.path); err != nil {
		t.Errorf("final file %s missing: %v", l.path, err)
	}
}

func TestClearRemovesRecord(t *testing.T) {
	l := newTestLedger(t, 3)
	user := platform.UserID(9)

	if _, _, err := l.RecordSpam(user); err != nil {
		t.Fatalf("RecordSpam() error = %v", err)
	}
	if err := l.Clear(user); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if got := l.Count(user); got != 0 {
		t.Errorf("Count() after Clear = %d, expected 0", got)
	}
	if err := l.Clear(user); err != ErrNotFound {
		t.Errorf("Clear() on already-cleared user = %v, expected ErrNotFound", err)
	}
}
