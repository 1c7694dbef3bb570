// Package strikes implements spec.md §4.5's StrikeLedger: an atomic
// per-user strike counter persisted to data_dir/strikes.json, generalized
// from the teacher's gorm-backed BansRepository to a flat JSON file since
// spec.md's data model has no relational store.
package strikes

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"claudir/sources/platform"
	"claudir/sources/tracing"
)

var (
	ErrNotFound = errors.New("strike record not found")
)

// Record mirrors spec.md §3's StrikeRecord.
type Record struct {
	User   platform.UserID `json:"user"`
	Count  uint            `json:"count"`
	LastAt time.Time       `json:"last_at"`
}

// Ledger is the in-memory map guarded by a mutex, flushed to disk after
// every mutation. Grounded on sources/repository/bans.go's structured
// logging/ProfilePoint idiom, generalized off gorm onto a flat file.
type Ledger struct {
	mu         sync.Mutex
	records    map[platform.UserID]*Record
	path       string
	maxStrikes uint
	log        *tracing.Logger
}

// New loads an existing ledger from dataDir/strikes.json if present, or
// starts empty.
func New(dataDir string, maxStrikes int, log *tracing.Logger) (*Ledger, error) {
	l := &Ledger{
		records:    map[platform.UserID]*Record{},
		path:       filepath.Join(dataDir, "strikes.json"),
		maxStrikes: uint(maxStrikes),
		log:        log,
	}

	if err := l.load(); err != nil {
		return nil, err
	}

	return l, nil
}

func (l *Ledger) load() error {
	content, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var records []*Record
	if err := json.Unmarshal(content, &records); err != nil {
		return err
	}

	for _, r := range records {
		l.records[r.User] = r
	}

	return nil
}

// save persists the ledger via write-temp-then-rename, matching spec.md
// §4.5's explicit persistence requirement and the teacher's general
// preference for crash-safe file writes.
func (l *Ledger) save() error {
	records := make([]*Record, 0, len(l.records))
	for _, r := range l.records {
		records = append(records, r)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, l.path)
}

// RecordSpam atomically increments user's strike count and reports
// whether this increment crosses max_strikes for the first time.
// Idempotent past the threshold: subsequent strikes never re-ban.
func (l *Ledger) RecordSpam(user platform.UserID) (newCount uint, shouldBan bool, err error) {
	defer tracing.ProfilePoint(l.log, "strike recorded", "strikes.record", tracing.UserId, user)()

	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.records[user]
	if !ok {
		r = &Record{User: user}
		l.records[user] = r
	}

	r.Count++
	r.LastAt = time.Now().UTC()

	if err := l.save(); err != nil {
		l.log.E("failed to persist strike ledger", tracing.InnerError, err)
		return r.Count, false, err
	}

	shouldBan = r.Count == l.maxStrikes
	l.log.I("strike recorded", tracing.UserId, user, tracing.StrikeCount, r.Count, tracing.BanIssued, shouldBan)

	return r.Count, shouldBan, nil
}

// Clear resets user's strike count. Administrative operation.
func (l *Ledger) Clear(user platform.UserID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.records[user]; !ok {
		return ErrNotFound
	}

	delete(l.records, user)
	return l.save()
}

// Count returns the current strike count for user, 0 if never recorded.
func (l *Ledger) Count(user platform.UserID) uint {
	l.mu.Lock()
	defer l.mu.Unlock()

	if r, ok := l.records[user]; ok {
		return r.Count
	}
	return 0
}
