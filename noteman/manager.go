// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package noteman tracks confirmed and pending notes for one wallet,
// handles epoch-relative expiry classification, and selects notes to
// spend or renew.
package noteman

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/luxfi/log"

	"github.com/luxfi/shieldpool/notes"
)

// WarningEpochs is how many epochs before expiry a note is classified
// "expiring".
const WarningEpochs = 2

var (
	ErrInsufficientBalance   = errors.New("noteman: insufficient balance")
	ErrInsufficientNoteCount = errors.New("noteman: fewer unspent notes than requested minimum")
	ErrNoteNotFound          = errors.New("noteman: no matching note")
)

// PersistFunc is called to flush the manager's state to durable storage.
// Implementations live in the store package; noteman only depends on this
// function shape to stay decoupled from any particular backend.
type PersistFunc func(ctx context.Context) error

// BalanceInfo is the structured balance breakdown returned by BalanceInfo.
// Spendable + Pending + Expiring == Total.
type BalanceInfo struct {
	Total     uint64
	Spendable uint64
	Pending   uint64
	Expiring  uint64
	Expired   uint64

	ConfirmedCount int
	PendingCount   int
	ExpiredCount   int
}

// Manager holds the confirmed and pending note tables for one wallet.
type Manager struct {
	mu sync.Mutex

	confirmed map[[32]byte]*notes.Note
	pending   map[[32]byte]*notes.Note

	nullifierKey [32]byte
	currentEpoch uint64
	expiryEpochs uint64

	persist  PersistFunc
	debounce time.Duration
	timer    *time.Timer
	dirty    bool

	log log.Logger
}

// New constructs an empty Manager. expiryEpochs is the number of epochs a
// note may age past current_epoch before it is considered expired
// (expiry_slots / epoch_duration_slots in the caller's chain-time units).
// persist may be nil, in which case mutations never schedule a save.
func New(nullifierKey [32]byte, expiryEpochs uint64, persist PersistFunc, debounce time.Duration, logger log.Logger) *Manager {
	return &Manager{
		confirmed:    make(map[[32]byte]*notes.Note),
		pending:      make(map[[32]byte]*notes.Note),
		nullifierKey: nullifierKey,
		expiryEpochs: expiryEpochs,
		persist:      persist,
		debounce:     debounce,
		log:          logger,
	}
}

// AddConfirmed records note as confirmed. Idempotent on commitment: if a
// matching commitment already exists, missing epoch/leaf_index are filled
// in. Any matching pending note is removed. If epoch and leaf_index both
// become set as a result, the nullifier is recomputed.
func (m *Manager) AddConfirmed(n *notes.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.confirmed[n.Commitment]
	if !ok {
		stored := n.Clone()
		m.confirmed[n.Commitment] = stored
		delete(m.pending, n.Commitment)
		if err := m.maybeRecomputeNullifierLocked(stored); err != nil {
			return err
		}
		m.markDirtyLocked()
		return nil
	}

	if existing.Epoch == nil && n.Epoch != nil {
		existing.Epoch = n.Epoch
	}
	if existing.LeafIndex == nil && n.LeafIndex != nil {
		existing.LeafIndex = n.LeafIndex
	}
	delete(m.pending, n.Commitment)
	if err := m.maybeRecomputeNullifierLocked(existing); err != nil {
		return err
	}
	m.markDirtyLocked()
	return nil
}

func (m *Manager) maybeRecomputeNullifierLocked(n *notes.Note) error {
	if n.Epoch == nil || n.LeafIndex == nil || n.NullifierSet {
		return nil
	}
	return n.RecomputeNullifier(m.nullifierKey)
}

// AddPending records note as pending, idempotent on commitment.
func (m *Manager) AddPending(n *notes.Note) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pending[n.Commitment]; ok {
		return
	}
	m.pending[n.Commitment] = n.Clone()
	m.markDirtyLocked()
}

// MarkSpent sets spent=true on the confirmed note with the given
// commitment.
func (m *Manager) MarkSpent(commitment [32]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.confirmed[commitment]
	if !ok {
		return ErrNoteNotFound
	}
	n.Spent = true
	m.markDirtyLocked()
	return nil
}

// MarkSpentByNullifier sets spent=true on the first confirmed note whose
// nullifier matches. If epoch is non-nil, only notes with a matching epoch
// are considered.
func (m *Manager) MarkSpentByNullifier(nullifier [32]byte, epoch *uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.confirmed {
		if !n.NullifierSet || n.Nullifier != nullifier {
			continue
		}
		if epoch != nil && (n.Epoch == nil || *n.Epoch != *epoch) {
			continue
		}
		n.Spent = true
		m.markDirtyLocked()
		return nil
	}
	return ErrNoteNotFound
}

// CreateNote builds a fresh note with uniform randomness, tentatively
// tagged with the manager's current epoch. Its nullifier is left unset
// until confirmation assigns epoch and leaf_index.
func (m *Manager) CreateNote(value uint64, token notes.AssetId, owner notes.ShieldedAddress) (*notes.Note, error) {
	var randomness [32]byte
	if _, err := io.ReadFull(rand.Reader, randomness[:]); err != nil {
		return nil, err
	}

	n := notes.New(value, token, owner, randomness, "")

	m.mu.Lock()
	epoch := m.currentEpoch
	m.mu.Unlock()
	n.Epoch = &epoch

	return n, nil
}

// SetCurrentEpoch adjusts the manager's view of the current epoch, which
// shifts which notes are classified expiring or expired.
func (m *Manager) SetCurrentEpoch(e uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentEpoch = e
	m.markDirtyLocked()
}

func (m *Manager) classify(n *notes.Note) (expiring, expired bool) {
	if n.Epoch == nil {
		return false, false
	}
	age := int64(m.currentEpoch) - int64(*n.Epoch)
	if age < 0 {
		return false, false
	}
	if m.expiryEpochs > 0 && uint64(age) >= m.expiryEpochs {
		return false, true
	}
	if uint64(age) >= m.expiryEpochs-WarningEpochs && m.expiryEpochs > WarningEpochs {
		return true, false
	}
	return false, false
}

// SelectForSpend greedily selects unspent, non-expired confirmed notes,
// ordered by ascending epoch (oldest first) then descending value, until
// the cumulative sum reaches amount and the count reaches minNotes.
func (m *Manager) SelectForSpend(amount uint64, minNotes int) ([]*notes.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidates := m.spendableLocked()
	sort.Slice(candidates, func(i, j int) bool {
		ei, ej := epochOrMax(candidates[i]), epochOrMax(candidates[j])
		if ei != ej {
			return ei < ej
		}
		return candidates[i].Value > candidates[j].Value
	})

	var selected []*notes.Note
	var sum uint64
	for _, n := range candidates {
		selected = append(selected, n)
		sum += n.Value
		if sum >= amount && len(selected) >= minNotes {
			return selected, nil
		}
	}

	if sum < amount {
		return nil, ErrInsufficientBalance
	}
	return nil, ErrInsufficientNoteCount
}

// SelectForRenewal returns expiring notes ordered by ascending epoch,
// truncated to maxNotes.
func (m *Manager) SelectForRenewal(maxNotes int) []*notes.Note {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiring []*notes.Note
	for _, n := range m.confirmed {
		if n.Spent {
			continue
		}
		exp, _ := m.classify(n)
		if exp {
			expiring = append(expiring, n)
		}
	}
	sort.Slice(expiring, func(i, j int) bool {
		return epochOrMax(expiring[i]) < epochOrMax(expiring[j])
	})
	if len(expiring) > maxNotes {
		expiring = expiring[:maxNotes]
	}
	return expiring
}

func (m *Manager) spendableLocked() []*notes.Note {
	var out []*notes.Note
	for _, n := range m.confirmed {
		if n.Spent {
			continue
		}
		_, expired := m.classify(n)
		if expired {
			continue
		}
		out = append(out, n)
	}
	return out
}

func epochOrMax(n *notes.Note) uint64 {
	if n.Epoch == nil {
		return ^uint64(0)
	}
	return *n.Epoch
}

// Balance sums value over confirmed, non-spent, non-expired notes.
func (m *Manager) Balance() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total uint64
	for _, n := range m.spendableOrExpiringLocked() {
		total += n.Value
	}
	return total
}

func (m *Manager) spendableOrExpiringLocked() []*notes.Note {
	var out []*notes.Note
	for _, n := range m.confirmed {
		if n.Spent {
			continue
		}
		_, expired := m.classify(n)
		if expired {
			continue
		}
		out = append(out, n)
	}
	return out
}

// BalanceInfo returns the structured balance breakdown.
func (m *Manager) BalanceInfo() BalanceInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	var info BalanceInfo
	for _, n := range m.confirmed {
		if n.Spent {
			continue
		}
		expiring, expired := m.classify(n)
		switch {
		case expired:
			info.Expired += n.Value
			info.ExpiredCount++
		case expiring:
			info.Expiring += n.Value
			info.Total += n.Value
		default:
			info.Spendable += n.Value
			info.Total += n.Value
		}
	}
	for _, n := range m.pending {
		info.Total += n.Value
		info.Pending += n.Value
	}
	info.ConfirmedCount = len(m.confirmed)
	info.PendingCount = len(m.pending)
	return info
}

func (m *Manager) markDirtyLocked() {
	m.dirty = true
	if m.persist == nil {
		return
	}
	if m.debounce <= 0 {
		go m.flush()
		return
	}
	if m.timer == nil {
		m.timer = time.AfterFunc(m.debounce, m.flush)
		return
	}
	m.timer.Reset(m.debounce)
}

func (m *Manager) flush() {
	if err := m.PersistNow(context.Background()); err != nil {
		m.log.Warn("debounced note store save failed", "err", err)
	}
}

// PersistNow synchronously flushes state through the configured
// PersistFunc, clearing the dirty flag on success.
func (m *Manager) PersistNow(ctx context.Context) error {
	m.mu.Lock()
	persist := m.persist
	m.mu.Unlock()
	if persist == nil {
		return nil
	}
	if err := persist(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	m.dirty = false
	m.mu.Unlock()
	return nil
}

// Get returns the confirmed note for commitment, if any.
func (m *Manager) Get(commitment [32]byte) (*notes.Note, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.confirmed[commitment]
	return n, ok
}

// GetPending returns the pending note for commitment, if any.
func (m *Manager) GetPending(commitment [32]byte) (*notes.Note, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.pending[commitment]
	return n, ok
}

// Confirmed returns a snapshot slice of all confirmed notes, for store
// serialization.
func (m *Manager) Confirmed() []*notes.Note {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*notes.Note, 0, len(m.confirmed))
	for _, n := range m.confirmed {
		out = append(out, n)
	}
	return out
}

// Pending returns a snapshot slice of all pending notes, for store
// serialization.
func (m *Manager) Pending() []*notes.Note {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*notes.Note, 0, len(m.pending))
	for _, n := range m.pending {
		out = append(out, n)
	}
	return out
}

// CurrentEpoch returns the manager's current epoch view.
func (m *Manager) CurrentEpoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentEpoch
}
