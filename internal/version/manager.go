package version

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"fablecraft/loom/internal/analysis"
	"fablecraft/loom/internal/manuscript"
)

// state of the reorder protocol
type state int

const (
	stateIdle state = iota
	statePreviewing
)

// ErrPreviewInProgress is returned by operations that are only valid while
// no reorder preview is pending
var ErrPreviewInProgress = fmt.Errorf("a reorder preview is in progress")

// ErrNoPreview is returned by ApplyReordering when nothing was previewed
var ErrNoPreview = fmt.Errorf("no reorder preview to apply")

// Manager maintains named snapshots of chapter orders for one manuscript,
// tracks the mutable current version, and runs advisory consistency previews
// during reordering. The engine holds no other global state: the host owns
// the Manager and passes manuscript snapshots in.
type Manager struct {
	mu       sync.Mutex
	snap     *manuscript.Snapshot
	cfg      *analysis.Config
	versions map[string]*Version
	order    []string // version ids in creation order
	current  string
	base     string

	state         state
	pendingOrder  []string
	previewSeq    uint64
	previewChecks []analysis.Check

	logf func(format string, args ...any)
	now  func() time.Time
}

// NewManager builds a Manager whose base version is the manuscript's
// authored chapter order
func NewManager(snap *manuscript.Snapshot, cfg *analysis.Config) *Manager {
	if cfg == nil {
		cfg = analysis.DefaultConfig()
	}
	m := &Manager{
		snap:     snap,
		cfg:      cfg,
		versions: make(map[string]*Version),
		logf: func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		},
		now: time.Now,
	}
	base := &Version{
		ID:           uuid.NewString(),
		Name:         "Original",
		Description:  "Manuscript as authored",
		ChapterOrder: snap.AuthoredOrder(),
		Created:      m.now(),
		IsBase:       true,
		Changes:      []Change{},
	}
	m.versions[base.ID] = base
	m.order = append(m.order, base.ID)
	m.current = base.ID
	m.base = base.ID
	return m
}

// Restore loads previously persisted versions into a fresh Manager, keeping
// currentID as the working version. Exactly one version must be the base.
func Restore(snap *manuscript.Snapshot, cfg *analysis.Config, versions []*Version, currentID string) (*Manager, error) {
	if cfg == nil {
		cfg = analysis.DefaultConfig()
	}
	m := &Manager{
		snap:     snap,
		cfg:      cfg,
		versions: make(map[string]*Version),
		logf: func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		},
		now: time.Now,
	}
	for _, v := range versions {
		m.versions[v.ID] = v.clone()
		m.order = append(m.order, v.ID)
		if v.IsBase {
			if m.base != "" {
				return nil, fmt.Errorf("restoring versions: multiple base versions")
			}
			m.base = v.ID
		}
	}
	if m.base == "" {
		return nil, fmt.Errorf("restoring versions: no base version")
	}
	if _, ok := m.versions[currentID]; !ok {
		return nil, &VersionNotFoundError{ID: currentID}
	}
	m.current = currentID
	return m, nil
}

// CurrentVersion returns a copy of the current working version
func (m *Manager) CurrentVersion() *Version {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versions[m.current].clone()
}

// BaseVersion returns a copy of the base version. The base is never deleted.
func (m *Manager) BaseVersion() *Version {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versions[m.base].clone()
}

// Versions returns copies of all versions in creation order
func (m *Manager) Versions() []*Version {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Version, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.versions[id].clone())
	}
	return out
}

// CreateVersion clones the current version's order into a new named version
// and switches current to it
func (m *Manager) CreateVersion(ctx context.Context, name, description string) (*Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != stateIdle {
		return nil, ErrPreviewInProgress
	}
	cur := m.versions[m.current]
	v := &Version{
		ID:           uuid.NewString(),
		Name:         name,
		Description:  description,
		ChapterOrder: append([]string(nil), cur.ChapterOrder...),
		Created:      m.now(),
		ParentID:     cur.ID,
		Changes:      []Change{},
	}
	m.versions[v.ID] = v
	m.order = append(m.order, v.ID)
	m.current = v.ID
	return v.clone(), nil
}

// SwitchVersion replaces the current version pointer. Only valid while Idle;
// unknown ids fail with VersionNotFoundError rather than falling back to base.
func (m *Manager) SwitchVersion(ctx context.Context, id string) (*Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != stateIdle {
		return nil, ErrPreviewInProgress
	}
	v, ok := m.versions[id]
	if !ok {
		return nil, &VersionNotFoundError{ID: id}
	}
	m.current = id
	return v.clone(), nil
}

// PreviewReordering analyzes a candidate order without mutating any version.
// Rapid successive previews may overlap; only the latest requested preview's
// result stays authoritative (by request sequence number, not completion
// time). An analyzer failure degrades to empty diagnostics with a logged
// warning: consistency checking is advisory and never blocks the reorder.
func (m *Manager) PreviewReordering(ctx context.Context, candidate []string) ([]analysis.Check, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.snap.ValidateOrder(candidate); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.state = statePreviewing
	m.pendingOrder = append([]string(nil), candidate...)
	m.previewSeq++
	seq := m.previewSeq
	snap, cfg := m.snap, m.cfg
	m.mu.Unlock()

	checks := m.runAdvisoryAnalysis(snap, candidate, cfg)

	m.mu.Lock()
	defer m.mu.Unlock()
	// A later preview superseded this one while it ran; discard the result
	if m.state == statePreviewing && seq == m.previewSeq {
		m.previewChecks = checks
	}
	return checks, nil
}

// runAdvisoryAnalysis contains the analyzer panic firewall: a preview
// failure means "preview unavailable", not a blocked drag interaction
func (m *Manager) runAdvisoryAnalysis(snap *manuscript.Snapshot, order []string, cfg *analysis.Config) (checks []analysis.Check) {
	defer func() {
		if r := recover(); r != nil {
			m.logf("loom: preview analysis failed, diagnostics unavailable: %v", r)
			checks = []analysis.Check{}
		}
	}()
	checks, err := analysis.Analyze(snap, order, cfg)
	if err != nil {
		m.logf("loom: preview analysis failed, diagnostics unavailable: %v", err)
		return []analysis.Check{}
	}
	return checks
}

// PreviewDiagnostics returns the authoritative diagnostics of the pending
// preview, if any
func (m *Manager) PreviewDiagnostics() ([]analysis.Check, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != statePreviewing {
		return nil, false
	}
	return append([]analysis.Check(nil), m.previewChecks...), true
}

// ApplyReordering commits the previewed order into the current version,
// appending one change entry per displaced chapter
func (m *Manager) ApplyReordering(ctx context.Context) (*Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != statePreviewing {
		return nil, ErrNoPreview
	}

	cur := m.versions[m.current]
	oldPos := make(map[string]int, len(cur.ChapterOrder))
	for i, id := range cur.ChapterOrder {
		oldPos[id] = i
	}
	when := m.now()
	for newIdx, id := range m.pendingOrder {
		old, ok := oldPos[id]
		if !ok || old == newIdx {
			continue
		}
		ch := m.snap.Chapter(id)
		title := id
		if ch != nil {
			title = ch.Title
		}
		cur.Changes = append(cur.Changes, Change{
			ID:          uuid.NewString(),
			Type:        ChangeReorder,
			ChapterID:   id,
			OldPosition: old,
			NewPosition: newIdx,
			Description: fmt.Sprintf("Moved %q from position %d to %d", title, old+1, newIdx+1),
			Timestamp:   when,
		})
	}
	cur.ChapterOrder = append([]string(nil), m.pendingOrder...)

	m.state = stateIdle
	m.pendingOrder = nil
	m.previewChecks = nil
	return cur.clone(), nil
}

// CancelReordering discards the pending preview without mutation. Calling it
// while Idle is a no-op.
func (m *Manager) CancelReordering(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = stateIdle
	m.pendingOrder = nil
	m.previewChecks = nil
	return nil
}
