package backup

import (
	"context"
	"fmt"
	"os"
	"time"
)

const day = 24 * time.Hour

// IsDue reports whether a new backup should be taken: there is no backup
// yet, or the newest one is at least intervalDays whole days old.
// Values below 1 are treated as 1.
func (m *Manager) IsDue(intervalDays int) (bool, error) {
	latest, err := m.catalog.Latest()
	if err != nil {
		return false, fmt.Errorf("list backups: %w", err)
	}
	return isDue(latest, intervalDays, m.now()), nil
}

func isDue(latest *CatalogEntry, intervalDays int, now time.Time) bool {
	if intervalDays < 1 {
		intervalDays = 1
	}
	if latest == nil {
		return true
	}
	elapsedDays := int(now.Sub(latest.Timestamp) / day)
	return elapsedDays >= intervalDays
}

// RunIfDue creates a backup of the given kind when IsDue says so. It returns
// the new backup's path and true, or "" and false without side effects.
func (m *Manager) RunIfDue(ctx context.Context, intervalDays int, kind Kind) (string, bool, error) {
	if kind != KindFull && kind != KindSimple {
		return "", false, newError(ErrUnsupportedArchive, "auto backup", string(kind), nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	due, err := m.IsDue(intervalDays)
	if err != nil {
		return "", false, err
	}
	if !due {
		m.log.Debug().Int("interval_days", intervalDays).Msg("backup: not due")
		return "", false, nil
	}

	var path string
	if kind == KindFull {
		path, err = m.createFull(ctx)
	} else {
		path, err = m.createSimple(ctx)
	}
	if err != nil {
		return "", false, err
	}
	return path, true, nil
}

// AutoBackupIfDue is RunIfDue followed by pruning to the configured
// KeepLast when a backup was created. Pruning failures are logged only.
func (m *Manager) AutoBackupIfDue(ctx context.Context, intervalDays int, kind Kind) (string, bool, error) {
	path, created, err := m.RunIfDue(ctx, intervalDays, kind)
	if err != nil || !created {
		return path, created, err
	}
	if m.keepLast > 0 {
		if _, err := m.Prune(m.keepLast); err != nil {
			m.log.Warn().Err(err).Msg("backup: prune after auto backup failed")
		}
	}
	return path, true, nil
}

// Prune deletes all but the newest keepLast backups and returns the removed
// paths. keepLast <= 0 disables pruning.
func (m *Manager) Prune(keepLast int) ([]string, error) {
	if keepLast <= 0 {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.catalog.List()
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	if len(entries) <= keepLast {
		return nil, nil
	}

	var removed []string
	for _, entry := range entries[keepLast:] {
		if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove %s: %w", entry.Filename, err)
		}
		removed = append(removed, entry.Path)
	}
	m.log.Info().Int("removed", len(removed)).Int("keep_last", keepLast).Msg("backup: pruned old backups")
	return removed, nil
}
