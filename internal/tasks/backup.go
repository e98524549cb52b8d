package tasks

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/webmsgr/lurk-chan/internal/metrics"
)

const backupSuffix = ".db.zst"

// runBackup snapshots the database into the backup directory, compresses
// the snapshot, and prunes old backups beyond the retention limit.
func (s *Supervisor) runBackup(ctx context.Context) error {
	err := s.backupOnce(ctx, time.Now().UTC())
	if err != nil {
		metrics.BackupsTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.BackupsTotal.WithLabelValues("success").Inc()
	return nil
}

func (s *Supervisor) backupOnce(ctx context.Context, now time.Time) error {
	if err := os.MkdirAll(s.cfg.BackupDir, 0o755); err != nil {
		return fmt.Errorf("failed to create backup dir: %w", err)
	}

	stamp := now.Format("2006-01-02T15-04-05")
	raw := filepath.Join(s.cfg.BackupDir, "lurk_chan-"+stamp+".db")

	// VACUUM INTO refuses to overwrite, so a leftover snapshot from a
	// crashed run has to go first.
	if err := os.Remove(raw); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear stale snapshot: %w", err)
	}
	if err := s.store.BackupTo(ctx, raw); err != nil {
		return err
	}

	if err := compressFile(raw, raw+".zst"); err != nil {
		os.Remove(raw)
		os.Remove(raw + ".zst")
		return err
	}
	if err := os.Remove(raw); err != nil {
		return fmt.Errorf("failed to remove raw snapshot: %w", err)
	}

	pruned, err := pruneBackups(s.cfg.BackupDir, s.cfg.BackupKeep)
	if err != nil {
		return err
	}
	log.Info().Str("file", raw+".zst").Int("pruned", pruned).Msg("Backup complete")
	return nil
}

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer out.Close()

	enc, err := zstd.NewWriter(out)
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if _, err := io.Copy(enc, in); err != nil {
		enc.Close()
		return fmt.Errorf("failed to compress backup: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finish backup compression: %w", err)
	}
	return out.Close()
}

// pruneBackups deletes the oldest backups beyond keep, relying on the
// timestamped names sorting chronologically, and sweeps out any raw .db
// snapshots a crashed run left behind. It returns how many backups were
// removed.
func pruneBackups(dir string, keep int) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list backup dir: %w", err)
	}
	var backups []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		// Raw snapshots only exist transiently during a backup run; by the
		// time pruning happens, any still present are stale.
		if strings.HasPrefix(e.Name(), "lurk_chan-") && strings.HasSuffix(e.Name(), ".db") {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				return 0, fmt.Errorf("failed to remove stale snapshot %s: %w", e.Name(), err)
			}
			continue
		}
		if strings.HasSuffix(e.Name(), backupSuffix) {
			backups = append(backups, e.Name())
		}
	}
	if len(backups) <= keep {
		return 0, nil
	}
	sort.Strings(backups)
	pruned := 0
	for _, name := range backups[:len(backups)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return pruned, fmt.Errorf("failed to prune backup %s: %w", name, err)
		}
		pruned++
	}
	return pruned, nil
}
