package ledger

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// SaveSnapshot writes the active positions to path as JSON. The previous file
// is copied to path+".bak" first so a crash mid-write leaves a usable copy.
func (l *Ledger) SaveSnapshot(path string) error {
	positions := l.Positions()

	if prev, err := os.ReadFile(path); err == nil {
		if err := os.WriteFile(path+".bak", prev, 0o644); err != nil {
			l.log.Warn().Err(err).Msg("snapshot backup failed")
		}
	}

	data, err := json.MarshalIndent(positions, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("snapshot write: %w", err)
	}
	return nil
}

// LoadSnapshot reads a persisted position set. An unreadable or corrupt file
// falls back to the backup copy, then to an empty set with a warning; a bad
// snapshot never stops the process.
func LoadSnapshot(log zerolog.Logger, path string) []Position {
	positions, err := readSnapshot(path)
	if err == nil {
		return positions
	}
	log.Warn().Err(err).Str("path", path).Msg("snapshot unreadable, trying backup")

	positions, bakErr := readSnapshot(path + ".bak")
	if bakErr == nil {
		return positions
	}
	log.Warn().Err(bakErr).Str("path", path+".bak").Msg("snapshot backup unreadable, starting empty")
	return nil
}

func readSnapshot(path string) ([]Position, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("snapshot read: %w", err)
	}
	var positions []Position
	if err := json.Unmarshal(data, &positions); err != nil {
		return nil, fmt.Errorf("snapshot parse: %w", err)
	}
	return positions, nil
}
