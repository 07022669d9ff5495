package symbols

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

// Section is the INI section holding symbol -> pair entries
const Section = "KrakenSymbols"

// LoadFile reads the mapping from the [KrakenSymbols] section of an INI file.
//
// A relative path that does not exist in the working directory is also looked
// up next to the executable. A missing file is not an error: it yields an empty
// mapping, so every symbol later fails resolution individually.
func LoadFile(path string) (Mapping, error) {
	resolved, err := locate(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("symbol mapping file not found, all symbols will be unresolved", "path", path)
		return NewMapping(nil), nil
	}
	if err != nil {
		return Mapping{}, fmt.Errorf("failed to stat mapping file: %w", err)
	}

	cfg, err := ini.Load(resolved)
	if err != nil {
		return Mapping{}, fmt.Errorf("failed to parse mapping file %s: %w", resolved, err)
	}

	return fromINI(cfg, resolved), nil
}

// Parse reads the mapping from INI-formatted data
func Parse(data []byte) (Mapping, error) {
	cfg, err := ini.Load(data)
	if err != nil {
		return Mapping{}, fmt.Errorf("failed to parse mapping: %w", err)
	}
	return fromINI(cfg, "<data>"), nil
}

func fromINI(cfg *ini.File, source string) Mapping {
	section, err := cfg.GetSection(Section)
	if err != nil {
		slog.Warn("symbol mapping section missing", "source", source, "section", Section)
		return NewMapping(nil)
	}

	pairs := make(map[string]string, len(section.Keys()))
	for _, key := range section.Keys() {
		pairs[key.Name()] = key.String()
	}

	m := NewMapping(pairs)
	slog.Debug("symbol mapping loaded", "source", source, "symbols", m.Len())
	return m
}

func locate(path string) (string, error) {
	_, err := os.Stat(path)
	if err == nil || filepath.IsAbs(path) || !errors.Is(err, fs.ErrNotExist) {
		return path, err
	}

	exe, exeErr := os.Executable()
	if exeErr != nil {
		return path, err
	}

	candidate := filepath.Join(filepath.Dir(exe), path)
	if _, statErr := os.Stat(candidate); statErr != nil {
		return path, err
	}
	return candidate, nil
}
