// Package titledb maps cartridge product codes to game names.
//
// Databases are plain text files of `CODE,Game Name` lines. The 3DS and
// DS databases are kept separate because short four-character codes
// collide between the two platforms. A Table is built once at startup and
// is immutable afterwards; callers receive it explicitly rather than
// through package state.
package titledb

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Table struct {
	threeDS map[string]string
	ds      map[string]string
}

// Load builds a Table from zero or more database files. Files with "ds"
// (but not "3ds") in their name populate the DS side, anything else the
// 3DS side. A missing file is skipped; a malformed line is ignored.
func Load(paths ...string) (*Table, error) {
	t := &Table{
		threeDS: make(map[string]string),
		ds:      make(map[string]string),
	}

	for _, path := range paths {
		if err := t.loadFile(path); err != nil {
			return nil, fmt.Errorf("titledb: load %s: %w", path, err)
		}
	}

	return t, nil
}

func (t *Table) loadFile(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	name := strings.ToLower(filepath.Base(path))
	target := t.threeDS
	if strings.Contains(name, "ds") && !strings.Contains(name, "3ds") {
		target = t.ds
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		code, gameName, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}
		code = strings.ToUpper(strings.TrimSpace(code))
		gameName = strings.TrimSpace(gameName)
		if code != "" && gameName != "" {
			target[code] = gameName
		}
	}
	return scanner.Err()
}

// Len is the total number of entries across both databases.
func (t *Table) Len() int {
	return len(t.threeDS) + len(t.ds)
}

// Lookup resolves a product code to a game name. Codes may be the full
// `CTR-P-XXXX` form or just the four-character game code. Full 3DS-form
// codes prefer the 3DS database; bare codes prefer the DS database, since
// DS cartridges only expose the short code.
func (t *Table) Lookup(code string) (string, bool) {
	upper := strings.ToUpper(strings.TrimSpace(code))
	if upper == "" {
		return "", false
	}

	gameCode := extractGameCode(upper)
	is3DS := strings.HasPrefix(upper, "CTR-")

	if is3DS {
		if name, ok := t.threeDS[gameCode]; ok {
			return name, true
		}
		name, ok := t.ds[gameCode]
		return name, ok
	}

	if name, ok := t.ds[gameCode]; ok {
		return name, true
	}
	name, ok := t.threeDS[gameCode]
	return name, ok
}

// LookupAll resolves many codes at once; unknown codes are omitted.
func (t *Table) LookupAll(codes []string) map[string]string {
	result := make(map[string]string, len(codes))
	for _, code := range codes {
		if name, ok := t.Lookup(code); ok {
			result[code] = name
		}
	}
	return result
}

// extractGameCode reduces a product code to its four-character game code.
func extractGameCode(code string) string {
	if strings.Contains(code, "-") {
		// Full format like CTR-P-BRBE: the game code is the third segment.
		parts := strings.Split(code, "-")
		if len(parts) >= 3 && len(parts[2]) >= 4 {
			return parts[2][:4]
		}
	}
	if len(code) == 4 {
		return code
	}
	if len(code) >= 4 {
		return code[len(code)-4:]
	}
	return code
}
