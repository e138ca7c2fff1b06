package eqlog

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrNotLogFile is returned for paths that are not EverQuest client logs.
var ErrNotLogFile = errors.New("not an everquest log file")

// LogFileInfo describes one client log file.
type LogFileInfo struct {
	Path          string `json:"path"`
	FileName      string `json:"fileName"`
	CharacterName string `json:"characterName"`
	ServerName    string `json:"serverName"`
}

// ParseLogFileName extracts the character and server name from a client log
// path. The client names logs eqlog_<Character>_<server>.txt; servers with
// underscores in their shortname keep them.
func ParseLogFileName(path string) (LogFileInfo, error) {
	base := filepath.Base(path)
	// Client logs come from Windows; handle backslash paths on any OS.
	if i := strings.LastIndexByte(base, '\\'); i >= 0 {
		base = base[i+1:]
	}
	name := strings.TrimSuffix(base, filepath.Ext(base))

	parts := strings.Split(name, "_")
	if len(parts) < 3 || !strings.EqualFold(parts[0], "eqlog") {
		return LogFileInfo{}, fmt.Errorf("%q: %w", base, ErrNotLogFile)
	}

	return LogFileInfo{
		Path:          path,
		FileName:      base,
		CharacterName: parts[1],
		ServerName:    strings.Join(parts[2:], "_"),
	}, nil
}
