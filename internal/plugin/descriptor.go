package plugin

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UnknownName names a plugin whose file name has nothing before the extension.
const UnknownName = "unknown"

// Descriptor identifies a loaded plugin. It never changes after load.
type Descriptor struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	LoadedAt time.Time `json:"load_time"`
}

// NameFromPath is the base name of path without its extension.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return UnknownName
	}
	return name
}
