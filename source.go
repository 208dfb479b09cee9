package slotflow

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/slotflow/pkg/adapters/file"
	loamAdapter "github.com/aretw0/slotflow/pkg/adapters/loam"
	"github.com/aretw0/slotflow/pkg/ports"
)

// Graph source kinds accepted by OpenSource.
const (
	SourceAuto = "auto"
	SourceFile = "file"
	SourceLoam = "loam"
)

// OpenSource opens the graph at path.
//
// A "file" source reads a YAML or JSON file, or every such file of a
// directory. A "loam" source reads a directory of markdown documents whose
// frontmatter describes one intent group each. "auto" picks loam for a
// directory holding markdown documents and file otherwise.
func OpenSource(path, kind string, logger *slog.Logger) (ports.GraphSource, error) {
	if kind == "" || kind == SourceAuto {
		kind = detectSource(path)
	}

	switch kind {
	case SourceFile:
		return file.NewSource(path, file.WithSourceLogger(logger)), nil
	case SourceLoam:
		src, err := loamAdapter.Open(path)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown graph source %q", kind)
	}
}

func detectSource(path string) string {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return SourceFile
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return SourceFile
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".md") {
			return SourceLoam
		}
	}
	return SourceFile
}
