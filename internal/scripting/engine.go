package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/l1jgo/arena/internal/core/ecs"
	"github.com/l1jgo/arena/internal/core/event"
	coresys "github.com/l1jgo/arena/internal/core/system"
	"go.uber.org/zap"
)

// Bindings are the host objects exposed to scripts through the arena table.
type Bindings struct {
	Events *event.Queue
	Log    *zap.Logger
}

// Engine resolves script names under a directory and turns them into
// system factories. Every Load gets its own VM.
type Engine struct {
	dir      string
	bindings Bindings
	log      *zap.Logger
}

func NewEngine(scriptsDir string, b Bindings) *Engine {
	if b.Log == nil {
		b.Log = zap.NewNop()
	}
	return &Engine{dir: scriptsDir, bindings: b, log: b.Log}
}

// Path resolves script relative to the scripts directory.
func (e *Engine) Path(script string) string {
	if filepath.IsAbs(script) {
		return script
	}
	return filepath.Join(e.dir, script)
}

// Load builds a LuaSystem from script.
func (e *Engine) Load(script string) (*LuaSystem, error) {
	path := e.Path(script)
	s, err := LoadSystem(path, e.bindings)
	if err != nil {
		return nil, err
	}
	e.log.Debug("loaded lua script", zap.String("file", path), zap.String("system", s.Name()))
	return s, nil
}

// Factory adapts Load to the system loader.
func (e *Engine) Factory(script string) coresys.Factory {
	return func() (ecs.System, error) {
		return e.Load(script)
	}
}

// Scripts lists the .lua files in the scripts directory. A missing
// directory yields no scripts.
func (e *Engine) Scripts() ([]string, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // skip missing dirs
		}
		return nil, fmt.Errorf("list scripts: %w", err)
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		out = append(out, entry.Name())
	}
	sort.Strings(out)
	return out, nil
}
