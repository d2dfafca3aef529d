package schema

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ColumnGuard checks optional columns against the live schema before they are
// written. Databases restored from older dumps may lack newer columns; those
// columns are skipped instead of failing the whole request.
type ColumnGuard struct {
	db     *gorm.DB
	logger *zap.Logger

	mu    sync.RWMutex
	known map[string]bool
}

// NewColumnGuard creates a guard bound to db.
func NewColumnGuard(db *gorm.DB, logger *zap.Logger) *ColumnGuard {
	return &ColumnGuard{db: db, logger: logger, known: make(map[string]bool)}
}

// HasColumn reports whether the table behind model has column. Lookup errors
// are logged and reported as a missing column.
func (g *ColumnGuard) HasColumn(model any, column string) (ok bool) {
	table := g.tableName(model)
	key := table + "." + column

	g.mu.RLock()
	cached, found := g.known[key]
	g.mu.RUnlock()
	if found {
		return cached
	}

	defer func() {
		if r := recover(); r != nil {
			g.logger.Warn("column check failed, skipping column",
				zap.String("table", table), zap.String("column", column), zap.Any("panic", r))
			ok = false
		}
	}()

	ok = g.db.Migrator().HasColumn(model, column)

	g.mu.Lock()
	g.known[key] = ok
	g.mu.Unlock()

	if !ok {
		g.logger.Warn("optional column missing, skipping",
			zap.String("table", table), zap.String("column", column))
	}
	return ok
}

// Filter removes the optional keys of updates whose columns are missing.
// Keys not listed in optional are always kept.
func (g *ColumnGuard) Filter(model any, updates map[string]any, optional ...string) map[string]any {
	for _, column := range optional {
		if _, present := updates[column]; !present {
			continue
		}
		if !g.HasColumn(model, column) {
			delete(updates, column)
		}
	}
	return updates
}

// Forget drops cached lookups, e.g. after a restore replaced the schema.
func (g *ColumnGuard) Forget() {
	g.mu.Lock()
	g.known = make(map[string]bool)
	g.mu.Unlock()
}

func (g *ColumnGuard) tableName(model any) string {
	stmt := &gorm.Statement{DB: g.db}
	if err := stmt.Parse(model); err != nil {
		return fmt.Sprintf("%T", model)
	}
	return stmt.Schema.Table
}
