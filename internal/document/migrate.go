package document

import (
	"errors"
	"fmt"
)

// ErrMigrationPath means a persisted document's schema version has no forward
// migration chain to the current version. The load fails loudly; callers may
// fall back to an empty document after logging, but never silently here.
var ErrMigrationPath = errors.New("no migration path for document schema version")

// Migration is one step of the ordered upgrade chain. Steps are applied
// greedily from the document's version until SchemaVersion is reached.
type Migration struct {
	From    int
	To      int
	Migrate func(doc map[string]any) (map[string]any, error)
}

var migrations = []Migration{
	{From: 1, To: 2, Migrate: migrateStyleBag},
}

// MigrateRaw upgrades a raw decoded document to the current schema version.
func MigrateRaw(raw map[string]any) (map[string]any, error) {
	version, ok := rawVersion(raw)
	if !ok {
		return nil, fmt.Errorf("%w: missing schemaVersion", ErrMigrationPath)
	}

	for version != SchemaVersion {
		step, ok := findMigration(version)
		if !ok {
			return nil, fmt.Errorf("%w: version %d, current %d", ErrMigrationPath, version, SchemaVersion)
		}
		next, err := step.Migrate(raw)
		if err != nil {
			return nil, fmt.Errorf("migrate %d→%d: %w", step.From, step.To, err)
		}
		raw = next
		version = step.To
		raw["schemaVersion"] = version
	}
	return raw, nil
}

func rawVersion(raw map[string]any) (int, bool) {
	v, ok := raw["schemaVersion"].(float64)
	if !ok {
		return 0, false
	}
	return int(v), true
}

func findMigration(from int) (Migration, bool) {
	for _, m := range migrations {
		if m.From == from {
			return m, true
		}
	}
	return Migration{}, false
}

// migrateStyleBag upgrades v1 documents, which kept fill/stroke/strokeWidth
// as loose top-level node fields, to the closed per-kind style union.
func migrateStyleBag(raw map[string]any) (map[string]any, error) {
	nodes, ok := raw["nodes"].(map[string]any)
	if !ok {
		return raw, nil
	}
	for _, v := range nodes {
		node, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if _, has := node["style"]; has {
			continue
		}

		fill, _ := node["fill"].(string)
		stroke, _ := node["stroke"].(string)
		strokeWidth, _ := node["strokeWidth"].(float64)
		kind, _ := node["kind"].(string)

		style := map[string]any{}
		switch NodeKind(kind) {
		case KindLine:
			style["line"] = map[string]any{"stroke": stroke, "strokeWidth": strokeWidth}
		case KindText:
			style["text"] = map[string]any{"fill": fill, "fontFamily": "Inter", "fontSize": 14.0}
		case KindGroup:
			// no visual style
		default:
			style["shape"] = map[string]any{"fill": fill, "stroke": stroke, "strokeWidth": strokeWidth}
		}
		node["style"] = style
		delete(node, "fill")
		delete(node, "stroke")
		delete(node, "strokeWidth")
	}
	return raw, nil
}
