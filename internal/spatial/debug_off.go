//go:build !latticedebug

package spatial

import "log/slog"

// debugAssert logs and continues in release builds: index inconsistencies
// should be impossible given paired upsert/remove, so in production we
// self-heal (the caller skips the malformed entry) rather than crash a
// user's editing session.
func debugAssert(ok bool, msg string) {
	if !ok {
		slog.Warn("spatial index inconsistency", "detail", msg)
	}
}
