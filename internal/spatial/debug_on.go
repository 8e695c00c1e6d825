//go:build latticedebug

package spatial

// debugAssert panics in debug builds: an index inconsistency is a
// programming error in upsert/remove pairing and should fail loudly under
// test rather than be papered over.
func debugAssert(ok bool, msg string) {
	if !ok {
		panic("spatial index inconsistency: " + msg)
	}
}
