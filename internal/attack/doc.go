// Package attack runs a single probing attack through the external engine.
//
// One run:
//
//  1. resolves the key (registry, explicit, generated);
//  2. if a prior circuit is given, writes a private copy whose outputs are
//     renamed to the locked circuit's non-key inputs;
//  3. derives the run's base name and artifact paths;
//  4. writes the command script and invokes the engine with it;
//  5. parses the engine's stdout (see ParseOutput), moves the emitted
//     artifact to its canonical path and archives a self-describing log;
//  6. appends a ledger row.
//
// The engine is never retried. A non-zero exit, a timeout or missing output
// patterns produce a degraded result ("No results found", zero partial
// leakage) rather than an error. Errors are returned only for input problems
// (unreadable circuits, malformed paths, invalid keys) and for cancellation
// of the caller's context, in which case no ledger row is written.
package attack
