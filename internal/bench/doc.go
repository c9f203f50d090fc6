// Package bench reads and rewrites ISCAS-style .bench circuit descriptions.
//
// Only the interface declarations matter here:
//
//	INPUT(G1)
//	INPUT(keyinput0)
//	OUTPUT(G22)
//
// Every other line (gate assignments, comments) is opaque and copied through
// untouched by the adapters.
//
// An input is a key input when its name contains the substring "key"
// (case-sensitive). Key inputs are excluded from interface matching.
//
// # Adapters
//
//   - RenameInterface renames a prior-stage circuit's outputs so they line up,
//     by position, with a locked circuit's non-key inputs.
//   - Adapter.DuplicateOutputs widens a circuit's output interface by adding
//     double-inverted copies of every output. Behaviour is unchanged.
package bench
