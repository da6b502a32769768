package config

// MaxSignatures bounds the number of operations in a single interface
// declaration. Permutation entries are uint8, so 255 is the hard ceiling.
const MaxSignatures = 255

// DebugChecks enables cheap validity assertions on the dispatch path
// (empty-handle detection with a readable panic message instead of a raw
// nil dereference). Off by default; tests and debugging builds flip it.
var DebugChecks = false

// Config and generated file names used by the morph CLI.
const (
	DefaultConfigFile = "morph.yaml"
	GeneratedFileName = "morph_gen.go"
)
