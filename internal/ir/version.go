package ir

// Version constants for the IR schema and the normalizer.
const (
	// IRVersion is the version of the stored tree encoding. Version 2 is the
	// tagged encoding (MarshalTagged); version 1 was canonical JSON.
	IRVersion = "2"

	// EngineVersion is the normalizer version recorded alongside stored results.
	EngineVersion = "0.1.0"
)
