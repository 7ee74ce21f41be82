package diag

// Issue code constants organized by subsystem
// V001-V099: IR validation
// R100-R199: registry and import paths
// G200-G299: dependency graph
// S300-S399: symbol resolution
// P400-P499: source walkers
// N500-N599: emission

const (
	// IR validation (V001-V099)
	CodeEmptyModuleName     = "V001"
	CodeEmptyModule         = "V002"
	CodeEmptyTypeName       = "V003"
	CodeTypeNameCasing      = "V004"
	CodeUnknownReference    = "V005"
	CodeUnsatisfiableEnum   = "V006"
	CodeDuplicateType       = "V007"
	CodeDuplicateModule     = "V008"

	// Registry (R100-R199)
	CodeUnknownModule       = "R100"
	CodeUnknownTypeInTarget = "R101"
	CodeAmbiguousType       = "R102"

	// Dependency graph (G200-G299)
	CodeCircularDependency = "G200"

	// Resolution (S300-S399)
	CodeUnresolvedReference = "S300"

	// Source walkers (P400-P499)
	CodeUnsupportedSchema  = "P400"
	CodeSchemaParseFailure = "P401"
	CodeMissingSchema      = "P402"

	// Emission (N500-N599)
	CodeAliasCollision = "N500"
	CodeWriteFailure   = "N501"
)
