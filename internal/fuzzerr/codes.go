// Package fuzzerr defines the structured error taxonomy used across
// the fuzzer: validation failures, runner handshake failures and
// configuration errors, plus a colorized reporter for the CLI.
//
// Error code ranges:
// F0001-F0099: IR / program static-validity errors
// F0100-F0199: REPRL handshake and transport errors
// F0200-F0299: Configuration errors
// F0300-F0399: Corpus and storage errors
package fuzzerr

const (
	// F0001: a program failed Code.StaticValidate.
	CodeInvalidProgram = "F0001"

	// F0002: a mutation produced a variable number beyond the maximum.
	CodeVariableOverflow = "F0002"

	// F0003: the splicer could not find a feasible graft point.
	CodeNoSpliceTarget = "F0003"

	// F0100: the REPRL child did not complete its startup handshake.
	CodeHandshakeFailed = "F0100"

	// F0101: the REPRL child did not acknowledge within the configured timeout.
	CodeHandshakeTimeout = "F0101"

	// F0102: the shared coverage bitmap could not be mapped.
	CodeCoverageMapFailed = "F0102"

	// F0200: the configuration file failed to parse.
	CodeConfigParse = "F0200"

	// F0201: a required configuration field was missing or invalid.
	CodeConfigInvalid = "F0201"

	// F0300: the corpus directory could not be read or written.
	CodeCorpusIO = "F0300"
)

// descriptions gives a one-line human explanation per code, used by
// the reporter when no explicit message override is supplied.
var descriptions = map[string]string{
	CodeInvalidProgram:    "program failed static validation",
	CodeVariableOverflow:  "variable number exceeds the serialized format's maximum",
	CodeNoSpliceTarget:    "no feasible splice point found in donor program",
	CodeHandshakeFailed:   "REPRL child exited before completing handshake",
	CodeHandshakeTimeout:  "REPRL child did not respond within the handshake timeout",
	CodeCoverageMapFailed: "failed to map shared coverage bitmap",
	CodeConfigParse:       "configuration file is not valid YAML",
	CodeConfigInvalid:     "configuration field failed validation",
	CodeCorpusIO:          "corpus directory read or write failed",
}

// Describe returns the human-readable description registered for code,
// or a generic fallback if the code is unknown.
func Describe(code string) string {
	if d, ok := descriptions[code]; ok {
		return d
	}
	return "unrecognized error code"
}

// IsTransport reports whether code belongs to the REPRL transport range.
func IsTransport(code string) bool {
	return code >= "F0100" && code < "F0200"
}
