package codes

// Exit codes used by gsx itself. A successfully launched script's own exit
// status always takes precedence over these.
const (
	OK             = 0
	Failure        = 1   // general failure (build errors, store errors)
	Usage          = 2   // bad command line
	Extraction     = 65  // malformed embedded manifest
	Busy           = 75  // build lock held by another process
	Internal       = 125 // internal invariant violation
	CannotExecute  = 126 // binary exists but could not be launched
	BinaryNotFound = 127 // binary missing and rebuild did not produce one
)

// descriptions maps gsx exit codes to human-readable messages
var descriptions = map[int]string{
	OK:             "Success",
	Failure:        "Build or cache failure",
	Usage:          "Invalid usage",
	Extraction:     "Malformed embedded manifest",
	Busy:           "Another gsx process is building this script",
	Internal:       "Internal error",
	CannotExecute:  "Cached binary could not be executed",
	BinaryNotFound: "Cached binary not found",
}

// Description returns the message for a gsx exit code, or a generic message
// if the code belongs to the executed script rather than to gsx.
func Description(code int) string {
	if msg, ok := descriptions[code]; ok {
		return msg
	}

	return "Script exit status"
}
