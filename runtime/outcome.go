package runtime

import "github.com/justapithecus/sluice/types"

// Process exit codes of sluice render.
const (
	ExitCodeSuccess     = 0 // every task finished and the stream closed
	ExitCodeRenderError = 1 // a fatal error terminated the stream
	ExitCodeAborted     = 2 // the request was aborted
	ExitCodeConfigError = 3 // invalid arguments, config or document
)

// ExitCode maps a render outcome to the process exit code.
//
// A pending outcome means the request never reported a terminal status
// and is treated as a render error.
func ExitCode(status types.OutcomeStatus) int {
	switch status {
	case types.OutcomeSuccess:
		return ExitCodeSuccess
	case types.OutcomeAborted:
		return ExitCodeAborted
	default:
		return ExitCodeRenderError
	}
}

// ResultExitCode is ExitCode for a finished render. A successful render
// whose destination failed to store its bytes exits as a render error.
func ResultExitCode(result *RenderResult) int {
	code := ExitCode(result.Outcome.Status)
	if code == ExitCodeSuccess && result.DestinationErr != nil {
		return ExitCodeRenderError
	}
	return code
}
