package summarize

import "fmt"

// GenerationError reports a failure of the underlying generation call itself
// (auth, quota, network, timeout). Terminal for the current document only.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// MalformedResponseError reports a generation response whose content could
// not be parsed as the expected JSON object. Raw keeps the stripped content
// for diagnostics.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	raw := e.Raw
	if len(raw) > 200 {
		raw = raw[:200] + "..."
	}
	return fmt.Sprintf("malformed summary response: %v (content: %q)", e.Err, raw)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
