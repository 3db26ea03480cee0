package summarize

import "strings"

// Models habitually wrap JSON answers in a Markdown code fence, with or
// without a language tag. The parser classifies the wrapping explicitly
// instead of relying on the JSON decoder to reject the fenced form.
type fenceKind int

const (
	fenceNone fenceKind = iota
	fenceTagged
	fenceUntagged
)

// splitFence classifies the response wrapping and returns the inner content.
func splitFence(s string) (fenceKind, string) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return fenceNone, s
	}

	body := strings.TrimPrefix(s, "```")
	kind := fenceUntagged
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		tag := strings.TrimSpace(body[:nl])
		if tag != "" {
			kind = fenceTagged
			body = body[nl+1:]
		} else {
			body = body[nl+1:]
		}
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return kind, strings.TrimSpace(body)
}
