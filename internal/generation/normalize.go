package generation

import "strings"

// artifactPaths are the known nesting locations of the generated artifact
// list, probed in order. The first present, non-empty list wins. The bare
// "artifacts" key makes normalization of an already-normalized response a
// no-op.
var artifactPaths = [][]string{
	{"output", "job_results", "images"},
	{"output", "images"},
	{"images"},
	{"artifacts"},
}

// Normalize maps a raw backend response body onto the common result shape.
// Pod and serverless responses nest the artifact list differently; both are
// accepted. A successful status with no recognized artifact path is not an
// error here, callers decide whether an empty list is acceptable.
func Normalize(raw map[string]any) Result {
	rawStatus, _ := raw["status"].(string)
	artifacts := extractArtifacts(raw)

	res := Result{
		Status:    mapStatus(rawStatus),
		Artifacts: artifacts,
		RawStatus: rawStatus,
	}
	if msg, ok := raw["error"].(string); ok && msg != "" {
		res.Err = msg
	}
	if res.Status == StatusFailed && res.Err == "" && rawStatus != "" {
		res.Err = "backend reported status " + rawStatus
	}
	return res
}

func mapStatus(rawStatus string) Status {
	switch Status(strings.ToUpper(rawStatus)) {
	case StatusCompleted:
		return StatusCompleted
	// Pod responses omit the status field and signal success through the
	// HTTP status code alone; normalization only runs on 2xx bodies there.
	case "":
		return StatusCompleted
	}
	return StatusFailed
}

func extractArtifacts(raw map[string]any) []string {
	for _, path := range artifactPaths {
		if found := stringsAtPath(raw, path); len(found) > 0 {
			return found
		}
	}
	return []string{}
}

func stringsAtPath(raw map[string]any, path []string) []string {
	node := any(raw)
	for _, key := range path {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = m[key]
	}
	list, ok := node.([]any)
	if !ok {
		// A round-tripped normalized result decodes artifacts as []any,
		// but accept the typed form as well.
		if typed, ok := node.([]string); ok {
			return typed
		}
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
