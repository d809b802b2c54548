// Package hls contains the playlist inspection used by the readiness wait.
package hls

import "strings"

// segmentSuffixes are the media segment file endings the readiness check
// recognizes, matching MPEG-TS and fragmented-MP4 HLS pipelines.
var segmentSuffixes = []string{".ts", ".m4s"}

// CountSegments counts the media segment lines of a playlist body: every
// non-comment line ending in a recognized segment suffix, query strings
// ignored. Malformed input simply yields zero, which the poller treats as
// "not ready yet" rather than an error.
func CountSegments(body string) int {
	count := 0
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.IndexByte(line, '?'); i >= 0 {
			line = line[:i]
		}
		for _, suffix := range segmentSuffixes {
			if strings.HasSuffix(line, suffix) {
				count++
				break
			}
		}
	}
	return count
}
