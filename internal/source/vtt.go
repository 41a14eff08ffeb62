package source

import (
	"bufio"
	"html"
	"regexp"
	"strings"
)

var (
	vttTag       = regexp.MustCompile(`<[^>]*>`)
	vttCueNumber = regexp.MustCompile(`^\d+$`)
)

// parseVTT flattens WebVTT captions into plain text. Auto-generated captions
// repeat each line while it scrolls, so consecutive duplicates are dropped.
func parseVTT(data string) string {
	var (
		lines    []string
		last     string
		skipping bool
	)
	sc := bufio.NewScanner(strings.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			skipping = false
			continue
		case skipping:
			continue
		case strings.HasPrefix(line, "WEBVTT"),
			strings.HasPrefix(line, "NOTE"),
			strings.HasPrefix(line, "STYLE"),
			strings.HasPrefix(line, "REGION"):
			skipping = true
			continue
		case strings.Contains(line, "-->"),
			vttCueNumber.MatchString(line),
			strings.HasPrefix(line, "Kind:"),
			strings.HasPrefix(line, "Language:"):
			continue
		}

		text := strings.TrimSpace(html.UnescapeString(vttTag.ReplaceAllString(line, "")))
		if text == "" || text == last {
			continue
		}
		lines = append(lines, text)
		last = text
	}
	return strings.Join(lines, " ")
}
