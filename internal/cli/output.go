package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/alnah/go-somas/internal/provider"
)

// warnNonMarkdownExtension writes a warning to w if path has an extension
// that is not .md. This alerts users that the output will be Markdown
// regardless of the file extension they specified.
func warnNonMarkdownExtension(w io.Writer, path string) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != "" && ext != ".md" {
		_, _ = fmt.Fprintf(w, "Warning: output is Markdown regardless of %s extension\n", ext)
	}
}

// writeFileAtomic writes content to path atomically.
// It fails if the file already exists (O_EXCL), preventing accidental overwrites.
// On write failure, the partial file is removed.
func writeFileAtomic(path, content string) error {
	// #nosec G302 G304 -- user-specified output file with standard permissions
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", path, ErrOutputExists)
		}
		return fmt.Errorf("cannot create output file: %w", err)
	}

	writeErr := func() error {
		defer func() { _ = f.Close() }()
		if _, err := f.WriteString(content); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}()

	if writeErr != nil {
		_ = os.Remove(path)
		return writeErr
	}

	return nil
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9äöüß]+`)

// slugify turns a title into a short file name fragment.
func slugify(title string) string {
	s := strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if r := []rune(s); len(r) > 40 {
		s = strings.TrimRight(string(r[:40]), "-")
	}
	return s
}

// defaultAnalysisFilename returns analyse_20260102_150405[_slug].md.
func defaultAnalysisFilename(now time.Time, title string) string {
	name := "analyse_" + now.Format("20060102_150405")
	if slug := slugify(title); slug != "" {
		name += "_" + slug
	}
	return name + ".md"
}

// renderCompletion appends the cited sources and the model line to the
// completion text.
func renderCompletion(resp provider.Response) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(resp.Content, "\n"))
	b.WriteString("\n")

	if len(resp.Citations) > 0 {
		b.WriteString("\n## Quellen\n\n")
		for i, c := range resp.Citations {
			fmt.Fprintf(&b, "%d. %s\n", i+1, c)
		}
	}

	fmt.Fprintf(&b, "\n---\n*%s / %s", resp.ProviderUsed, resp.ModelUsed)
	if resp.TokensUsed > 0 {
		fmt.Fprintf(&b, ", %d Tokens", resp.TokensUsed)
	}
	b.WriteString("*\n")
	return b.String()
}
