package render

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// The substitutions only cover what Markdown emits: headings 1-3, bold,
// italic, code, blockquotes and line breaks. Order matters: "###" must be
// tried before "#", "**" before "*", fenced code before inline code.
var previewRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?m)^### (.*)$`), "<h3>$1</h3>"},
	{regexp.MustCompile(`(?m)^## (.*)$`), "<h2>$1</h2>"},
	{regexp.MustCompile(`(?m)^# (.*)$`), "<h1>$1</h1>"},
	{regexp.MustCompile(`\*\*(.*?)\*\*`), "<strong>$1</strong>"},
	{regexp.MustCompile(`\*(.*?)\*`), "<em>$1</em>"},
	{regexp.MustCompile("(?s)```(.*?)```"), "<pre><code>$1</code></pre>"},
	{regexp.MustCompile("`(.*?)`"), "<code>$1</code>"},
	{regexp.MustCompile(`(?m)^> (.*)$`), "<blockquote>$1</blockquote>"},
	{regexp.MustCompile(`\n`), "<br>"},
}

// Extracted text is untrusted; anything outside the UGC policy is dropped.
var previewPolicy = bluemonday.UGCPolicy()

// PreviewHTML converts Markdown into a lightweight HTML fragment for the
// preview pane. It is not a Markdown parser: lists stay as "- " text and
// links stay as written.
func PreviewHTML(md string) string {
	out := md
	for _, r := range previewRules {
		out = r.re.ReplaceAllString(out, r.repl)
	}
	return previewPolicy.Sanitize(out)
}
