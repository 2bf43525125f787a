// Package render turns a ResearchData snapshot into Markdown, and Markdown
// into the simplified HTML used by the preview pane.
package render

import (
	"strconv"
	"strings"

	"github.com/MalithGihan/research-extractor/pkg/types"
)

// Markdown renders d as a Markdown document. Section order is fixed; a
// section whose data is absent or empty is left out entirely. Blocks are
// separated by one blank line and the output has no trailing newline.
// A nil d renders as "".
func Markdown(d *types.ResearchData) string {
	if d == nil {
		return ""
	}

	var doc document
	doc.block("# " + d.Title)

	authors := []string{"## Authors"}
	for _, a := range d.Authors {
		authors = append(authors, authorLine(a))
	}
	doc.block(authors...)

	doc.block("## Abstract", d.Abstract)

	if len(d.Keywords) > 0 {
		doc.block(append([]string{"## Keywords"}, bullets(d.Keywords)...)...)
	}

	doc.block(append([]string{"## Main Findings"}, bullets(d.MainFindings)...)...)

	if m := d.Methodology; m != nil {
		lines := []string{"## Methodology"}
		if m.Approach != "" {
			lines = append(lines, "**Approach:** "+m.Approach)
		}
		if m.Participants != "" {
			lines = append(lines, "**Participants:** "+m.Participants)
		}
		if len(m.Methods) > 0 {
			lines = append(lines, "**Methods:**")
			lines = append(lines, bullets(m.Methods)...)
		}
		doc.block(lines...)
	}

	if len(d.Results) > 0 {
		doc.block("## Results")
		for i, r := range d.Results {
			lines := []string{"### Result " + strconv.Itoa(i+1)}
			if r.Finding != "" {
				lines = append(lines, "- **Finding:** "+r.Finding)
			}
			if r.Significance != "" {
				lines = append(lines, "- **Significance:** "+r.Significance)
			}
			if r.SupportingData != "" {
				lines = append(lines, "- **Supporting Data:** "+r.SupportingData)
			}
			doc.block(lines...)
		}
	}

	if disc := d.Discussion; disc != nil {
		doc.block("## Discussion")
		doc.list("### Implications", disc.Implications)
		doc.list("### Limitations", disc.Limitations)
		doc.list("### Future Work", disc.FutureWork)
	}

	if len(d.References) > 0 {
		doc.block("## References")
		for i, ref := range d.References {
			line := "**[" + strconv.Itoa(i+1) + "]** " + ref.Title + " — *" + ref.Authors + "*"
			if ref.Year != "" {
				line += " (" + ref.Year + ")"
			}
			if ref.Relevance != "" {
				doc.block(line, "> "+ref.Relevance)
			} else {
				doc.block(line)
			}
		}
	}

	if p := d.Publication; p != nil {
		lines := []string{"## Publication"}
		if p.Journal != "" {
			lines = append(lines, "- **Journal:** "+p.Journal)
		}
		if p.Year != "" {
			lines = append(lines, "- **Year:** "+p.Year)
		}
		if p.DOI != "" {
			lines = append(lines, "- **DOI:** "+p.DOI)
		}
		if p.URL != "" {
			lines = append(lines, "- **URL:** ["+p.URL+"]("+p.URL+")")
		}
		doc.block(lines...)
	}

	return doc.String()
}

func authorLine(a types.Author) string {
	line := "- **" + a.Name + "**"
	if a.Affiliation != "" {
		line += " (*" + a.Affiliation + "*)"
	}
	if a.Email != "" {
		line += " (" + a.Email + ")"
	}
	return line
}

func bullets(items []string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = "- " + it
	}
	return out
}

// document collects blocks of consecutive lines.
type document struct {
	blocks []string
}

func (d *document) block(lines ...string) {
	d.blocks = append(d.blocks, strings.Join(lines, "\n"))
}

// list adds a heading and its bullets, or nothing when items is empty.
func (d *document) list(heading string, items []string) {
	if len(items) == 0 {
		return
	}
	d.block(append([]string{heading}, bullets(items)...)...)
}

func (d *document) String() string {
	return strings.Join(d.blocks, "\n\n")
}
