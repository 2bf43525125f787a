package extract

import (
	"strings"

	"github.com/MalithGihan/research-extractor/pkg/types"
)

// sanitize trims every string and drops blank entries from string lists.
// Struct elements and present objects are kept as returned, so a result
// with no fields set still counts toward the result numbering. It runs once,
// before the snapshot leaves the client.
func sanitize(d *types.ResearchData) {
	d.Title = strings.TrimSpace(d.Title)
	d.Abstract = strings.TrimSpace(d.Abstract)

	for i := range d.Authors {
		a := &d.Authors[i]
		a.Name = strings.TrimSpace(a.Name)
		a.Affiliation = strings.TrimSpace(a.Affiliation)
		a.Email = strings.TrimSpace(a.Email)
	}

	d.Keywords = compact(d.Keywords)
	d.MainFindings = compact(d.MainFindings)

	if m := d.Methodology; m != nil {
		m.Approach = strings.TrimSpace(m.Approach)
		m.Participants = strings.TrimSpace(m.Participants)
		m.Methods = compact(m.Methods)
	}

	for i := range d.Results {
		r := &d.Results[i]
		r.Finding = strings.TrimSpace(r.Finding)
		r.Significance = strings.TrimSpace(r.Significance)
		r.SupportingData = strings.TrimSpace(r.SupportingData)
	}

	if disc := d.Discussion; disc != nil {
		disc.Implications = compact(disc.Implications)
		disc.Limitations = compact(disc.Limitations)
		disc.FutureWork = compact(disc.FutureWork)
	}

	for i := range d.References {
		r := &d.References[i]
		r.Title = strings.TrimSpace(r.Title)
		r.Authors = strings.TrimSpace(r.Authors)
		r.Year = strings.TrimSpace(r.Year)
		r.Relevance = strings.TrimSpace(r.Relevance)
	}

	if p := d.Publication; p != nil {
		p.Journal = strings.TrimSpace(p.Journal)
		p.Year = strings.TrimSpace(p.Year)
		p.DOI = strings.TrimSpace(p.DOI)
		p.URL = strings.TrimSpace(p.URL)
	}
}

// compact trims each item and drops the blank ones, keeping order.
func compact(items []string) []string {
	out := items[:0]
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
