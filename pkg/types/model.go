// Package types holds the research paper record returned by the extraction
// service. The struct tags drive both JSON decoding and the JSON Schema sent
// to the service, so the two cannot drift apart.
package types

// Author of the paper. Name is required; the rest may be empty.
type Author struct {
	Name        string `json:"name" jsonschema_description:"Full name of the author"`
	Affiliation string `json:"affiliation,omitempty" jsonschema_description:"Institution or organization the author is affiliated with"`
	Email       string `json:"email,omitempty" jsonschema_description:"Contact email of the author if provided"`
}

type Methodology struct {
	Approach     string   `json:"approach,omitempty" jsonschema_description:"Overall research approach or study design"`
	Participants string   `json:"participants,omitempty" jsonschema_description:"Description of study participants or data sources"`
	Methods      []string `json:"methods,omitempty" jsonschema_description:"Specific methods, techniques, or tools used"`
}

type Result struct {
	Finding        string `json:"finding,omitempty" jsonschema_description:"Description of the specific result or finding"`
	Significance   string `json:"significance,omitempty" jsonschema_description:"Statistical significance or importance of the finding"`
	SupportingData string `json:"supportingData,omitempty" jsonschema_description:"Relevant statistics, measurements, or data points"`
}

type Discussion struct {
	Implications []string `json:"implications,omitempty" jsonschema_description:"Theoretical or practical implications of the findings"`
	Limitations  []string `json:"limitations,omitempty" jsonschema_description:"Study limitations or constraints"`
	FutureWork   []string `json:"futureWork,omitempty" jsonschema_description:"Suggested future research directions"`
}

// Reference is a cited work. Authors is a single display string, not a list.
type Reference struct {
	Title     string `json:"title" jsonschema_description:"Title of the cited paper"`
	Authors   string `json:"authors" jsonschema_description:"Authors of the cited paper"`
	Year      string `json:"year,omitempty" jsonschema_description:"Publication year"`
	Relevance string `json:"relevance,omitempty" jsonschema_description:"Why this reference is important to the current paper"`
}

type Publication struct {
	Journal string `json:"journal,omitempty" jsonschema_description:"Name of the journal or conference"`
	Year    string `json:"year" jsonschema_description:"Year of publication"`
	DOI     string `json:"doi,omitempty" jsonschema_description:"Digital Object Identifier (DOI) of the paper"`
	URL     string `json:"url,omitempty" jsonschema_description:"URL where the paper can be accessed"`
}

// ResearchData is one extraction snapshot. Fields without omitempty are
// required by the schema. Nil pointers and empty slices mean "absent".
type ResearchData struct {
	Title        string       `json:"title" jsonschema_description:"The full title of the research paper"`
	Authors      []Author     `json:"authors" jsonschema_description:"List of all authors of the paper"`
	Abstract     string       `json:"abstract" jsonschema_description:"Complete abstract or summary of the paper"`
	Keywords     []string     `json:"keywords,omitempty" jsonschema_description:"Key terms and phrases that describe the paper's main topics"`
	MainFindings []string     `json:"mainFindings" jsonschema_description:"Key findings, conclusions, or contributions of the paper"`
	Methodology  *Methodology `json:"methodology,omitempty" jsonschema_description:"Research methods and approaches used"`
	Results      []Result     `json:"results,omitempty" jsonschema_description:"Main results and outcomes of the research"`
	Discussion   *Discussion  `json:"discussion,omitempty"`
	References   []Reference  `json:"references,omitempty" jsonschema_description:"Key papers cited that are crucial to understanding this work"`
	Publication  *Publication `json:"publication,omitempty"`
}
