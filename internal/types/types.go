package types

// Link is a labeled hyperlink attached to the personal section
// (e.g. "GitHub" -> https://github.com/...).
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Personal holds the candidate's identity and contact details.
type Personal struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	Links    []Link `json:"links,omitempty"`
}

// Experience is one employment entry. Bullet order is display order.
type Experience struct {
	Company   string   `json:"company"`
	Role      string   `json:"role"`
	Location  string   `json:"location,omitempty"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate,omitempty"`
	Bullets   []string `json:"bullets"`
}

// Education is one education entry.
type Education struct {
	Institution string   `json:"institution"`
	Degree      string   `json:"degree"`
	StartDate   string   `json:"startDate,omitempty"`
	EndDate     string   `json:"endDate,omitempty"`
	Bullets     []string `json:"bullets,omitempty"`
}

// Project is one project entry.
type Project struct {
	Name    string   `json:"name"`
	Link    string   `json:"link,omitempty"`
	Bullets []string `json:"bullets"`
}

// SkillGroup is a named category of skills (e.g. "Languages": Go, Python).
type SkillGroup struct {
	Category string   `json:"category"`
	Items    []string `json:"items"`
}

// Certification is one certification entry.
type Certification struct {
	Name   string `json:"name"`
	Date   string `json:"date,omitempty"`
	Issuer string `json:"issuer,omitempty"`
	URL    string `json:"url,omitempty"`
}

// StructuredResume is the canonical machine-readable resume representation.
// All slice orderings are meaningful and must be preserved by code that does
// not intentionally reorder.
type StructuredResume struct {
	Personal       Personal        `json:"personal"`
	Summary        string          `json:"summary,omitempty"`
	Experience     []Experience    `json:"experience"`
	Education      []Education     `json:"education"`
	Projects       []Project       `json:"projects,omitempty"`
	Skills         []SkillGroup    `json:"skills"`
	Certifications []Certification `json:"certifications,omitempty"`
	Achievements   []string        `json:"achievements,omitempty"`
}

// ScoreReport is the ATS scoring result for a resume against one job
// description. Score is on a 0-100 scale; MissingKeywords are sorted
// alphabetically for run-to-run stability.
type ScoreReport struct {
	Score           float64  `json:"score"`
	MissingKeywords []string `json:"missing_keywords"`
	MatchedKeywords []string `json:"matched_keywords"`
	WeakSections    []string `json:"weak_sections"`
}

// PipelineState is the single record threaded through every pipeline stage.
// Fields only move from unset to set within a run; stages never mutate a
// state they receive, they return a StateUpdate instead.
type PipelineState struct {
	RawResumeText       string            `json:"rawResumeText"`
	RawJDText           string            `json:"rawJdText"`
	ResumeJSON          *StructuredResume `json:"resumeJson,omitempty"`
	InitialATSData      *ScoreReport      `json:"initialAtsData,omitempty"`
	OptimizedResumeJSON *StructuredResume `json:"optimizedResumeJson,omitempty"`
	FinalATSData        *ScoreReport      `json:"finalAtsData,omitempty"`
	FormattedOutput     string            `json:"formattedOutput,omitempty"`
}

// StateUpdate carries only the fields a stage sets. The graph merges updates
// into the state snapshot; nil fields are ignored.
type StateUpdate struct {
	ResumeJSON          *StructuredResume
	InitialATSData      *ScoreReport
	OptimizedResumeJSON *StructuredResume
	FinalATSData        *ScoreReport
	FormattedOutput     string
	HasFormattedOutput  bool
}

// Merge applies an update to a copy of the state and returns the copy.
func (s PipelineState) Merge(u StateUpdate) PipelineState {
	if u.ResumeJSON != nil {
		s.ResumeJSON = u.ResumeJSON
	}
	if u.InitialATSData != nil {
		s.InitialATSData = u.InitialATSData
	}
	if u.OptimizedResumeJSON != nil {
		s.OptimizedResumeJSON = u.OptimizedResumeJSON
	}
	if u.FinalATSData != nil {
		s.FinalATSData = u.FinalATSData
	}
	if u.HasFormattedOutput {
		s.FormattedOutput = u.FormattedOutput
	}
	return s
}

// AnalyzeResult is what the analyze flow returns to callers.
type AnalyzeResult struct {
	ResumeJSON     *StructuredResume `json:"resumeJson"`
	InitialATSData *ScoreReport      `json:"initialAtsData"`
}

// OptimizeResult is what the optimize flow returns to callers.
type OptimizeResult struct {
	OptimizedResumeJSON *StructuredResume `json:"optimizedResumeJson"`
	FinalATSData        *ScoreReport      `json:"finalAtsData"`
	FormattedOutput     string            `json:"formattedOutput"`
}

// RunRecord is the per-run summary emitted for external persistence once an
// optimize flow completes. JDSnippet is truncated to 500 characters.
type RunRecord struct {
	InitialScore    float64  `json:"initial_score"`
	FinalScore      float64  `json:"final_score"`
	CandidateName   string   `json:"candidate_name"`
	MissingKeywords []string `json:"missing_keywords"`
	JDSnippet       string   `json:"jd_text"`
}

// JDSnippetLimit bounds the job description excerpt stored in a RunRecord.
const JDSnippetLimit = 500

// NewRunRecord builds the persistence record for a completed optimize run.
func NewRunRecord(initial, final *ScoreReport, resume *StructuredResume, jdText string) RunRecord {
	rec := RunRecord{JDSnippet: jdText}
	if len(rec.JDSnippet) > JDSnippetLimit {
		rec.JDSnippet = rec.JDSnippet[:JDSnippetLimit]
	}
	if initial != nil {
		rec.InitialScore = initial.Score
	}
	if final != nil {
		rec.FinalScore = final.Score
		rec.MissingKeywords = final.MissingKeywords
	}
	if resume != nil {
		rec.CandidateName = resume.Personal.Name
	}
	return rec
}
