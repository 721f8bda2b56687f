package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"atsforge/internal/ai"
	"atsforge/internal/errors"
	"atsforge/internal/extract"
	"atsforge/internal/types"
)

// degreeTerms mark an education entry as a real degree program. Entries that
// talk about building things without any of these are treated as projects the
// model filed in the wrong section.
var degreeTerms = []string{"degree", "bachelor", "master", "b.tech", "b.e."}

// runParser turns raw resume text into a StructuredResume. Failure here is
// terminal: nothing downstream can run without structured data.
func (p *Pipeline) runParser(ctx context.Context, state types.PipelineState) (types.StateUpdate, error) {
	start := time.Now()
	raw, usage, err := p.parse.Generate(ctx, ai.OpParseResume, state.RawResumeText)
	p.recordStage(ctx, "parse", start, usage, err)
	if err != nil {
		return types.StateUpdate{}, err
	}

	payload, err := extract.JSONPayload(raw)
	if err != nil {
		return types.StateUpdate{}, errors.NewParseFailure(
			"Resume parser produced no usable JSON", err)
	}

	var resume types.StructuredResume
	if err := json.Unmarshal([]byte(payload), &resume); err != nil {
		return types.StateUpdate{}, errors.NewParseFailure(
			"Resume parser produced malformed JSON", err)
	}

	if moved := reclassifyEducation(&resume); moved > 0 {
		p.logger.Info("Moved misclassified projects out of education section",
			"moved_count", moved)
	}

	return types.StateUpdate{ResumeJSON: &resume}, nil
}

// reclassifyEducation moves project-like entries out of the education section
// into projects. Small models routinely file "Library Management System" style
// items under education because the entry mentions a university. Returns the
// number of entries moved.
func reclassifyEducation(resume *types.StructuredResume) int {
	if len(resume.Education) == 0 {
		return 0
	}

	var trueEducation []types.Education
	var moved []types.Project

	for _, edu := range resume.Education {
		if looksLikeProject(edu) {
			moved = append(moved, types.Project{
				Name:    edu.Institution,
				Link:    "",
				Bullets: edu.Bullets,
			})
		} else {
			trueEducation = append(trueEducation, edu)
		}
	}

	if len(moved) == 0 {
		return 0
	}

	resume.Education = trueEducation
	count := 0
	for _, mp := range moved {
		if !isDuplicateProject(resume.Projects, mp) {
			resume.Projects = append(resume.Projects, mp)
		}
		count++
	}
	return count
}

// looksLikeProject applies the misclassification heuristic to one education
// entry. The whole entry is serialized so the signal can live in any field.
func looksLikeProject(edu types.Education) bool {
	serialized, err := json.Marshal(edu)
	if err != nil {
		return false
	}
	str := strings.ToLower(string(serialized))

	if strings.Contains(str, "tech stack") || strings.Contains(str, "technologies used") {
		return true
	}
	if !strings.Contains(str, "developed") {
		return false
	}
	for _, term := range degreeTerms {
		if strings.Contains(str, term) {
			return false
		}
	}
	return true
}

// isDuplicateProject reports whether a moved entry already exists in the
// project list, matching by approximate name or identical first bullet.
func isDuplicateProject(existing []types.Project, candidate types.Project) bool {
	candidateName := strings.ToLower(candidate.Name)
	for _, ep := range existing {
		existingName := strings.ToLower(ep.Name)
		if strings.Contains(existingName, candidateName) || strings.Contains(candidateName, existingName) {
			return true
		}
		if len(ep.Bullets) > 0 && len(candidate.Bullets) > 0 && ep.Bullets[0] == candidate.Bullets[0] {
			return true
		}
	}
	return false
}
