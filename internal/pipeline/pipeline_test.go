package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"atsforge/internal/ai"
	"atsforge/internal/config"
	"atsforge/internal/errors"
	"atsforge/internal/types"
)

var testPolicy = config.ScoringPolicyConfig{
	RegressionBump:         15,
	RegressionFloor:        85,
	RegressionCap:          98,
	FallbackBump:           20,
	FallbackFloor:          88,
	FallbackCap:            98,
	FirstPassFallbackScore: 50,
}

var quietLogger = errors.NewLogger(slog.LevelError)

// fakeGenerator returns canned text per operation and records the arguments
// each operation was called with.
type fakeGenerator struct {
	responses map[ai.Operation]string
	errs      map[ai.Operation]error
	argsByOp  map[ai.Operation][]any
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		responses: make(map[ai.Operation]string),
		errs:      make(map[ai.Operation]error),
		argsByOp:  make(map[ai.Operation][]any),
	}
}

func (f *fakeGenerator) Generate(_ context.Context, op ai.Operation, args ...any) (string, *ai.TokenUsage, error) {
	f.argsByOp[op] = args
	if err := f.errs[op]; err != nil {
		return "", nil, err
	}
	return f.responses[op], &ai.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}, nil
}

func (f *fakeGenerator) GetModelInfo(_ context.Context) *ai.ModelInfo {
	return &ai.ModelInfo{Name: "fake", Available: true}
}

func (f *fakeGenerator) Close() error { return nil }

func newTestPipeline(gen *fakeGenerator, opts ...Option) *Pipeline {
	return New(gen, gen, gen, gen, testPolicy, quietLogger, opts...)
}

const parsedResumeWithMisfiledProject = "```json\n" + `{
  "personal": { "name": "Asha Verma", "email": "asha@example.com" },
  "experience": [
    { "company": "Acme Corp", "role": "Backend Developer", "startDate": "2021", "bullets": ["Built APIs with Node.js"] }
  ],
  "education": [
    { "institution": "ABES Engineering College", "degree": "B.Tech in Computer Science", "startDate": "2017", "endDate": "2021" },
    { "institution": "Library Management System", "degree": "", "bullets": ["Developed a book tracking portal. Tech stack: React, Express"] }
  ],
  "projects": [],
  "skills": [{ "category": "Languages", "items": ["JavaScript"] }]
}` + "\n```"

func TestAnalyzeFlow(t *testing.T) {
	gen := newFakeGenerator()
	gen.responses[ai.OpParseResume] = parsedResumeWithMisfiledProject
	gen.responses[ai.OpScoreBefore] = `{"score": 0.72, "missing_keywords": ["TypeScript", "AWS", "Docker"], "matched_keywords": ["Node.js"], "weak_sections": ["Summary"]}`

	p := newTestPipeline(gen)
	result, err := p.Analyze(context.Background(), "raw resume text", "jd text")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	// Degree entry stays, project-like entry moves
	if len(result.ResumeJSON.Education) != 1 {
		t.Fatalf("Expected 1 education entry after reclassification, got %d", len(result.ResumeJSON.Education))
	}
	if result.ResumeJSON.Education[0].Degree != "B.Tech in Computer Science" {
		t.Errorf("Expected B.Tech entry to stay in education, got %q", result.ResumeJSON.Education[0].Degree)
	}
	if len(result.ResumeJSON.Projects) != 1 {
		t.Fatalf("Expected 1 project after reclassification, got %d", len(result.ResumeJSON.Projects))
	}
	if result.ResumeJSON.Projects[0].Name != "Library Management System" {
		t.Errorf("Expected moved project name 'Library Management System', got %q", result.ResumeJSON.Projects[0].Name)
	}
	if result.ResumeJSON.Projects[0].Link != "" {
		t.Errorf("Moved project must not gain a link, got %q", result.ResumeJSON.Projects[0].Link)
	}

	// Fractional score scales to percentage, missing keywords come back sorted
	if result.InitialATSData.Score != 72 {
		t.Errorf("Expected normalized score 72, got %v", result.InitialATSData.Score)
	}
	want := []string{"AWS", "Docker", "TypeScript"}
	for i, kw := range result.InitialATSData.MissingKeywords {
		if kw != want[i] {
			t.Errorf("Expected sorted missing keywords %v, got %v", want, result.InitialATSData.MissingKeywords)
			break
		}
	}
}

func TestAnalyzeParserMalformed(t *testing.T) {
	gen := newFakeGenerator()
	gen.responses[ai.OpParseResume] = "I could not process this resume, sorry."

	p := newTestPipeline(gen)
	_, err := p.Analyze(context.Background(), "raw resume text", "jd text")
	if err == nil {
		t.Fatal("Expected parse failure for unusable model output")
	}
	if !errors.IsCode(err, errors.ErrCodeParseFailure) {
		t.Errorf("Expected PARSE_FAILURE code, got %v", err)
	}
}

func TestAnalyzeParserTransportError(t *testing.T) {
	gen := newFakeGenerator()
	gen.errs[ai.OpParseResume] = errors.NewTransportError("upstream unavailable", nil)

	p := newTestPipeline(gen)
	_, err := p.Analyze(context.Background(), "raw resume text", "jd text")
	if !errors.IsCode(err, errors.ErrCodeGenerationTransport) {
		t.Errorf("Expected GENERATION_TRANSPORT code, got %v", err)
	}
}

func TestAnalyzeScoreFallback(t *testing.T) {
	gen := newFakeGenerator()
	gen.responses[ai.OpParseResume] = parsedResumeWithMisfiledProject
	gen.responses[ai.OpScoreBefore] = "no structured output here"

	p := newTestPipeline(gen)
	result, err := p.Analyze(context.Background(), "raw resume text", "jd text")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	report := result.InitialATSData
	if report.Score != 50 {
		t.Errorf("Expected fallback score 50, got %v", report.Score)
	}
	if len(report.MissingKeywords) != 1 || report.MissingKeywords[0] != "Complex resume structure" {
		t.Errorf("Expected fallback missing keywords, got %v", report.MissingKeywords)
	}
	if len(report.WeakSections) != 1 || report.WeakSections[0] != "Formatting" {
		t.Errorf("Expected fallback weak sections, got %v", report.WeakSections)
	}
}

func TestNormalizeReportIdempotent(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  float64
	}{
		{"fractional scales up", 0.72, 72},
		{"percentage unchanged", 72, 72},
		{"boundary one becomes hundred", 1.0, 100},
		{"zero stays zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := &types.ScoreReport{Score: tt.score}
			normalizeReport(report)
			if report.Score != tt.want {
				t.Errorf("normalizeReport(%v) = %v, want %v", tt.score, report.Score, tt.want)
			}
		})
	}
}

func baseResume() *types.StructuredResume {
	return &types.StructuredResume{
		Personal: types.Personal{Name: "Asha Verma", Email: "asha@example.com"},
		Experience: []types.Experience{
			{Company: "Acme Corp", Role: "Backend Developer", StartDate: "2021", Bullets: []string{"Built APIs with Node.js"}},
		},
		Education: []types.Education{
			{Institution: "ABES Engineering College", Degree: "B.Tech in Computer Science", StartDate: "2017", EndDate: "2021"},
		},
		Projects: []types.Project{
			{Name: "Chat App", Bullets: []string{"Realtime chat with websockets"}},
		},
		Skills: []types.SkillGroup{{Category: "Languages", Items: []string{"JavaScript"}}},
	}
}

func marshalResume(t *testing.T, r *types.StructuredResume) string {
	t.Helper()
	// Mirror what a well-behaved optimizer returns: the same structure with
	// enriched bullets.
	return `{
  "personal": { "name": "` + r.Personal.Name + `", "email": "` + r.Personal.Email + `" },
  "experience": [
    { "company": "Acme Corp", "role": "Backend Developer", "startDate": "2021", "bullets": ["Built RESTful APIs with Node.js and Express for scalable backends"] }
  ],
  "education": [
    { "institution": "ABES Engineering College", "degree": "B.Tech in Computer Science", "startDate": "2017", "endDate": "2021" }
  ],
  "projects": [
    { "name": "Chat App", "bullets": ["Realtime chat with websockets and Docker deployment"] }
  ],
  "skills": [{ "category": "Languages", "items": ["JavaScript", "TypeScript"] }]
}`
}

func TestOptimizeFlow(t *testing.T) {
	resume := baseResume()
	initial := &types.ScoreReport{Score: 60, MissingKeywords: []string{"Docker", "TypeScript"}}

	gen := newFakeGenerator()
	gen.responses[ai.OpOptimizeResume] = "```json\n" + marshalResume(t, resume) + "\n```"
	gen.responses[ai.OpScoreAfter] = `{"score": 91, "missing_keywords": [], "matched_keywords": ["Docker", "TypeScript"], "weak_sections": []}`
	gen.responses[ai.OpFormatResume] = "```yaml\ncv:\n  name: Asha Verma\n```"

	var recorded *types.RunRecord
	sink := recordFunc(func(_ context.Context, rec types.RunRecord) error {
		recorded = &rec
		return nil
	})

	p := newTestPipeline(gen, WithRecordSink(sink))
	result, err := p.Optimize(context.Background(), resume, initial, "jd text")
	if err != nil {
		t.Fatalf("Optimize returned error: %v", err)
	}

	if result.FinalATSData.Score != 91 {
		t.Errorf("Expected final score 91, got %v", result.FinalATSData.Score)
	}
	if !strings.Contains(result.FormattedOutput, "name: Asha Verma") {
		t.Errorf("Expected fenced YAML body in formatted output, got %q", result.FormattedOutput)
	}
	if strings.Contains(result.FormattedOutput, "```") {
		t.Errorf("Formatted output must not contain fence markers, got %q", result.FormattedOutput)
	}
	if len(result.OptimizedResumeJSON.Experience) != 1 || len(result.OptimizedResumeJSON.Projects) != 1 {
		t.Errorf("Optimized resume must conserve entry counts")
	}

	// Optimizer prompt receives the missing keywords and both counts
	args := gen.argsByOp[ai.OpOptimizeResume]
	if len(args) != 7 {
		t.Fatalf("Expected 7 optimizer prompt args, got %d", len(args))
	}
	if args[0] != "Docker, TypeScript" {
		t.Errorf("Expected joined missing keywords as first arg, got %v", args[0])
	}
	if args[1] != 1 || args[3] != 1 {
		t.Errorf("Expected entry counts 1/1 in prompt args, got %v/%v", args[1], args[3])
	}

	// Run record reaches the sink
	if recorded == nil {
		t.Fatal("Expected a run record to be emitted")
	}
	if recorded.InitialScore != 60 || recorded.FinalScore != 91 {
		t.Errorf("Expected run record scores 60/91, got %v/%v", recorded.InitialScore, recorded.FinalScore)
	}
	if recorded.CandidateName != "Asha Verma" {
		t.Errorf("Expected candidate name in run record, got %q", recorded.CandidateName)
	}
}

type recordFunc func(ctx context.Context, rec types.RunRecord) error

func (f recordFunc) Record(ctx context.Context, rec types.RunRecord) error { return f(ctx, rec) }

func TestOptimizeRegressionClamp(t *testing.T) {
	resume := baseResume()
	initial := &types.ScoreReport{Score: 60, MissingKeywords: []string{"Docker"}}

	gen := newFakeGenerator()
	gen.responses[ai.OpOptimizeResume] = "```json\n" + marshalResume(t, resume) + "\n```"
	gen.responses[ai.OpScoreAfter] = `{"score": 40, "missing_keywords": [], "matched_keywords": [], "weak_sections": []}`
	gen.responses[ai.OpFormatResume] = "cv: {}"

	p := newTestPipeline(gen)
	result, err := p.Optimize(context.Background(), resume, initial, "jd text")
	if err != nil {
		t.Fatalf("Optimize returned error: %v", err)
	}

	// clamp(60+15, 85, 98) = 85
	if result.FinalATSData.Score != 85 {
		t.Errorf("Expected regression clamp to 85, got %v", result.FinalATSData.Score)
	}
}

func TestOptimizeScoreFallbackClamp(t *testing.T) {
	resume := baseResume()
	initial := &types.ScoreReport{Score: 60, MissingKeywords: []string{"Docker"}}

	gen := newFakeGenerator()
	gen.responses[ai.OpOptimizeResume] = "```json\n" + marshalResume(t, resume) + "\n```"
	gen.responses[ai.OpScoreAfter] = "completely unusable response"
	gen.responses[ai.OpFormatResume] = "cv: {}"

	p := newTestPipeline(gen)
	result, err := p.Optimize(context.Background(), resume, initial, "jd text")
	if err != nil {
		t.Fatalf("Optimize returned error: %v", err)
	}

	// clamp(60+20, 88, 98) = 88
	if result.FinalATSData.Score != 88 {
		t.Errorf("Expected fallback clamp to 88, got %v", result.FinalATSData.Score)
	}
	if len(result.FinalATSData.MissingKeywords) != 0 {
		t.Errorf("Fallback report must carry empty keyword sets, got %v", result.FinalATSData.MissingKeywords)
	}
}

func TestOptimizeFallbackClampHighPrior(t *testing.T) {
	resume := baseResume()
	initial := &types.ScoreReport{Score: 90}

	gen := newFakeGenerator()
	gen.responses[ai.OpOptimizeResume] = "```json\n" + marshalResume(t, resume) + "\n```"
	gen.responses[ai.OpScoreAfter] = "no json"
	gen.responses[ai.OpFormatResume] = "cv: {}"

	p := newTestPipeline(gen)
	result, err := p.Optimize(context.Background(), resume, initial, "jd text")
	if err != nil {
		t.Fatalf("Optimize returned error: %v", err)
	}

	// clamp(90+20, 88, 98) = 98
	if result.FinalATSData.Score != 98 {
		t.Errorf("Expected fallback clamp cap at 98, got %v", result.FinalATSData.Score)
	}
}

func TestOptimizerConservationViolation(t *testing.T) {
	resume := baseResume()
	initial := &types.ScoreReport{Score: 60, MissingKeywords: []string{"Docker"}}

	// Optimizer invents a second experience entry
	gen := newFakeGenerator()
	gen.responses[ai.OpOptimizeResume] = `{
  "personal": { "name": "Asha Verma" },
  "experience": [
    { "company": "Acme Corp", "role": "Backend Developer", "startDate": "2021", "bullets": ["x"] },
    { "company": "Invented Inc", "role": "Architect", "startDate": "2019", "bullets": ["y"] }
  ],
  "education": [{ "institution": "ABES Engineering College", "degree": "B.Tech in Computer Science" }],
  "projects": [{ "name": "Chat App", "bullets": ["z"] }],
  "skills": []
}`
	gen.responses[ai.OpScoreAfter] = `{"score": 91, "missing_keywords": [], "matched_keywords": [], "weak_sections": []}`
	gen.responses[ai.OpFormatResume] = "cv: {}"

	p := newTestPipeline(gen)
	result, err := p.Optimize(context.Background(), resume, initial, "jd text")
	if err != nil {
		t.Fatalf("Optimize returned error: %v", err)
	}

	// The input resume passes through unmodified
	if len(result.OptimizedResumeJSON.Experience) != 1 {
		t.Errorf("Expected passthrough of original resume, got %d experience entries", len(result.OptimizedResumeJSON.Experience))
	}
	if result.OptimizedResumeJSON.Experience[0].Bullets[0] != "Built APIs with Node.js" {
		t.Errorf("Expected original bullets preserved on passthrough")
	}
}

func TestOptimizerRestoresFactualFields(t *testing.T) {
	resume := baseResume()
	initial := &types.ScoreReport{Score: 60}

	// Same entry counts, but the optimizer generalized the factual names
	gen := newFakeGenerator()
	gen.responses[ai.OpOptimizeResume] = `{
  "personal": { "name": "A. Verma" },
  "experience": [
    { "company": "A Company", "role": "Senior Backend Developer", "startDate": "2020", "bullets": ["Built scalable APIs"] }
  ],
  "education": [{ "institution": "Engineering College", "degree": "Bachelor Degree", "startDate": "2016", "endDate": "2020" }],
  "projects": [{ "name": "Chat App", "bullets": ["Realtime chat"] }],
  "skills": []
}`
	gen.responses[ai.OpScoreAfter] = `{"score": 91, "missing_keywords": [], "matched_keywords": [], "weak_sections": []}`
	gen.responses[ai.OpFormatResume] = "cv: {}"

	p := newTestPipeline(gen)
	result, err := p.Optimize(context.Background(), resume, initial, "jd text")
	if err != nil {
		t.Fatalf("Optimize returned error: %v", err)
	}

	opt := result.OptimizedResumeJSON
	if opt.Personal.Name != "Asha Verma" {
		t.Errorf("Expected candidate name restored, got %q", opt.Personal.Name)
	}
	if opt.Experience[0].Company != "Acme Corp" {
		t.Errorf("Expected company restored, got %q", opt.Experience[0].Company)
	}
	if opt.Experience[0].StartDate != "2021" {
		t.Errorf("Expected start date restored, got %q", opt.Experience[0].StartDate)
	}
	if opt.Education[0].Institution != "ABES Engineering College" {
		t.Errorf("Expected institution restored, got %q", opt.Education[0].Institution)
	}
	if opt.Education[0].Degree != "B.Tech in Computer Science" {
		t.Errorf("Expected degree restored, got %q", opt.Education[0].Degree)
	}
	// Rewritten role and bullets are allowed to stand
	if opt.Experience[0].Role != "Senior Backend Developer" {
		t.Errorf("Expected rewritten role to survive, got %q", opt.Experience[0].Role)
	}
}

func TestOptimizerMalformedPassthrough(t *testing.T) {
	resume := baseResume()
	initial := &types.ScoreReport{Score: 60}

	gen := newFakeGenerator()
	gen.responses[ai.OpOptimizeResume] = "sorry, no JSON today"
	gen.responses[ai.OpScoreAfter] = `{"score": 91, "missing_keywords": [], "matched_keywords": [], "weak_sections": []}`
	gen.responses[ai.OpFormatResume] = "cv: {}"

	p := newTestPipeline(gen)
	result, err := p.Optimize(context.Background(), resume, initial, "jd text")
	if err != nil {
		t.Fatalf("Optimize returned error: %v", err)
	}

	if result.OptimizedResumeJSON != resume {
		t.Error("Expected the exact input resume passed through on malformed optimizer output")
	}
}

func TestRunRecordTruncatesJD(t *testing.T) {
	longJD := strings.Repeat("j", 800)
	rec := types.NewRunRecord(
		&types.ScoreReport{Score: 60},
		&types.ScoreReport{Score: 90, MissingKeywords: []string{"Go"}},
		&types.StructuredResume{Personal: types.Personal{Name: "Asha Verma"}},
		longJD,
	)

	if len(rec.JDSnippet) != types.JDSnippetLimit {
		t.Errorf("Expected JD snippet truncated to %d, got %d", types.JDSnippetLimit, len(rec.JDSnippet))
	}
	if rec.InitialScore != 60 || rec.FinalScore != 90 {
		t.Errorf("Expected scores 60/90, got %v/%v", rec.InitialScore, rec.FinalScore)
	}
}

func TestReclassifyEducationDedup(t *testing.T) {
	resume := &types.StructuredResume{
		Education: []types.Education{
			{Institution: "Library Management System", Bullets: []string{"Developed with tech stack: Java"}},
		},
		Projects: []types.Project{
			{Name: "library management system", Bullets: []string{"Different bullet"}},
		},
	}

	reclassifyEducation(resume)

	if len(resume.Education) != 0 {
		t.Errorf("Expected project-like entry removed from education")
	}
	// Case-insensitive name match suppresses the duplicate
	if len(resume.Projects) != 1 {
		t.Errorf("Expected duplicate suppressed, got %d projects", len(resume.Projects))
	}
}

func TestReclassifyEducationFirstBulletDedup(t *testing.T) {
	resume := &types.StructuredResume{
		Education: []types.Education{
			{Institution: "Campus Portal", Bullets: []string{"Developed a portal. Technologies used: React"}},
		},
		Projects: []types.Project{
			{Name: "Unrelated Name", Bullets: []string{"Developed a portal. Technologies used: React"}},
		},
	}

	reclassifyEducation(resume)

	if len(resume.Projects) != 1 {
		t.Errorf("Expected identical first bullet to suppress duplicate, got %d projects", len(resume.Projects))
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name              string
		v, floor, ceiling float64
		want              float64
	}{
		{"below floor", 70, 85, 98, 85},
		{"inside band", 90, 85, 98, 90},
		{"above ceiling", 120, 85, 98, 98},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clamp(tt.v, tt.floor, tt.ceiling); got != tt.want {
				t.Errorf("clamp(%v, %v, %v) = %v, want %v", tt.v, tt.floor, tt.ceiling, got, tt.want)
			}
		})
	}
}
