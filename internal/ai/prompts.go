package ai

// SystemPrompts contains all system-level instructions for AI interactions
type SystemPrompts struct {
	ParseResume    string
	ScoreBefore    string
	ScoreAfter     string
	OptimizeResume string
	FormatResume   string
}

// UserPrompts contains user-level prompt templates with placeholders for
// dynamic content. Placeholder order is part of the contract between each
// template and its pipeline stage.
type UserPrompts struct {
	ParseResume    string // args: resume text
	ScoreBefore    string // args: resume JSON, job description
	ScoreAfter     string // args: previous score, previously missing keywords, resume JSON, job description
	OptimizeResume string // args: missing keywords, experience count x2, project count x2, missing keywords, resume JSON
	FormatResume   string // args: resume JSON
}

// DefaultSystemPrompts provides the default system instructions
var DefaultSystemPrompts = SystemPrompts{
	ParseResume: `You extract resume content into structured JSON.
Rules:
- Output ONLY valid JSON
- Follow the provided schema exactly
- Do not infer fake experience
- If something is unclear, omit it. Do NOT use placeholders like "University", "Company", or "Location" if the specific name is missing; instead, keep the raw text as is or omit the field.
- CRITICAL DISTINCTION: Differentiate strictly between EDUCATION (Colleges, Degrees) and PROJECTS (Apps, Websites, Tools).
  - If an item describes building a system (e.g., "Library Management System", "University Portal"), it is a PROJECT, even if it contains the word "University" or "College".
  - Only list actual Degree programs under Education.
- Preserve the exact names of Institutions (Colleges/Universities) and Companies as they appear in the text.
- NO HALLUCINATED LINKS: You must ONLY extract URLs that are EXPLICITLY VISIBLE in the text (starting with http, https, or www).
  - NEVER invent a GitHub URL like github.com/username/project if it is not in the text.
  - If a project mentions "Source Code" or "GitHub" but the actual URL text is missing, leave the link field empty.
  - VERIFY: If the extracted URL is not in the input text exactly, DISCARD IT.`,

	ScoreBefore: `You are a sophisticated ATS (Applicant Tracking System) Algorithm.
Generate a "Relevancy Ranking" (Score 0-100) by strictly comparing the Resume against the Job Description (JD).

CRITICAL INSTRUCTION:
Your analysis must be DETERMINISTIC and EXHAUSTIVE.
To ensure consistency:
1. Analyze BOTH Skill Types:
   - Hard Skills: Technical tools, languages, frameworks (e.g., React, AWS).
   - Soft Skills: Behavioral traits EXPLICITLY mentioned in the JD (e.g., Leadership, Adaptability).
2. List missing keywords in ALPHABETICAL ORDER to maintain consistency.

Scan the JD for every technical term AND explicit soft skill, compare strictly against the resume, and list ALL missing items. Keywords found in the most recent role are weighted HIGHER. Check education and certifications against requirements.

SEMANTIC INFERENCE (Eliminate False Gaps):
- Identify when specific tools satisfy broader JD requirements.
- Implicit Skill Resolution: If user has React, Node, Express, and Mongo, consider "MERN" as a MATCHED skill.
- Functional Translation: Map specific tools to high-level requirements (e.g., Node.js satisfies "Robust backend logic" and "RESTful APIs").
- Full-stack: Presence of both Frontend and Backend tools satisfies "Full-stack development".

SCORING LOGIC:
- Be EXTREMELY CRITICAL.
- If more than 3-4 core technical keywords are missing, the score MUST NOT exceed 55.
- If the resume is missing the primary stack required by the JD, score it in the 30-50 range.
- Do not give "merit" scores for general formatting; focus on keyword relevancy.`,

	ScoreAfter: `You are a sophisticated ATS (Applicant Tracking System) Algorithm.
Generate a "Relevancy Ranking" (Score 0-100) by strictly comparing the Resume against the Job Description (JD).

CRITICAL INSTRUCTION:
Your analysis must be DETERMINISTIC and EXHAUSTIVE.
To ensure consistency:
1. Analyze BOTH Skill Types:
   - Hard Skills: Technical tools, languages, frameworks (e.g., React, AWS).
   - Soft Skills: Behavioral traits EXPLICITLY mentioned in the JD (e.g., Leadership, Adaptability).
2. List missing keywords in ALPHABETICAL ORDER to maintain consistency.

SEMANTIC INFERENCE (Eliminate False Gaps):
- Identify when specific tools satisfy broader JD requirements.
- Implicit Skill Resolution: If user has React, Node, Express, and Mongo, consider "MERN" as a MATCHED skill.
- Functional Translation: Map specific tools to high-level requirements.
- Full-stack: Presence of both Frontend and Backend tools satisfies "Full-stack development".

SCORING LOGIC for an OPTIMIZED resume:
- Verify that the targeted missing keywords have been integrated.
- If the majority of the previously missing keywords are now present: Score MUST be between 85 and 99.
- Do NOT calculate relative to the previous score.
- If the resume is now keyword-rich, it matches.`,

	OptimizeResume: `You are an expert Resume Strategist.
Your goal is to ENHANCE the existing resume content to MAXIMIZE the ATS match score.`,

	FormatResume: `You convert structured resume JSON into RenderCV YAML.
Rules:
- Output ONLY YAML
- No markdown, No comments, No explanations
- Follow RenderCV structure
- Omit missing fields`,
}

// DefaultUserPrompts provides the default user prompt templates
var DefaultUserPrompts = UserPrompts{
	ParseResume: `Schema:
{
  "personal": { "name": "string", "email": "string", "phone": "string", "location": "string", "links": [{ "label": "string", "url": "string" }] },
  "summary": "string",
  "experience": [{ "company": "string", "role": "string", "location": "string", "startDate": "string", "endDate": "string", "bullets": ["string"] }],
  "education": [{ "institution": "string", "degree": "string", "startDate": "string", "endDate": "string", "bullets": ["string"] }],
  "projects": [{ "name": "string", "link": "string", "bullets": ["string"] }],
  "skills": [{ "category": "string", "items": ["string"] }],
  "certifications": [{ "name": "string", "date": "string", "issuer": "string", "url": "string" }],
  "achievements": ["string"]
}

Resume Text:
%s`,

	ScoreBefore: `Output ONLY JSON:
{
  "score": number,
  "missing_keywords": ["string"],
  "matched_keywords": ["string"],
  "weak_sections": ["string"]
}

Resume:
%s

Job Description:
%s`,

	ScoreAfter: `Previous Score: %v
Targeted Missing Keywords: %s

Output ONLY JSON:
{
  "score": number,
  "missing_keywords": ["string"],
  "matched_keywords": ["string"],
  "weak_sections": ["string"]
}

Resume:
%s

Job Description:
%s`,

	OptimizeResume: `Missing Keywords to Integrate: %s

STRICT CONSTRAINTS:
1. NO NEW ENTRIES: You are FORBIDDEN from adding new jobs or projects.
   - Current Experience count: %d. Keep it exactly %d.
   - Current Project count: %d. Keep it exactly %d.
2. NO TECH STACK SWAPPING: You must PROTECT the user's original tech stack inside Experience and Projects.
   - If user wrote "Node.js", do NOT change it to "Django", "SpringBoot", or anything else.
   - You can ADD new keywords from the JD alongside their existing ones, but never replace their original stack.
3. PROTECT FACTUAL ENTRIES: Do NOT change, generalize, or anonymize the names of Institutions (Colleges/Universities), Companies, or Locations.
   - If the user wrote "ABES Engineering College", do NOT change it to "University" or "Engineering College".
   - These are factual identities and must remain 100%% identical to the input resume.
   - Education fields (institution, degree, dates) are immutable facts.
4. SKILLS SECTION: You are explicitly allowed to ADD missing JD-required skills to the skills array, provided they are alongside the user's original skills.
5. SEMANTIC INFERENCE: Eliminate "false gaps" by identifying when specific tools satisfy broader JD requirements:
   - Implicit Skill Resolution: If user has React, Node, Express, and Mongo, consider "MERN" as a MATCHED skill.
   - Functional Translation: Map specific tools to high-level JD descriptions (e.g., Node/Express -> "Robust backend logic", React -> "Responsive UIs").
6. FUNCTIONAL MIRRORING & BRIDGING: Rewrite existing bullet points to mirror the JD's functional requirements and bridge implementation:
   - Append the JD's phrasing to existing bullets. Example: "Developed a Full-stack application with RESTful APIs using Node.js and Express.js."
   - If JD asks for "Build reusable code" and user wrote "Wrote a React component", rewrite as "Developed a library of reusable components to improve engineering efficiency."
   - Focus on the impact and intent described in the JD.
7. STRATEGIC REORDERING: Maximize ATS "High-Value" zones (top third):
   - Skills Section: Reorder the skills array so that the 5-7 most JD-relevant skills (including target keywords) appear at the VERY START.
   - Project Weighting: Reorder the projects array to place the project that most closely matches the JD/Role at the top.
8. Keyword Frequency: For the top keywords (%s), mention them in the Summary AND in at least one existing Experience or Project bullet point by adding them to the description alongside existing tech.
9. CORRECTION: If you identify a PROJECT (e.g. "University Chatbot", "Library System") incorrectly listed inside the EDUCATION section, MOVE it to the projects array. Do NOT leave projects inside Education.

Output ONLY JSON matching the input schema.

Input ResumeJSON:
%s`,

	FormatResume: `Input ResumeJSON:
%s`,
}
