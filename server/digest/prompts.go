package digest

import (
	"fmt"
	"strings"
)

// ReaderProfile describes the end user for personalized explanations. Fields
// are used verbatim; absent fields render as "Not specified".
type ReaderProfile struct {
	Background     string
	Interests      string
	LearningStyle  string
	TechnicalLevel string
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not specified"
	}
	return s
}

// Format renders the profile for prompt interpolation.
func (p ReaderProfile) Format() string {
	return fmt.Sprintf(`Background: %s
Interests: %s
Learning style: %s
Technical level: %s`,
		orNotSpecified(p.Background),
		orNotSpecified(p.Interests),
		orNotSpecified(p.LearningStyle),
		orNotSpecified(p.TechnicalLevel))
}

const sectionsSystemPrompt = "You are a helpful assistant that breaks down complex articles into digestible sections."

func sectionsUserPrompt(article string) string {
	return fmt.Sprintf(`Break this article into 3-5 main sections.
For each section:
- Give it a clear, descriptive header
- Write a 1-2 sentence summary of what it covers

Format your response like this:

## Section 1: [Header]
[Summary]

## Section 2: [Header]
[Summary]

Article:
%s`, article)
}

const identifySystemPrompt = "You are a helpful assistant that identifies complex concepts."

func identifyUserPrompt(text string) string {
	return fmt.Sprintf(`Read this text and identify 2-3 complex, abstract, or unfamiliar concepts.

For each concept, provide:
- Name (2-4 words)
- Domain/category (e.g., "Databases", "Machine Learning", "Web Development")

Format:
- Concept Name | Domain

Example:
- API Gateway | Software Architecture
- Neural Networks | Machine Learning

Text:
%s`, text)
}

const relationshipSystemPrompt = "You analyze relationships between concepts."

func relationshipUserPrompt(priorConcepts, newConcepts string) string {
	return fmt.Sprintf(`Given these previously learned concepts and new concepts,
determine which are actually related and how.

Previously learned:
%s

New concepts from article:
%s

For each new concept, if it's related to a previous concept:
- State which previous concept it relates to
- Explain the relationship in one sentence (e.g., "builds on", "contrasts with", "is a specific type of")

If a new concept is unrelated to previous knowledge, say "No prior connection."

Format:
New Concept | Related To | Relationship`, priorConcepts, newConcepts)
}

func explainSystemPrompt(profile ReaderProfile, connections ConnectionMap, order []string) string {
	connectionContext := ""
	if len(connections) > 0 {
		var sb strings.Builder
		sb.WriteString("\n\nWhen explaining concepts, use these specific connections:\n")
		for _, name := range order {
			conn, ok := connections[name]
			if !ok {
				continue
			}
			fmt.Fprintf(&sb, "- %s: %s %s\n", name, conn.Relationship, conn.RelatedTo)
		}
		connectionContext = sb.String()
	}

	return fmt.Sprintf(`You explain concepts using concrete analogies.

Reader profile:
%s
%s
For concepts with prior connections, START your explanation by explicitly referencing
the previous concept. Example: "Remember [old concept]? [New concept] extends that by..."`,
		profile.Format(), connectionContext)
}

func explainUserPrompt(text string) string {
	return fmt.Sprintf(`Explain these concepts:

%s

Format:
**Concept: [name]**
Explanation: [if related to prior knowledge, start with "Remember how [prior concept]...?" then explain]
Analogy: [...]`, text)
}

const questionsSystemPrompt = "You are a helpful assistant that creates active recall questions."

func questionsUserPrompt(article string) string {
	return fmt.Sprintf(`Based on this article, generate 3-5 questions that test comprehension of the key ideas.
Make them specific, not generic.

Article:
%s`, article)
}
