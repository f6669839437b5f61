package digest

import (
	"regexp"
	"strings"
)

// ConceptEntry is a {name, domain} pair from the identification pass. Not
// persisted until paired with an explanation.
type ConceptEntry struct {
	Name   string
	Domain string
}

// Connection describes how a new concept relates to a previously learned one.
type Connection struct {
	RelatedTo    string
	Relationship string
}

// ConnectionMap maps a new concept name to its prior-concept connection.
type ConnectionMap map[string]Connection

// ParsedConcept is one structured block from the explanation output.
type ParsedConcept struct {
	Name        string
	Domain      string
	Explanation string
	Analogy     string
}

// noConnectionSentinel is the only recognized "no link" marker, matched
// case-insensitively.
const noConnectionSentinel = "no prior connection"

// ParseConceptEntries parses identification output. Each usable line contains
// a separator splitting it into exactly two fields; malformed lines are
// silently dropped, so partial identification degrades quantity, not the run.
func ParseConceptEntries(text string) []ConceptEntry {
	entries := []ConceptEntry{}
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "|") {
			continue
		}
		parts := strings.Split(strings.Trim(strings.TrimSpace(line), "- "), "|")
		if len(parts) != 2 {
			continue
		}
		name := strings.TrimSpace(parts[0])
		domain := strings.TrimSpace(parts[1])
		if name == "" {
			continue
		}
		entries = append(entries, ConceptEntry{Name: name, Domain: domain})
	}
	return entries
}

// ParseRelationships parses relationship-resolution output into a
// ConnectionMap. Lines marked with the "no prior connection" sentinel are
// excluded.
func ParseRelationships(text string) ConnectionMap {
	connections := ConnectionMap{}
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "|") {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 3 {
			continue
		}
		newConcept := strings.TrimSpace(parts[0])
		relatedTo := strings.TrimSpace(parts[1])
		relationship := strings.TrimSpace(parts[2])
		if newConcept == "" {
			continue
		}
		if strings.EqualFold(relatedTo, noConnectionSentinel) || strings.EqualFold(relationship, noConnectionSentinel) {
			continue
		}
		connections[newConcept] = Connection{RelatedTo: relatedTo, Relationship: relationship}
	}
	return connections
}

var (
	conceptSplitRe = regexp.MustCompile(`\*\*Concept:\s*`)
	explanationRe  = regexp.MustCompile(`(?s)Explanation:\s*(.+?)(?:Analogy:|$)`)
	analogyRe      = regexp.MustCompile(`(?s)Analogy:\s*(.+)$`)
)

// ParseConceptBlocks parses the tagged explanation output into structured
// concepts, in source order. The scanner fails soft: a block missing its name
// tag is dropped and the rest keep parsing.
func ParseConceptBlocks(text string) []ParsedConcept {
	concepts := []ParsedConcept{}

	sections := conceptSplitRe.Split(text, -1)
	if len(sections) < 2 {
		return concepts
	}
	for _, section := range sections[1:] {
		nameEnd := strings.Index(section, "**")
		if nameEnd < 0 {
			continue
		}
		name := strings.TrimSpace(section[:nameEnd])
		if name == "" {
			continue
		}
		rest := section[nameEnd+2:]

		explanation := ""
		if m := explanationRe.FindStringSubmatch(rest); m != nil {
			explanation = strings.TrimSpace(m[1])
		}
		analogy := ""
		if m := analogyRe.FindStringSubmatch(rest); m != nil {
			analogy = strings.TrimSpace(m[1])
		}

		concepts = append(concepts, ParsedConcept{
			Name:        name,
			Explanation: explanation,
			Analogy:     analogy,
		})
	}

	return concepts
}

// AnnotateDomains copies the domain captured at identification time onto each
// parsed concept, matched by case-insensitive trimmed name. Identification
// and explanation are independent LLM passes, so order and count are not
// guaranteed to agree; a concept with no name match falls back to "General"
// rather than inheriting another concept's domain.
func AnnotateDomains(concepts []ParsedConcept, entries []ConceptEntry) []ParsedConcept {
	domains := make(map[string]string, len(entries))
	for _, entry := range entries {
		key := strings.ToLower(strings.TrimSpace(entry.Name))
		if _, ok := domains[key]; !ok {
			domains[key] = entry.Domain
		}
	}

	for i := range concepts {
		key := strings.ToLower(strings.TrimSpace(concepts[i].Name))
		if domain, ok := domains[key]; ok && strings.TrimSpace(domain) != "" {
			concepts[i].Domain = domain
		} else {
			concepts[i].Domain = "General"
		}
	}
	return concepts
}
