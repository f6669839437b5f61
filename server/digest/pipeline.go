// Package digest orchestrates one article-processing run: section breakdown,
// concept identification, prior-knowledge lookup, relationship resolution,
// personalized explanation and recall questions.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/usedigest/digest/plugin/ai"
	apperr "github.com/usedigest/digest/server/internal/errors"
	"github.com/usedigest/digest/server/internal/observability"
	"github.com/usedigest/digest/server/memory"
)

// RunInput carries everything one run needs. The memory handle is an explicit
// argument: the pipeline never reaches for shared state, so concurrent runs
// for different users are fully independent.
type RunInput struct {
	Text      string
	Title     string
	SourceURL string
	Profile   ReaderProfile
	Memory    *memory.Memory
}

// Result is the output of a successful run. StorageErr is non-nil when the
// generated output could not be committed to concept memory; the output
// itself is still valid in that case (degraded, not failed).
type Result struct {
	Sections  string
	Concepts  string
	Questions string

	ParsedConcepts []ParsedConcept
	PriorKnowledge map[string]*memory.PriorMatch
	StoredCount    int
	StorageErr     error
}

// Pipeline runs article digests against an LLM.
type Pipeline struct {
	llm ai.LLMService
}

// NewPipeline creates a pipeline on top of the given LLM service.
func NewPipeline(llm ai.LLMService) *Pipeline {
	return &Pipeline{llm: llm}
}

// Run executes the full digest for one article. Any LLM failure aborts the
// run with no partial output; memory writes happen only after all generation
// succeeded, and a write failure is reported on the result instead of
// discarding it.
func (p *Pipeline) Run(ctx context.Context, in RunInput) (*Result, error) {
	log, hasLog := observability.FromContext(ctx)

	// Section breakdown and concept identification have no data dependency
	// on each other, so they run concurrently.
	var sections, identified string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := p.llm.Chat(gctx, []ai.Message{
			ai.SystemPrompt(sectionsSystemPrompt),
			ai.UserMessage(sectionsUserPrompt(in.Text)),
		})
		if err != nil {
			return apperr.LLMCallFailed("section breakdown failed", err)
		}
		sections = out
		return nil
	})
	g.Go(func() error {
		out, err := p.llm.Chat(gctx, []ai.Message{
			ai.SystemPrompt(identifySystemPrompt),
			ai.UserMessage(identifyUserPrompt(in.Text)),
		})
		if err != nil {
			return apperr.LLMCallFailed("concept identification failed", err)
		}
		identified = out
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := ParseConceptEntries(identified)
	if hasLog {
		log.Debug("identified concepts", slog.Int("count", len(entries)), slog.String(observability.LogFieldStage, "identify"))
	}

	// Prior-knowledge lookup per entry; only the best match per name is
	// kept. A retrieval failure degrades to "no prior knowledge".
	priorKnowledge := map[string]*memory.PriorMatch{}
	for _, entry := range entries {
		matches, err := in.Memory.CheckPriorKnowledge(ctx, entry.Name, entry.Domain, memory.DefaultThreshold)
		if err != nil {
			if hasLog {
				log.Warn("prior knowledge lookup failed, continuing without",
					slog.String("concept", entry.Name),
					slog.String("error", err.Error()))
			}
			continue
		}
		if len(matches) > 0 {
			priorKnowledge[entry.Name] = matches[0]
		}
	}

	connections := ConnectionMap{}
	if len(priorKnowledge) > 0 {
		resolved, err := p.resolveRelationships(ctx, entries, priorKnowledge)
		if err != nil {
			return nil, err
		}
		connections = resolved
	}

	order := make([]string, 0, len(entries))
	for _, entry := range entries {
		order = append(order, entry.Name)
	}
	explained, err := p.llm.Chat(ctx, []ai.Message{
		ai.SystemPrompt(explainSystemPrompt(in.Profile, connections, order)),
		ai.UserMessage(explainUserPrompt(in.Text)),
	})
	if err != nil {
		return nil, apperr.LLMCallFailed("explanation generation failed", err)
	}

	parsed := AnnotateDomains(ParseConceptBlocks(explained), entries)
	if hasLog && len(parsed) == 0 {
		// Zero parsed blocks is displayable ("no concepts"), not fatal.
		log.Warn("no concept blocks parsed from explanation output",
			slog.String(observability.LogFieldErrorCode, string(apperr.ErrCodeMalformedLLMOutput)))
	}

	questions, err := p.llm.Chat(ctx, []ai.Message{
		ai.SystemPrompt(questionsSystemPrompt),
		ai.UserMessage(questionsUserPrompt(in.Text)),
	})
	if err != nil {
		return nil, apperr.LLMCallFailed("question generation failed", err)
	}

	result := &Result{
		Sections:       sections,
		Concepts:       explained,
		Questions:      questions,
		ParsedConcepts: parsed,
		PriorKnowledge: priorKnowledge,
	}

	// Persist after all generation succeeded. A storage failure must not
	// discard the generated output; it is surfaced on the result and logged.
	if len(parsed) > 0 {
		inputs := make([]memory.ConceptInput, len(parsed))
		for i, concept := range parsed {
			inputs[i] = memory.ConceptInput{
				Name:        concept.Name,
				Domain:      concept.Domain,
				Explanation: concept.Explanation,
				Analogy:     concept.Analogy,
			}
		}
		if err := in.Memory.StoreConcepts(ctx, inputs, in.SourceURL, in.Title); err != nil {
			result.StorageErr = err
			if hasLog {
				log.Error("failed to store concepts", err,
					slog.String(observability.LogFieldErrorCode, string(apperr.ErrCodeStorageWriteFailed)))
			}
		} else {
			result.StoredCount = len(inputs)
		}
	}

	return result, nil
}

// resolveRelationships asks the LLM how the new concepts relate to the prior
// matches and parses the answer into a ConnectionMap.
func (p *Pipeline) resolveRelationships(ctx context.Context, entries []ConceptEntry, priorKnowledge map[string]*memory.PriorMatch) (ConnectionMap, error) {
	var priors strings.Builder
	for _, entry := range entries {
		match, ok := priorKnowledge[entry.Name]
		if !ok {
			continue
		}
		fmt.Fprintf(&priors, "- %s: %s\n", match.Concept, truncate(match.Explanation, 150))
	}

	var names strings.Builder
	for _, entry := range entries {
		fmt.Fprintf(&names, "- %s\n", entry.Name)
	}

	out, err := p.llm.Chat(ctx, []ai.Message{
		ai.SystemPrompt(relationshipSystemPrompt),
		ai.UserMessage(relationshipUserPrompt(priors.String(), names.String())),
	})
	if err != nil {
		return nil, apperr.LLMCallFailed("relationship resolution failed", err)
	}

	return ParseRelationships(out), nil
}

// truncate cuts s to at most n runes. Byte slicing would split multi-byte
// characters in explanations and feed invalid UTF-8 to the prompt.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
