// Package aitest provides a scripted Generator for handler and CLI tests.
package aitest

import (
	"context"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/sirius-report/backend/internal/service/ai"
)

// Rule answers every prompt that contains Match.
type Rule struct {
	Match    string
	Response string
	Err      error
}

// Generator streams the response of the first matching rule word by word.
// Prompts without a matching rule get Fallback.
type Generator struct {
	Rules    []Rule
	Fallback string

	mu      sync.Mutex
	prompts []string
}

var _ ai.Generator = (*Generator)(nil)

// Generate implements ai.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string) (*ai.Task, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	response, err := g.Fallback, error(nil)
	for _, rule := range g.Rules {
		if strings.Contains(prompt, rule.Match) {
			response, err = rule.Response, rule.Err
			break
		}
	}

	words := strings.SplitAfter(response, " ")
	sr, sw := schema.Pipe[*schema.Message](len(words) + 1)
	go func() {
		defer sw.Close()
		if err != nil {
			sw.Send(nil, err)
			return
		}
		for _, w := range words {
			if w == "" {
				continue
			}
			if sw.Send(schema.AssistantMessage(w, nil), nil) {
				return
			}
		}
	}()
	return ai.NewStreamTask(ctx, sr), nil
}

// Prompts returns every prompt received so far.
func (g *Generator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// ReportScript answers clarification with questions, or with the completion
// phrase when complete is true, and returns a fixed report plus metadata.
func ReportScript(complete bool) *Generator {
	clarification := "Wann genau geschah der Vorfall?\nGab es Zeugen?"
	if complete {
		clarification = "Bericht vollständig."
	}
	return &Generator{
		Rules: []Rule{
			{Match: "Analysiere den folgenden Bericht", Response: clarification},
			{Match: "Erstelle aus diesen Informationen", Response: "TITEL: Fahrraddiebstahl am Bahnhof\nDATUM: 03.03.2025, 08:15\nORT: Hauptbahnhof\nBEAMTER: Kommissarin Weber\n\nDas Fahrrad wurde vom Ständer entwendet."},
			{Match: "Finde Datum und Uhrzeit", Response: "2025-03-03T08:15:00Z"},
			{Match: "Wo fand der Vorfall statt", Response: "Hauptbahnhof"},
			{Match: "Nenne drei prägnante Keywords", Response: "Diebstahl, Fahrrad, Bahnhof"},
		},
		Fallback: "Das Fahrrad war blau.",
	}
}
