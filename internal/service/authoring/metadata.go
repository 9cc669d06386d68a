package authoring

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Metadata 从原始描述中抽取的结构化字段。
type Metadata struct {
	Date     *time.Time
	Location string
	Keywords []string
}

// extractMetadata fans out the three field prompts over the collected text.
// Each field degrades to its default on failure; the group never returns an error.
func (p *Pipeline) extractMetadata(ctx context.Context, collected string, em *emitter) Metadata {
	meta := Metadata{Location: unknownSentinel, Keywords: []string{}}

	var g errgroup.Group
	g.Go(func() error {
		answer, err := p.complete(ctx, KindDate, datePrompt(collected), em)
		if err != nil {
			p.l.Warnf(ctx, "[authoring] date extraction failed: %v", err)
			return nil
		}
		meta.Date = ParseDate(answer)
		return nil
	})
	g.Go(func() error {
		answer, err := p.complete(ctx, KindLocation, locationPrompt(collected), em)
		if err != nil {
			p.l.Warnf(ctx, "[authoring] location extraction failed: %v", err)
			return nil
		}
		meta.Location = ParseLocation(answer)
		return nil
	})
	g.Go(func() error {
		answer, err := p.complete(ctx, KindKeywords, keywordsPrompt(collected), em)
		if err != nil {
			p.l.Warnf(ctx, "[authoring] keyword extraction failed: %v", err)
			return nil
		}
		meta.Keywords = ParseKeywords(answer)
		return nil
	})
	_ = g.Wait()

	return meta
}
