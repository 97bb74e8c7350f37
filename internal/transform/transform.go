// Package transform turns a fetched Page into a normalized, write-ready
// document. It is the single collaborator the crawl engine depends on for
// content transformation, decoupling the in-scope crawl loop from the
// out-of-scope HTML-to-Markdown pipeline.
package transform

import (
	"context"

	"github.com/rohmanhakim/docs-crawler/internal/assets"
	"github.com/rohmanhakim/docs-crawler/internal/build"
	"github.com/rohmanhakim/docs-crawler/internal/extractor"
	"github.com/rohmanhakim/docs-crawler/internal/mdconvert"
	"github.com/rohmanhakim/docs-crawler/internal/normalize"
	"github.com/rohmanhakim/docs-crawler/internal/page"
	"github.com/rohmanhakim/docs-crawler/internal/sanitizer"
	"github.com/rohmanhakim/docs-crawler/pkg/failure"
	"github.com/rohmanhakim/docs-crawler/pkg/hashutil"
	"github.com/rohmanhakim/docs-crawler/pkg/retry"
)

// Transformer is the only content-transformation dependency the engine
// knows about. The engine never imports extractor, sanitizer, mdconvert,
// assets, or normalize directly; all of it lives behind this boundary.
type Transformer interface {
	Transform(ctx context.Context, p *page.Page) (normalize.NormalizedMarkdownDoc, failure.ClassifiedError)
}

// Param tunes a transform pass with the subset of crawl configuration the
// downstream pipeline stages need.
type Param struct {
	OutputDir           string
	MaxAssetSize        int64
	HashAlgo            hashutil.HashAlgo
	AllowedPathPrefixes []string
	RetryParam          retry.RetryParam
}

// MarkdownTransformer chains extraction, sanitization, Markdown conversion,
// asset resolution, and frontmatter normalization into a single pass over a
// fetched Page. It holds no crawl-control state of its own: a failure here
// is reported to the caller for scheduling, never decided here.
type MarkdownTransformer struct {
	domExtractor   extractor.Extractor
	htmlSanitizer  sanitizer.Sanitizer
	conversionRule mdconvert.ConvertRule
	assetResolver  assets.Resolver
	constraint     normalize.Constraint
	param          Param
}

func NewMarkdownTransformer(
	domExtractor extractor.Extractor,
	htmlSanitizer sanitizer.Sanitizer,
	conversionRule mdconvert.ConvertRule,
	assetResolver assets.Resolver,
	constraint normalize.Constraint,
	param Param,
) *MarkdownTransformer {
	return &MarkdownTransformer{
		domExtractor:   domExtractor,
		htmlSanitizer:  htmlSanitizer,
		conversionRule: conversionRule,
		assetResolver:  assetResolver,
		constraint:     constraint,
		param:          param,
	}
}

var _ Transformer = (*MarkdownTransformer)(nil)

func (m *MarkdownTransformer) Transform(
	ctx context.Context,
	p *page.Page,
) (normalize.NormalizedMarkdownDoc, failure.ClassifiedError) {
	extraction, err := m.domExtractor.Extract(p.RequestedURL(), p.Body())
	if err != nil {
		return normalize.NormalizedMarkdownDoc{}, err
	}

	sanitized, err := m.htmlSanitizer.Sanitize(extraction.ContentNode)
	if err != nil {
		return normalize.NormalizedMarkdownDoc{}, err
	}

	converted, err := m.conversionRule.Convert(sanitized)
	if err != nil {
		return normalize.NormalizedMarkdownDoc{}, err
	}

	resolveParam := assets.NewResolveParam(m.param.OutputDir, m.param.MaxAssetSize)
	assetful, err := m.assetResolver.Resolve(ctx, p.FinalURL(), converted, resolveParam, m.param.RetryParam)
	if err != nil {
		if err.Severity() == failure.SeverityFatal {
			return normalize.NormalizedMarkdownDoc{}, err
		}
		// Asset resolution is recoverable: the resolver has already recorded
		// the failure, the document proceeds with whatever assets resolved.
	}

	normalizeParam := normalize.NewNormalizeParam(
		build.FullVersion(),
		p.FetchedAt(),
		m.param.HashAlgo,
		p.Depth(),
		m.param.AllowedPathPrefixes,
	)
	normalized, normErr := m.constraint.Normalize(p.FinalURL(), assetful, normalizeParam)
	if normErr != nil {
		return normalize.NormalizedMarkdownDoc{}, normErr
	}

	return normalized, nil
}
