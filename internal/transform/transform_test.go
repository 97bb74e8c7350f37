package transform_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/assets"
	"github.com/rohmanhakim/docs-crawler/internal/extractor"
	"github.com/rohmanhakim/docs-crawler/internal/mdconvert"
	"github.com/rohmanhakim/docs-crawler/internal/normalize"
	"github.com/rohmanhakim/docs-crawler/internal/page"
	"github.com/rohmanhakim/docs-crawler/internal/sanitizer"
	"github.com/rohmanhakim/docs-crawler/internal/transform"
	"github.com/rohmanhakim/docs-crawler/pkg/failure"
	"github.com/rohmanhakim/docs-crawler/pkg/hashutil"
	"github.com/rohmanhakim/docs-crawler/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/net/html"
)

type extractorMock struct{ mock.Mock }

func (e *extractorMock) Extract(sourceUrl url.URL, htmlByte []byte) (extractor.ExtractionResult, failure.ClassifiedError) {
	args := e.Called(sourceUrl, htmlByte)
	result := args.Get(0).(extractor.ExtractionResult)
	var err failure.ClassifiedError
	if args.Get(1) != nil {
		err = args.Get(1).(failure.ClassifiedError)
	}
	return result, err
}
func (e *extractorMock) SetExtractParam(params extractor.ExtractParam) { e.Called(params) }

type sanitizerMock struct{ mock.Mock }

func (s *sanitizerMock) Sanitize(node *html.Node) (sanitizer.SanitizedHTMLDoc, failure.ClassifiedError) {
	args := s.Called(node)
	result := args.Get(0).(sanitizer.SanitizedHTMLDoc)
	var err failure.ClassifiedError
	if args.Get(1) != nil {
		err = args.Get(1).(failure.ClassifiedError)
	}
	return result, err
}

type convertMock struct{ mock.Mock }

func (c *convertMock) Convert(doc sanitizer.SanitizedHTMLDoc) (mdconvert.ConversionResult, failure.ClassifiedError) {
	args := c.Called(doc)
	result := args.Get(0).(mdconvert.ConversionResult)
	var err failure.ClassifiedError
	if args.Get(1) != nil {
		err = args.Get(1).(failure.ClassifiedError)
	}
	return result, err
}

// resolverStub satisfies assets.Resolver by always returning a fixed,
// pre-baked outcome, used to exercise the fatal/recoverable branches in
// MarkdownTransformer.Transform without testify's argument matching.
type resolverStub struct {
	doc assets.AssetfulMarkdownDoc
	err failure.ClassifiedError
}

func (r resolverStub) Resolve(
	ctx context.Context,
	pageUrl url.URL,
	conversionResult mdconvert.ConversionResult,
	resolveParam assets.ResolveParam,
	retryParam retry.RetryParam,
) (assets.AssetfulMarkdownDoc, failure.ClassifiedError) {
	return r.doc, r.err
}

type normalizeMock struct {
	normalize.MarkdownConstraint
	mock.Mock
}

func (n *normalizeMock) Normalize(
	fetchUrl url.URL,
	assetfulMarkdownDoc assets.AssetfulMarkdownDoc,
	normalizeParam normalize.NormalizeParam,
) (normalize.NormalizedMarkdownDoc, failure.ClassifiedError) {
	args := n.Called(fetchUrl, assetfulMarkdownDoc, normalizeParam)
	doc := args.Get(0).(normalize.NormalizedMarkdownDoc)
	var err failure.ClassifiedError
	if args.Get(1) != nil {
		err = args.Get(1).(failure.ClassifiedError)
	}
	return doc, err
}

type stubClassifiedError struct {
	msg      string
	severity failure.Severity
}

func (s *stubClassifiedError) Error() string              { return s.msg }
func (s *stubClassifiedError) Severity() failure.Severity { return s.severity }

func mustParseURL(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	assert.NoError(t, err)
	return *u
}

func newTestPage(t *testing.T) *page.Page {
	t.Helper()
	u := mustParseURL(t, "https://example.com/docs/start")
	return page.New(u, u, 200, map[string]string{}, []byte("<html><body>hi</body></html>"), time.Now(), 0)
}

func TestMarkdownTransformer_ChainsAllStagesInOrder(t *testing.T) {
	ext := &extractorMock{}
	san := &sanitizerMock{}
	conv := &convertMock{}
	resolver := resolverStub{}
	norm := &normalizeMock{}

	ext.On("Extract", mock.Anything, mock.Anything).
		Return(extractor.ExtractionResult{}, nil)
	san.On("Sanitize", mock.Anything).
		Return(sanitizer.SanitizedHTMLDoc{}, nil)
	conv.On("Convert", mock.Anything).
		Return(mdconvert.NewConversionResult([]byte("# hi"), []mdconvert.LinkRef{}), nil)

	expected := normalize.NewNormalizedMarkdownDoc(
		normalize.NewFrontmatter("t", "u", "u", 0, "h", "id", "sha", time.Time{}, "v"),
		[]byte("# hi"),
	)
	norm.On("Normalize", mock.Anything, mock.Anything, mock.Anything).Return(expected, nil)

	tr := transform.NewMarkdownTransformer(ext, san, conv, resolver, norm, transform.Param{
		OutputDir:    t.TempDir(),
		MaxAssetSize: 1 << 20,
		HashAlgo:     hashutil.HashAlgoBLAKE3,
	})

	got, err := tr.Transform(context.Background(), newTestPage(t))
	assert.Nil(t, err)
	assert.Equal(t, expected, got)

	ext.AssertExpectations(t)
	san.AssertExpectations(t)
	conv.AssertExpectations(t)
	norm.AssertExpectations(t)
}

func TestMarkdownTransformer_FatalExtractErrorShortCircuits(t *testing.T) {
	ext := &extractorMock{}
	san := &sanitizerMock{}
	conv := &convertMock{}
	resolver := resolverStub{}
	norm := &normalizeMock{}

	fatalErr := &stubClassifiedError{msg: "boom", severity: failure.SeverityFatal}
	ext.On("Extract", mock.Anything, mock.Anything).
		Return(extractor.ExtractionResult{}, fatalErr)

	tr := transform.NewMarkdownTransformer(ext, san, conv, resolver, norm, transform.Param{})
	_, err := tr.Transform(context.Background(), newTestPage(t))

	assert.Equal(t, fatalErr, err)
	san.AssertNotCalled(t, "Sanitize", mock.Anything)
	conv.AssertNotCalled(t, "Convert", mock.Anything)
	norm.AssertNotCalled(t, "Normalize", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkdownTransformer_FatalAssetErrorShortCircuits(t *testing.T) {
	ext := &extractorMock{}
	san := &sanitizerMock{}
	conv := &convertMock{}
	fatalErr := &stubClassifiedError{msg: "disk full", severity: failure.SeverityFatal}
	resolver := resolverStub{err: fatalErr}
	norm := &normalizeMock{}

	ext.On("Extract", mock.Anything, mock.Anything).Return(extractor.ExtractionResult{}, nil)
	san.On("Sanitize", mock.Anything).Return(sanitizer.SanitizedHTMLDoc{}, nil)
	conv.On("Convert", mock.Anything).Return(mdconvert.ConversionResult{}, nil)

	tr := transform.NewMarkdownTransformer(ext, san, conv, resolver, norm, transform.Param{})
	_, err := tr.Transform(context.Background(), newTestPage(t))

	assert.Equal(t, fatalErr, err)
	norm.AssertNotCalled(t, "Normalize", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkdownTransformer_RecoverableAssetErrorStillNormalizes(t *testing.T) {
	ext := &extractorMock{}
	san := &sanitizerMock{}
	conv := &convertMock{}
	resolver := resolverStub{err: &stubClassifiedError{msg: "timeout", severity: failure.SeverityRecoverable}}
	norm := &normalizeMock{}

	ext.On("Extract", mock.Anything, mock.Anything).Return(extractor.ExtractionResult{}, nil)
	san.On("Sanitize", mock.Anything).Return(sanitizer.SanitizedHTMLDoc{}, nil)
	conv.On("Convert", mock.Anything).Return(mdconvert.ConversionResult{}, nil)

	expected := normalize.NewNormalizedMarkdownDoc(normalize.Frontmatter{}, []byte("ok"))
	norm.On("Normalize", mock.Anything, mock.Anything, mock.Anything).Return(expected, nil)

	tr := transform.NewMarkdownTransformer(ext, san, conv, resolver, norm, transform.Param{})
	got, err := tr.Transform(context.Background(), newTestPage(t))

	assert.Nil(t, err)
	assert.Equal(t, expected, got)
}
