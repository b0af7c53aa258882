// Package pipeline turns fetched HTML into files on disk: it selects
// the main-content region, converts it to canonical text, harvests
// links and images, and writes the result into the site's output tree.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docscrape/docscrape/internal/detect"
	"github.com/docscrape/docscrape/internal/hashutil"
	"github.com/docscrape/docscrape/internal/htmldoc"
	"github.com/docscrape/docscrape/internal/model"
	"github.com/docscrape/docscrape/internal/store"
	"github.com/docscrape/docscrape/internal/urlutil"
)

// autoSelector is the content_selector value that delegates selector
// choice to the framework detector.
const autoSelector = "auto"

// Processor runs the content pipeline for one site.
type Processor struct {
	// ContentSelector is the site's selector, or "auto".
	ContentSelector string

	// AllowedDomain names the site's output subdirectory.
	AllowedDomain string

	// OutputBaseDir is the root of the output tree.
	OutputBaseDir string

	// SiteOutputDir is <OutputBaseDir>/<AllowedDomain>.
	SiteOutputDir string

	// SkipImages disables image harvesting.
	SkipImages bool

	// RespectNofollow drops anchors carrying a nofollow rel token.
	RespectNofollow bool

	// Detector caches framework detection per host.
	Detector *detect.Detector

	// Images receives Pending records for harvested images. Nil
	// disables persistence (tests).
	Images store.ImageOps
}

// NewProcessor creates a Processor writing under
// <outputBaseDir>/<allowedDomain>.
func NewProcessor(outputBaseDir, allowedDomain, contentSelector string, skipImages bool, images store.ImageOps) *Processor {
	if contentSelector == "" {
		contentSelector = autoSelector
	}
	return &Processor{
		ContentSelector: contentSelector,
		AllowedDomain:   allowedDomain,
		OutputBaseDir:   outputBaseDir,
		SiteOutputDir:   filepath.Join(outputBaseDir, allowedDomain),
		SkipImages:      skipImages,
		Detector:        detect.NewDetector(),
		Images:          images,
	}
}

// Process runs the pipeline on one parsed page and writes the converted
// text to disk. On failure the result carries the error and no file is
// written.
func (p *Processor) Process(doc *htmldoc.Document, finalURL string) model.ProcessResult {
	result := p.Extract(doc, finalURL)
	if !result.Success {
		return result
	}
	return p.Write(result, finalURL)
}

// OutputPath returns the deterministic on-disk location for a page.
func (p *Processor) OutputPath(finalURL string) string {
	return OutputFilePath(p.OutputBaseDir, p.AllowedDomain, finalURL)
}

// Extract runs the pipeline up to (but not including) the file write,
// so incremental crawls can compare content hashes first.
func (p *Processor) Extract(doc *htmldoc.Document, finalURL string) model.ProcessResult {
	var result model.ProcessResult
	result.Title = doc.Title()

	// Step 1: choose the selector.
	selector := p.ContentSelector
	if strings.EqualFold(selector, autoSelector) {
		selector = p.Detector.DetectForHost(urlutil.ExtractDomain(finalURL), doc).Selector
	}

	// Step 2: locate the content element, readability as last resort.
	content, found := doc.SelectFirst(selector)
	if !found || strings.TrimSpace(content.Text()) == "" {
		fallback, ok := detect.ReadabilityElement(doc)
		if !ok {
			result.Success = false
			result.Error = "content not found"
			return result
		}
		content = fallback
	}

	// Steps 3 and 4: convert and count.
	result.Markdown = ConvertToMarkdown(content)
	if strings.TrimSpace(result.Markdown) == "" {
		result.Success = false
		result.Error = "content empty after conversion"
		return result
	}
	result.ContentHash = hashutil.ContentHash(result.Markdown)
	result.TokenCount = CountTokens(result.Markdown)

	// Step 5: harvest raw links from the whole document.
	result.ExtractedLinks = HarvestLinks(doc, p.RespectNofollow)

	// Step 6: harvest images from the content element.
	if !p.SkipImages {
		images := p.harvestImages(content)
		for _, img := range images {
			result.ImageURLs = append(result.ImageURLs, img.OriginalURL)
		}
	}

	result.Success = true
	return result
}

// Write maps the output path and writes the converted text. Steps 7
// and 8 of the pipeline.
func (p *Processor) Write(result model.ProcessResult, finalURL string) model.ProcessResult {
	outPath := p.OutputPath(finalURL)
	if err := os.MkdirAll(filepath.Dir(outPath), 0750); err != nil {
		result.Success = false
		result.Error = fmt.Sprintf("failed to create output directory: %v", err)
		return result
	}
	if err := os.WriteFile(outPath, []byte(result.Markdown), 0640); err != nil {
		result.Success = false
		result.Error = fmt.Sprintf("failed to write output file: %v", err)
		return result
	}
	result.SavedFilePath = outPath
	return result
}

// harvestImages collects img elements under the content element and
// persists a Pending record for each. Downloads are deferred to the
// image worker pool.
func (p *Processor) harvestImages(content htmldoc.Element) []model.ImageData {
	var images []model.ImageData

	for _, img := range content.Select("img") {
		src := img.Attr("src")
		if src == "" {
			continue
		}

		data := model.ImageData{
			OriginalURL: src,
			LocalPath:   ImageFilePath(p.SiteOutputDir, src),
			Caption:     img.Attr("alt"),
		}
		images = append(images, data)

		if p.Images != nil {
			record := model.NewImageRecord(data.OriginalURL, data.LocalPath, data.Caption)
			_ = p.Images.UpdateImageStatus(src, record)
		}
	}

	return images
}
