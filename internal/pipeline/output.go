package pipeline

import (
	"path/filepath"
	"strings"

	"github.com/docscrape/docscrape/internal/hashutil"
	"github.com/docscrape/docscrape/internal/urlutil"
)

// OutputFilePath maps a page URL to its on-disk location under the
// site's output tree: <baseDir>/<allowedDomain>/<url-derived-path>.md.
// The URL path is sanitized segment-by-segment, .html/.htm become .md,
// extensionless paths get .md appended, and the empty path maps to
// index.md.
func OutputFilePath(baseDir, allowedDomain, pageURL string) string {
	path := urlutil.ExtractPath(pageURL)
	path = strings.Trim(path, "/")

	if path == "" {
		return filepath.Join(baseDir, allowedDomain, "index.md")
	}

	segments := strings.Split(path, "/")
	for i, seg := range segments {
		seg = hashutil.SanitizeFilename(seg)
		// Dot segments survive sanitation; neutralize them so no URL
		// can map outside the site's output tree.
		if seg == ".." || seg == "." {
			seg = "_"
		}
		segments[i] = seg
	}
	rel := filepath.Join(segments...)

	switch ext := strings.ToLower(filepath.Ext(rel)); ext {
	case ".html", ".htm":
		rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + ".md"
	case "":
		rel += ".md"
	default:
		// Other extensions stay as-is.
	}

	return filepath.Join(baseDir, allowedDomain, rel)
}

// ImageFilePath maps an image URL to its deterministic location under
// the site's output tree: <siteOutputDir>/images/img_<hash(url)>.bin.
func ImageFilePath(siteOutputDir, imageURL string) string {
	return filepath.Join(siteOutputDir, "images", "img_"+hashutil.URLHash(imageURL)+".bin")
}
