package orchestrator

import (
	"kaizen/internal/scanner"
)

// PreviewResult lists what a sweep would do without touching anything.
type PreviewResult struct {
	ByRoot     map[string]*RootPreview
	GrandTotal int // Files that would be moved across all roots
}

// RootPreview contains the pending files of one watch root.
type RootPreview struct {
	Directory    string
	ByCategory   map[string][]string // category -> file paths
	Unrecognized []string
	Ignored      []string
	Total        int // Files that would be moved from this root
	Err          error
}

// Preview classifies the files in roots using the active settings. Missing
// or unreadable roots are included with Err set. A nil roots uses the
// configured watch paths.
func (o *Orchestrator) Preview(roots []string) *PreviewResult {
	if roots == nil {
		roots = o.holder.Load().WatchPaths
	}
	settings := o.worker.Settings()

	result := &PreviewResult{ByRoot: make(map[string]*RootPreview)}
	for _, root := range roots {
		rp := &RootPreview{Directory: root, ByCategory: make(map[string][]string)}
		result.ByRoot[root] = rp

		files, err := scanner.Scan(root)
		if err != nil {
			rp.Err = err
			continue
		}
		for _, f := range files {
			if settings.Filter != nil && settings.Filter.ShouldIgnore(f.FullPath) {
				rp.Ignored = append(rp.Ignored, f.FullPath)
				continue
			}
			category, ok := settings.Classifier.Classify(f.Name)
			if !ok {
				rp.Unrecognized = append(rp.Unrecognized, f.FullPath)
				continue
			}
			rp.ByCategory[category] = append(rp.ByCategory[category], f.FullPath)
			rp.Total++
		}
		result.GrandTotal += rp.Total
	}
	return result
}
