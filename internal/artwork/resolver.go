package artwork

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pixelfin/pixelfin/internal/jellyfin"
)

// Reference is one located artwork image for a single category of a single
// item. Width and height of 0 mean the dimension probe failed.
type Reference struct {
	Code   string `json:"code"`
	Label  string `json:"label"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	LowRes bool   `json:"low_res"`
}

// Report is the classification result for one item across the requested
// categories. Both the gallery summary table and the per-item sections
// consume the same report, so the two views cannot disagree.
type Report struct {
	Missing []string               `json:"missing"`
	LowRes  []string               `json:"low_res"`
	Refs    map[string][]Reference `json:"refs"`
}

// MissingSet returns the missing labels as a lookup set.
func (r Report) MissingSet() map[string]bool {
	set := make(map[string]bool, len(r.Missing))
	for _, label := range r.Missing {
		set[label] = true
	}
	return set
}

// LowResSet returns the low-resolution labels as a lookup set.
func (r Report) LowResSet() map[string]bool {
	set := make(map[string]bool, len(r.LowRes))
	for _, label := range r.LowRes {
		set[label] = true
	}
	return set
}

// Resolver locates and classifies artwork references through a Jellyfin
// client, probing every candidate URL for its pixel dimensions.
type Resolver struct {
	client *jellyfin.Client
	minres MinResolutionSpec
}

func NewResolver(client *jellyfin.Client, minres MinResolutionSpec) *Resolver {
	if minres == nil {
		minres = MinResolutionSpec{}
	}
	return &Resolver{
		client: client,
		minres: minres,
	}
}

// Resolve returns every image reference for one category of one item, in a
// stable order: tagged variants first (sorted by tag key), indexed backdrops
// in sequence order, and an untagged fallback last. The fallback is probed
// before inclusion; a zero-width probe means there is no image behind the
// endpoint. With firstOnly the scan stops at the first hit, which is enough
// for presence checks.
func (r *Resolver) Resolve(ctx context.Context, item jellyfin.Item, cat Category, firstOnly bool) []Reference {
	var refs []Reference

	if cat.Code == "bd" {
		refs = r.resolveBackdrops(ctx, item, cat, firstOnly)
	} else {
		// Tag keys are prefix-matched so variants like "Primary2" count
		// toward the Primary category. Sorted keys keep the output order
		// stable across runs.
		keys := make([]string, 0, len(item.ImageTags))
		for key := range item.ImageTags {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		prefix := strings.ToLower(cat.Label)
		for _, key := range keys {
			if !strings.HasPrefix(strings.ToLower(key), prefix) {
				continue
			}
			url := r.client.ImageURL(item.Id, cat.Label, item.ImageTags[key])
			refs = append(refs, r.newReference(ctx, cat, cat.Label, url))
			if firstOnly {
				return refs
			}
		}
	}

	// The untagged endpoint can hold an image even when the item carries no
	// tags at all, backdrops included.
	if len(refs) == 0 {
		url := r.client.UntaggedImageURL(item.Id, cat.Label)
		width, height := r.client.ProbeDimensions(ctx, url)
		if width != 0 {
			refs = append(refs, Reference{
				Code:   cat.Code,
				Label:  cat.Label,
				URL:    url,
				Width:  width,
				Height: height,
				LowRes: r.minres.Below(cat.Code, width, height),
			})
		}
	}

	return refs
}

func (r *Resolver) resolveBackdrops(ctx context.Context, item jellyfin.Item, cat Category, firstOnly bool) []Reference {
	var refs []Reference
	for i, tag := range item.BackdropImageTags {
		label := cat.Label
		if len(item.BackdropImageTags) > 1 {
			label = fmt.Sprintf("%s (%d)", cat.Label, i)
		}
		url := r.client.BackdropURL(item.Id, i, tag)
		refs = append(refs, r.newReference(ctx, cat, label, url))
		if firstOnly {
			return refs
		}
	}
	return refs
}

func (r *Resolver) newReference(ctx context.Context, cat Category, label, url string) Reference {
	width, height := r.client.ProbeDimensions(ctx, url)
	return Reference{
		Code:   cat.Code,
		Label:  label,
		URL:    url,
		Width:  width,
		Height: height,
		LowRes: r.minres.Below(cat.Code, width, height),
	}
}

// Classify resolves every requested category of an item and buckets the
// results. A category with no references at all is missing; a category with
// at least one under-sized reference is low resolution. The two are not
// exclusive in general but a missing category can never be low resolution.
func (r *Resolver) Classify(ctx context.Context, item jellyfin.Item, cats []Category) Report {
	report := Report{Refs: make(map[string][]Reference, len(cats))}

	for _, cat := range cats {
		refs := r.Resolve(ctx, item, cat, false)
		if len(refs) == 0 {
			report.Missing = append(report.Missing, cat.Label)
			continue
		}

		report.Refs[cat.Code] = refs
		for _, ref := range refs {
			if ref.LowRes {
				report.LowRes = append(report.LowRes, cat.Label)
				break
			}
		}
	}

	return report
}
