// Package gallery renders the offline artwork inventory as a single HTML
// document: a summary table of missing and undersized categories followed by
// per-item image sections and a shared lightbox.
package gallery

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/pixelfin/pixelfin/internal/artwork"
	"github.com/pixelfin/pixelfin/internal/staging"
)

// Style carries the caller-selectable colors of the document.
type Style struct {
	Background string
	Text       string
	TableBG    string
}

// DefaultStyle matches the dark theme of the web form.
func DefaultStyle() Style {
	return Style{
		Background: "#222",
		Text:       "#eee",
		TableBG:    "#333",
	}
}

// Renderer streams the gallery document from a staging store. It never holds
// more than one staged record in memory; the store provides the
// case-insensitive alphabetical order for both the summary table and the
// sections.
type Renderer struct {
	baseURL    string
	library    string
	categories []artwork.Category
	style      Style
	timestamp  string
}

func NewRenderer(baseURL, library string, categories []artwork.Category, style Style, timestamp string) *Renderer {
	return &Renderer{
		baseURL:    baseURL,
		library:    library,
		categories: categories,
		style:      style,
		timestamp:  timestamp,
	}
}

// htmlWriter accumulates the first write error so the fragment methods can
// stay unconditional.
type htmlWriter struct {
	w   *bufio.Writer
	err error
}

func (hw *htmlWriter) writef(format string, args ...any) {
	if hw.err != nil {
		return
	}
	_, hw.err = fmt.Fprintf(hw.w, format, args...)
}

func (hw *htmlWriter) write(s string) {
	if hw.err != nil {
		return
	}
	_, hw.err = hw.w.WriteString(s)
}

func (hw *htmlWriter) flush() error {
	if hw.err != nil {
		return hw.err
	}
	return hw.w.Flush()
}

// Render writes the full document to w. The store is walked twice, once for
// the summary table and once for the sections; both walks see the same
// order, so the table anchors always land on a matching section.
func (r *Renderer) Render(w io.Writer, store *staging.Store) error {
	hw := &htmlWriter{w: bufio.NewWriter(w)}

	r.writeHead(hw)

	if err := r.writeSummaryTable(hw, store); err != nil {
		return fmt.Errorf("could not render summary table: %w", err)
	}

	if err := r.writeSections(hw, store); err != nil {
		return fmt.Errorf("could not render item sections: %w", err)
	}

	r.writeLightbox(hw)
	hw.write("</body></html>\n")

	if err := hw.flush(); err != nil {
		return fmt.Errorf("could not write gallery document: %w", err)
	}
	return nil
}

func (r *Renderer) writeHead(hw *htmlWriter) {
	hw.writef(`<html>
<head>
<meta charset="utf-8">
<title>Jellyfin Images - %s</title>
<style>
body { background-color: %s; color: %s; font-family: Arial, sans-serif; margin: 20px; }
a { color: inherit; }
.movie { margin-bottom: 60px; }
.entry-title a { text-decoration: none; }
.image-row { display: flex; gap: 20px; align-items: flex-start; }
.left-column { flex: 0 0 33%%; display: flex; flex-direction: column; gap: 10px; min-width: 0; }
.right-column { flex: 0 0 67%%; display: flex; flex-direction: column; gap: 10px; min-width: 0; }
.box-row { display: flex; gap: 10px; }
.box-row .image-grid { flex: 1 1 33%%; min-width: 0; }
.image-grid img { width: 100%%; height: auto; display: block; cursor: pointer; border: 2px solid #ccc; border-radius: 5px; }
.logo-img { width: 60%%; height: auto; display: block; }
.banner-full { width: 100%%; height: auto; display: block; }
.resolution { font-size: 14px; opacity: 0.9; }
.lowres { color: #ff6b6b; }
.placeholder { border: 2px dashed red; border-radius: 5px; color: red; font-weight: bold; display: flex; align-items: center; justify-content: center; height: 150px; }
.missing-list { color: red; font-weight: bold; text-align: center; margin-top: auto; }
table { border-collapse: collapse; margin-bottom: 40px; width: 100%%; background-color: %s; }
th, td { border: 1px solid #555; padding: 6px 10px; text-align: left; }
.scroll-top { margin-top: 10px; }
.lightbox { display: none; position: fixed; z-index: 10; left: 0; top: 0; width: 100%%; height: 100%%; overflow: auto; background-color: rgba(0,0,0,0.9); }
.lightbox-content { position: relative; margin: auto; max-width: 90%%; max-height: 90%%; text-align: center; }
.lightbox-content img { max-width: 100%%; max-height: 80vh; margin-top: 10px; cursor: pointer; }
.lightbox-caption { color: #eee; margin-top: 20px; }
.lightbox-buttons { margin-top: 10px; }
.lightbox-buttons button { font-size: 16px; padding: 10px 16px; min-width: 110px; line-height: 1; border-radius: 6px; }
</style>
</head>
<body>
<div class="backlink" id="top"><a href="/">&larr; Back to Main Page</a></div>
<h1>%s</h1>
<p>Generated: %s</p>
`,
		html.EscapeString(r.library),
		r.style.Background, r.style.Text, r.style.TableBG,
		html.EscapeString(r.library), html.EscapeString(r.timestamp))
}

func (r *Renderer) writeSummaryTable(hw *htmlWriter, store *staging.Store) error {
	hw.write("<h2>Missing Image Types Summary</h2>\n<table><tr><th>Item Name</th>")
	for _, cat := range r.categories {
		hw.writef("<th>%s</th>", cat.Label)
	}
	hw.write("</tr>\n")

	err := store.Walk(func(rec staging.Record) error {
		missing := rec.Report.MissingSet()
		lowRes := rec.Report.LowResSet()

		hw.writef(`<tr><td><a href="#item_%s">%s</a></td>`, rec.ItemID, html.EscapeString(rec.Name))
		for _, cat := range r.categories {
			switch {
			case missing[cat.Label]:
				hw.write("<td>Yes</td>")
			case lowRes[cat.Label]:
				hw.write("<td>Low</td>")
			default:
				hw.write("<td></td>")
			}
		}
		hw.write("</tr>\n")
		return hw.err
	})
	if err != nil {
		return err
	}

	hw.write("</table>\n")
	return hw.err
}

func (r *Renderer) writeSections(hw *htmlWriter, store *staging.Store) error {
	var left []artwork.Category
	requested := make(map[string]artwork.Category, len(r.categories))
	for _, cat := range r.categories {
		requested[cat.Code] = cat
		if cat.Column == "left" {
			left = append(left, cat)
		}
	}

	// Layout order, left column first, for the per-item missing list.
	ordered := append([]artwork.Category{}, left...)
	for _, code := range []string{"bd", "bn", "b", "br", "d", "l"} {
		if cat, ok := requested[code]; ok {
			ordered = append(ordered, cat)
		}
	}

	return store.Walk(func(rec staging.Record) error {
		linkURL := fmt.Sprintf("%s/web/index.html#!/details?id=%s", r.baseURL, rec.ItemID)
		name := html.EscapeString(rec.Name)

		hw.writef(`<div class="movie" id="item_%s"><h2 class="entry-title"><a target="_blank" href="%s">%s</a></h2>`+"\n",
			rec.ItemID, linkURL, name)
		hw.write(`<div class="image-row">` + "\n")

		hw.write(`<div class="left-column">` + "\n")
		for _, cat := range left {
			r.writeCategory(hw, rec, cat, "")
		}

		// The missing categories of the whole item, pinned to the bottom of
		// the left column.
		missing := rec.Report.MissingSet()
		var missingLabels []string
		for _, cat := range ordered {
			if missing[cat.Label] {
				missingLabels = append(missingLabels, cat.Label)
			}
		}
		if len(missingLabels) > 0 {
			hw.writef(`<div class="missing-list">Missing:<br>%s</div>`+"\n", strings.Join(missingLabels, ", "))
		}
		hw.write("</div>\n")

		hw.write(`<div class="right-column">` + "\n")
		if cat, ok := requested["bd"]; ok {
			r.writeCategory(hw, rec, cat, "banner-full")
		}
		if cat, ok := requested["bn"]; ok {
			r.writeCategory(hw, rec, cat, "banner-full")
		}

		// Box, BoxRear and Disc share one row, a third of the width each.
		hw.write(`<div class="box-row">` + "\n")
		for _, code := range []string{"b", "br", "d"} {
			if cat, ok := requested[code]; ok {
				r.writeCategory(hw, rec, cat, "")
			}
		}
		hw.write("</div>\n")

		if cat, ok := requested["l"]; ok {
			r.writeCategory(hw, rec, cat, "logo-img")
		}
		hw.write("</div>\n")

		hw.write("</div>\n")
		hw.write(`<div class="scroll-top"><a href="#top">&uarr; Scroll to Top</a></div>` + "\n")
		hw.write("</div>\n")
		return hw.err
	})
}

func (r *Renderer) writeCategory(hw *htmlWriter, rec staging.Record, cat artwork.Category, imgClass string) {
	refs := rec.Report.Refs[cat.Code]
	if len(refs) == 0 {
		hw.writef(`<div class="image-grid"><div class="placeholder">Missing: %s</div></div>`+"\n", cat.Label)
		return
	}

	name := html.EscapeString(rec.Name)
	for _, ref := range refs {
		caption := fmt.Sprintf("%s - %s (%dx%d)", name, ref.Label, ref.Width, ref.Height)
		captionClass := "resolution"
		sizeNote := fmt.Sprintf("%s %dx%d", ref.Label, ref.Width, ref.Height)
		if ref.LowRes {
			captionClass = "resolution lowres"
			sizeNote += " (low resolution)"
		}

		class := ""
		if imgClass != "" {
			class = fmt.Sprintf(` class="%s"`, imgClass)
		}

		hw.writef(`<div class="image-grid">
  <a href="#lightbox" onclick="openLightbox('%s', this.querySelector('img').src); return false;">
    <img src="%s"%s alt="%s" loading="lazy">
  </a>
  <div class="%s">%s</div>
</div>
`, rec.ItemID, html.EscapeString(ref.URL), class, caption, captionClass, sizeNote)
	}
}

func (r *Renderer) writeLightbox(hw *htmlWriter) {
	hw.write(`<div id="lightbox" class="lightbox" onclick="clickOutside(event)">
  <div class="lightbox-content">
    <div class="lightbox-caption" id="lightbox-caption"></div>
    <img id="lightbox-img" src="" onclick="closeLightbox()">
    <div class="lightbox-buttons">
      <button onclick="prevImage(event)">&#9664; Prev</button>
      <button onclick="nextImage(event)">Next &#9654;</button>
      <button onclick="closeLightbox()">Close &#10006;</button>
    </div>
  </div>
</div>
<script>
let currentImages = [];
let currentIndex = 0;

function openLightbox(entryId, src) {
  currentImages = [];
  const imgs = document.querySelectorAll("#item_" + entryId + " img");
  imgs.forEach(i => currentImages.push({src: i.src, caption: i.alt || ""}));
  const idx = currentImages.findIndex(i => i.src === src);
  currentIndex = idx >= 0 ? idx : 0;
  showImage();
  document.getElementById('lightbox').style.display = 'block';
}

function showImage() {
  if (!currentImages.length) return;
  document.getElementById('lightbox-img').src = currentImages[currentIndex].src;
  document.getElementById('lightbox-caption').innerText = currentImages[currentIndex].caption;
}

function closeLightbox() {
  document.getElementById('lightbox').style.display = 'none';
  currentImages = [];
  currentIndex = 0;
}

function prevImage(e) { e.stopPropagation(); if (!currentImages.length) return; currentIndex = (currentIndex - 1 + currentImages.length) % currentImages.length; showImage(); }
function nextImage(e) { e.stopPropagation(); if (!currentImages.length) return; currentIndex = (currentIndex + 1) % currentImages.length; showImage(); }
function clickOutside(e) { if (e.target.id === 'lightbox') { closeLightbox(); } }

document.addEventListener('keydown', function(e) {
  if (e.key === 'Escape') closeLightbox();
  else if (e.key === 'ArrowLeft') prevImage(e);
  else if (e.key === 'ArrowRight') nextImage(e);
});
</script>
`)
}
