// Package static holds the embedded run form.
package static

import _ "embed"

//go:embed index.html
var indexHTML []byte

// Index returns the run form page.
func Index() []byte {
	return indexHTML
}
