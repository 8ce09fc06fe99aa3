package artwork

import (
	"strconv"
	"strings"
)

// MinResolution is the smallest acceptable size for one category. A zero
// width means no floor is configured.
type MinResolution struct {
	Width  int
	Height int
}

// MinResolutionSpec maps category codes to their resolution floors.
type MinResolutionSpec map[string]MinResolution

// ParseMinRes parses the "code:WxH;code:WxH" floor syntax. Malformed
// segments and unknown codes are skipped, matching the forgiving handling of
// unknown category codes elsewhere.
func ParseMinRes(raw string) MinResolutionSpec {
	spec := MinResolutionSpec{}
	for _, segment := range strings.Split(raw, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		code, dims, ok := strings.Cut(segment, ":")
		if !ok {
			continue
		}
		if _, known := ByCode(code); !known {
			continue
		}

		ws, hs, ok := strings.Cut(dims, "x")
		if !ok {
			continue
		}
		w, errW := strconv.Atoi(strings.TrimSpace(ws))
		h, errH := strconv.Atoi(strings.TrimSpace(hs))
		if errW != nil || errH != nil || w <= 0 || h <= 0 {
			continue
		}

		spec[code] = MinResolution{Width: w, Height: h}
	}
	return spec
}

// Below reports whether a probed image falls under the configured floor for
// the given category. Unprobed images (width 0) are never considered
// low resolution; they surface as missing instead.
func (s MinResolutionSpec) Below(code string, width, height int) bool {
	floor, ok := s[code]
	if !ok || floor.Width == 0 {
		return false
	}
	if width == 0 {
		return false
	}
	return width < floor.Width || height < floor.Height
}

// String renders the spec back into the "code:WxH;code:WxH" form in layout
// order, for logging and history persistence.
func (s MinResolutionSpec) String() string {
	var parts []string
	for _, cat := range All() {
		if floor, ok := s[cat.Code]; ok {
			parts = append(parts, cat.Code+":"+strconv.Itoa(floor.Width)+"x"+strconv.Itoa(floor.Height))
		}
	}
	return strings.Join(parts, ";")
}
