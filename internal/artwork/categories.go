package artwork

import (
	_ "embed"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var categoriesYAML []byte

// Category is one artwork kind Jellyfin can attach to an item. Code is the
// short selector used on the command line and in the minimum-resolution
// syntax, Label is the Jellyfin image type name, Basename is the default
// archive filename and Column places the category in the gallery layout.
type Category struct {
	Code     string `yaml:"code"`
	Label    string `yaml:"label"`
	Basename string `yaml:"basename"`
	Column   string `yaml:"column"`
}

var (
	categories []Category
	byCode     map[string]Category
)

func init() {
	var parsed struct {
		Categories []Category `yaml:"categories"`
	}
	if err := yaml.Unmarshal(categoriesYAML, &parsed); err != nil {
		panic("could not parse embedded categories: " + err.Error())
	}

	categories = parsed.Categories
	byCode = make(map[string]Category, len(categories))
	for _, cat := range categories {
		byCode[cat.Code] = cat
	}
}

// All returns every known category in layout order.
func All() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ByCode looks up a category by its short code.
func ByCode(code string) (Category, bool) {
	cat, ok := byCode[code]
	return cat, ok
}

// ParseCodes turns a comma-separated code list ("p,bd,l") into categories,
// preserving the caller's order. Unknown codes are silently dropped.
func ParseCodes(raw string) []Category {
	var out []Category
	for _, code := range strings.Split(raw, ",") {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if cat, ok := byCode[code]; ok {
			out = append(out, cat)
		}
	}
	return out
}

// CodeList renders categories back to the comma-separated form.
func CodeList(cats []Category) string {
	codes := make([]string, len(cats))
	for i, cat := range cats {
		codes[i] = cat.Code
	}
	return strings.Join(codes, ",")
}
