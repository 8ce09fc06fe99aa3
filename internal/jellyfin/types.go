package jellyfin

import "time"

// User represents a Jellyfin user account.
type User struct {
	Id       string `json:"Id"`
	Name     string `json:"Name"`
	IsHidden bool   `json:"IsHidden"`
}

// View represents a library view (a top-level library the user can browse).
type View struct {
	Id             string `json:"Id"`
	Name           string `json:"Name"`
	CollectionType string `json:"CollectionType"`
}

type viewsResponse struct {
	Items []View `json:"Items"`
}

// Item represents one catalog entry: a movie, series, album, artist and so
// on. Optional fields decode to their zero value when the server omits them.
type Item struct {
	Id                string            `json:"Id"`
	Name              string            `json:"Name"`
	Type              string            `json:"Type"`
	ProductionYear    int               `json:"ProductionYear"`
	PremiereDate      string            `json:"PremiereDate"`
	ImageTags         map[string]string `json:"ImageTags"`
	BackdropImageTags []string          `json:"BackdropImageTags"`
}

// Year returns the best known release year for the item: the production year
// when set, otherwise the year of the premiere date, otherwise 0.
func (i Item) Year() int {
	if i.ProductionYear > 0 {
		return i.ProductionYear
	}
	if i.PremiereDate != "" {
		if t, err := time.Parse(time.RFC3339, i.PremiereDate); err == nil {
			return t.Year()
		}
		// Some servers send a date without a time component.
		if t, err := time.Parse("2006-01-02", i.PremiereDate); err == nil {
			return t.Year()
		}
	}
	return 0
}

type itemsResponse struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}
