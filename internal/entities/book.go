package entities

import (
	"encoding/json"
	"errors"
	"slices"
)

// ErrMissingBookID is returned when decoding a book record without an id.
var ErrMissingBookID = errors.New("book record has no id")

// BookRecord describes one catalog entry. It is a value type: records are
// produced by the catalog lookup and never mutated afterwards.
type BookRecord struct {
	ID            string
	Title         string
	Authors       []string
	ThumbnailURL  string
	Description   string
	Categories    []string
	Publisher     string
	PublishedDate string

	// extra is the stored volume when it carried fields the record does not
	// model. MarshalJSON writes them back unchanged.
	extra json.RawMessage
}

// volumeJSON is the stored shape of a book record. It mirrors a Google Books
// volume item so that favorites saved by the browser client stay readable.
type volumeJSON struct {
	ID         string         `json:"id"`
	VolumeInfo volumeInfoJSON `json:"volumeInfo"`
}

type volumeInfoJSON struct {
	Title         string          `json:"title"`
	Authors       []string        `json:"authors,omitempty"`
	ImageLinks    *imageLinksJSON `json:"imageLinks,omitempty"`
	Description   string          `json:"description,omitempty"`
	Categories    []string        `json:"categories,omitempty"`
	Publisher     string          `json:"publisher,omitempty"`
	PublishedDate string          `json:"publishedDate,omitempty"`
}

type imageLinksJSON struct {
	Thumbnail string `json:"thumbnail,omitempty"`
}

// infoKeys are the volumeInfo members a BookRecord owns, imageLinks aside.
var infoKeys = []string{"title", "authors", "description", "categories", "publisher", "publishedDate"}

func (b BookRecord) MarshalJSON() ([]byte, error) {
	v := volumeJSON{
		ID: b.ID,
		VolumeInfo: volumeInfoJSON{
			Title:         b.Title,
			Authors:       b.Authors,
			Description:   b.Description,
			Categories:    b.Categories,
			Publisher:     b.Publisher,
			PublishedDate: b.PublishedDate,
		},
	}
	if b.ThumbnailURL != "" {
		v.VolumeInfo.ImageLinks = &imageLinksJSON{Thumbnail: b.ThumbnailURL}
	}
	if b.extra == nil {
		return json.Marshal(v)
	}
	return overlayVolume(b.extra, v)
}

// overlayVolume writes the modelled fields of v over a stored volume, leaving
// every other member in place.
func overlayVolume(stored json.RawMessage, v volumeJSON) ([]byte, error) {
	known, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var top, knownTop map[string]json.RawMessage
	if err := json.Unmarshal(stored, &top); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(known, &knownTop); err != nil {
		return nil, err
	}
	info, err := objectMembers(top["volumeInfo"])
	if err != nil {
		return nil, err
	}
	knownInfo, err := objectMembers(knownTop["volumeInfo"])
	if err != nil {
		return nil, err
	}

	for _, k := range infoKeys {
		if raw, ok := knownInfo[k]; ok {
			info[k] = raw
		} else {
			delete(info, k)
		}
	}

	links, err := objectMembers(info["imageLinks"])
	if err != nil {
		return nil, err
	}
	if v.VolumeInfo.ImageLinks != nil {
		thumb, err := json.Marshal(v.VolumeInfo.ImageLinks.Thumbnail)
		if err != nil {
			return nil, err
		}
		links["thumbnail"] = thumb
	} else {
		delete(links, "thumbnail")
	}
	if len(links) == 0 {
		delete(info, "imageLinks")
	} else if info["imageLinks"], err = json.Marshal(links); err != nil {
		return nil, err
	}

	if top["volumeInfo"], err = json.Marshal(info); err != nil {
		return nil, err
	}
	top["id"] = knownTop["id"]
	return json.Marshal(top)
}

// objectMembers decodes a JSON object into its members. Absent or null input
// gives an empty map.
func objectMembers(raw json.RawMessage) (map[string]json.RawMessage, error) {
	members := map[string]json.RawMessage{}
	if len(raw) == 0 {
		return members, nil
	}
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, err
	}
	if members == nil {
		members = map[string]json.RawMessage{}
	}
	return members, nil
}

// hasUnmodelled reports whether a volume carries members BookRecord drops.
func hasUnmodelled(data []byte) bool {
	top, err := objectMembers(data)
	if err != nil {
		return false
	}
	for k := range top {
		if k != "id" && k != "volumeInfo" {
			return true
		}
	}
	info, err := objectMembers(top["volumeInfo"])
	if err != nil {
		return false
	}
	for k := range info {
		if k == "imageLinks" || slices.Contains(infoKeys, k) {
			continue
		}
		return true
	}
	links, err := objectMembers(info["imageLinks"])
	if err != nil {
		return false
	}
	for k := range links {
		if k != "thumbnail" {
			return true
		}
	}
	return false
}

func (b *BookRecord) UnmarshalJSON(data []byte) error {
	var v volumeJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.ID == "" {
		return ErrMissingBookID
	}

	*b = BookRecord{
		ID:            v.ID,
		Title:         v.VolumeInfo.Title,
		Authors:       v.VolumeInfo.Authors,
		Description:   v.VolumeInfo.Description,
		Categories:    v.VolumeInfo.Categories,
		Publisher:     v.VolumeInfo.Publisher,
		PublishedDate: v.VolumeInfo.PublishedDate,
	}
	if v.VolumeInfo.ImageLinks != nil {
		b.ThumbnailURL = v.VolumeInfo.ImageLinks.Thumbnail
	}
	if hasUnmodelled(data) {
		b.extra = append(json.RawMessage(nil), data...)
	}
	return nil
}

// AuthorLine joins the authors for display, falling back to a placeholder.
func (b BookRecord) AuthorLine() string {
	if len(b.Authors) == 0 {
		return "Unknown Author"
	}
	line := b.Authors[0]
	for _, a := range b.Authors[1:] {
		line += ", " + a
	}
	return line
}
