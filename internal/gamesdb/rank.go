package gamesdb

import (
	"encoding/xml"
	"sort"
	"strconv"
	"strings"
)

// Element is a generic XML node from the GetArt response.
type Element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []Element  `xml:",any"`
}

// Tag returns the element's local name.
func (e Element) Tag() string {
	return e.XMLName.Local
}

// Attr returns the named attribute, or "".
func (e Element) Attr(name string) string {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// Child returns the first child with the given tag.
func (e Element) Child(tag string) (Element, bool) {
	for _, c := range e.Children {
		if c.Tag() == tag {
			return c, true
		}
	}
	return Element{}, false
}

// Candidate is a ranked image.
type Candidate struct {
	Tag   string
	Path  string
	Score int64
}

// rule says how to score an image element and where its path lives.
type rule struct {
	score func(Element) int64
	path  func(Element) string
}

// Full-size fanart and screenshots describe themselves in a nested
// <original> element; boxart and banners carry size on the element itself.
var (
	nestedOriginal = rule{
		score: func(e Element) int64 {
			o, _ := e.Child("original")
			return area(o)
		},
		path: func(e Element) string {
			o, _ := e.Child("original")
			return strings.TrimSpace(o.Text)
		},
	}
	ownSize = rule{
		score: area,
		path:  ownText,
	}
	unscored = rule{
		score: func(Element) int64 { return 0 },
		path:  ownText,
	}
)

var rules = map[string]rule{
	"fanart":     nestedOriginal,
	"screenshot": nestedOriginal,
	"boxart":     ownSize,
	"banner":     ownSize,
}

func ruleFor(tag string) rule {
	if r, ok := rules[tag]; ok {
		return r
	}
	return unscored
}

func ownText(e Element) string {
	return strings.TrimSpace(e.Text)
}

// area is width*height; missing or malformed dimensions count as zero.
func area(e Element) int64 {
	w, err := strconv.ParseInt(strings.TrimSpace(e.Attr("width")), 10, 64)
	if err != nil {
		return 0
	}
	h, err := strconv.ParseInt(strings.TrimSpace(e.Attr("height")), 10, 64)
	if err != nil {
		return 0
	}
	return w * h
}

// Score returns the ranking score of an image element.
func Score(e Element) int64 {
	return ruleFor(e.Tag()).score(e)
}

// Path returns the relative image path held by an image element.
func Path(e Element) string {
	return ruleFor(e.Tag()).path(e)
}

// Rank orders images by descending score. Equal scores keep document order.
func Rank(images []Element) []Candidate {
	out := make([]Candidate, 0, len(images))
	for _, img := range images {
		out = append(out, Candidate{Tag: img.Tag(), Path: Path(img), Score: Score(img)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
