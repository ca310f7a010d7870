package present

import (
	"passages/pkg/index"
	"passages/pkg/model"
)

// Card is one entry in the narrative card list.
type Card struct {
	NarrativeID string `json:"narrative_id"`
	Position    int    `json:"position"`
	Color       string `json:"color"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	ShortTitle  string `json:"short_title"`
	Img         string `json:"img"`
	Published   string `json:"date_of_publication,omitempty"`
	Waypoints   int    `json:"waypoints"`
}

// Cards builds the card list in display order. Narratives whose metadata is
// missing or lacks an image, author or short title get no card; they remain
// selectable from the map.
func Cards(c *index.Collection, meta []model.Metadata) []Card {
	byID := make(map[string]*model.Metadata, len(meta))
	for i := range meta {
		byID[meta[i].NarrativeID] = &meta[i]
	}

	cards := make([]Card, 0, len(meta))
	for pos, id := range c.Order() {
		m, ok := byID[id]
		if !ok || !m.CardReady() {
			continue
		}
		n, _ := c.Get(id)
		cards = append(cards, Card{
			NarrativeID: id,
			Position:    pos,
			Color:       c.Color(id),
			Author:      m.Author,
			Title:       m.Title,
			ShortTitle:  m.ShortTitle,
			Img:         m.Img,
			Published:   m.DateOfPublication,
			Waypoints:   n.Len(),
		})
	}
	return cards
}

// TextRow is one row of the source texts table.
type TextRow struct {
	NarrativeID string `json:"narrative_id"`
	Img         string `json:"img"`
	Author      string `json:"author"`
	ShortTitle  string `json:"short_title"`
	Published   string `json:"date_of_publication"`
	Filename    string `json:"filename"`
}

// Texts returns table rows in metadata order, skipping records without a
// publication date.
func Texts(meta []model.Metadata) []TextRow {
	rows := make([]TextRow, 0, len(meta))
	for i := range meta {
		m := &meta[i]
		if !m.TableReady() {
			continue
		}
		rows = append(rows, TextRow{
			NarrativeID: m.NarrativeID,
			Img:         m.Img,
			Author:      m.Author,
			ShortTitle:  m.ShortTitle,
			Published:   m.DateOfPublication,
			Filename:    m.Filename,
		})
	}
	return rows
}
