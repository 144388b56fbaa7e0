package store

import (
	"errors"
	"time"

	"storefront/cms/internal/content"
)

var ErrSlugTaken = errors.New("slug already in use")

type Page struct {
	ID              string           `json:"id"`
	Slug            string           `json:"slug"`
	Title           string           `json:"title"`
	MetaTitle       string           `json:"metaTitle"`
	MetaDescription string           `json:"metaDescription"`
	OGTitle         string           `json:"ogTitle"`
	OGDescription   string           `json:"ogDescription"`
	Content         content.Document `json:"contentJson"`
	IsHome          bool             `json:"isHome"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// PageSummary is a page row without its content document.
type PageSummary struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	IsHome     bool      `json:"isHome"`
	BlockCount int       `json:"blockCount"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// PageMeta is the editable metadata of a page.
type PageMeta struct {
	Slug            string `json:"slug"`
	Title           string `json:"title"`
	MetaTitle       string `json:"metaTitle"`
	MetaDescription string `json:"metaDescription"`
	OGTitle         string `json:"ogTitle"`
	OGDescription   string `json:"ogDescription"`
}

// SectionMeta is everything about a section except its blocks.
type SectionMeta struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}
