// Package models defines the card record and the form it is created from.
package models

import (
	"errors"
	"path"
)

// ErrCardNotFound is returned when no card exists for the requested ID.
var ErrCardNotFound = errors.New("card not found")

// Card is a persisted business card. Cards are immutable once created.
type Card struct {
	// ID is assigned by the store on creation and never reused.
	ID int64 `json:"id"`
	// FirstName and LastName are always present.
	FirstName string `json:"fname"`
	LastName  string `json:"lname"`

	Pronouns string `json:"pronouns"`
	Title    string `json:"title"`
	Business string `json:"biz"`
	Address  string `json:"addr"`
	// Description is rendered as markdown on the card pages.
	Description string `json:"desc"`
	// PublicKey is an opaque OpenPGP public key block.
	PublicKey string `json:"key"`
	// Tracker is an opaque embed snippet inserted into rendered pages as-is.
	Tracker  string `json:"tracker"`
	FontLink string `json:"font_link"`
	FontCSS  string `json:"font_css"`

	HostedURL    string `json:"hosted_url"`
	FooterCredit bool   `json:"footer_credit"`

	Phone string `json:"phone"`
	Email string `json:"email"`

	// Logo, Photo and Cover hold sanitized filenames in the asset directory,
	// or are empty when nothing was uploaded for the slot.
	Logo  string `json:"logo"`
	Photo string `json:"photo"`
	Cover string `json:"cover"`

	// AssetKey names the card's subdirectory of the asset directory.
	// Empty means the card's files live in the shared top-level directory.
	AssetKey string `json:"asset_key,omitempty"`
}

// FullName returns the first and last name joined by a space.
func (c *Card) FullName() string {
	return c.FirstName + " " + c.LastName
}

// AssetPath returns the path of an uploaded file relative to the asset
// directory, or "" if name is empty.
func (c *Card) AssetPath(name string) string {
	if name == "" {
		return ""
	}
	if c.AssetKey == "" {
		return name
	}
	return path.Join(c.AssetKey, name)
}
