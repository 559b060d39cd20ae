package models

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"
)

const (
	msgRequired     = "This field is required."
	msgInvalidEmail = "Invalid email address."
)

// CardForm holds the submitted text fields of the card creation form.
// Uploaded files are handled separately and arrive as filenames in Card.
type CardForm struct {
	FirstName    string
	LastName     string
	Pronouns     string
	Title        string
	Business     string
	Address      string
	Description  string
	PublicKey    string
	Tracker      string
	FontLink     string
	FontCSS      string
	HostedURL    string
	FooterCredit bool
	Phone        string
	Email        string
}

// ValidationError maps form field names to their error messages.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid form: %s", strings.Join(names, ", "))
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Validate checks required fields and the optional email address.
// It returns nil or a *ValidationError keyed by form field name.
func (f *CardForm) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(f.FirstName) == "" {
		verr.add("fname", msgRequired)
	}
	if strings.TrimSpace(f.LastName) == "" {
		verr.add("lname", msgRequired)
	}
	if f.Email != "" && !isBareAddress(f.Email) {
		verr.add("email", msgInvalidEmail)
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// isBareAddress reports whether s is a plain addr-spec such as
// "ada@example.com", without a display name, angle brackets or padding.
func isBareAddress(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// Files holds the stored filenames of the three upload slots.
type Files struct {
	Logo  string
	Photo string
	Cover string
}

// Card maps a validated form and its stored uploads to a new record.
// Field values are kept exactly as submitted. The returned card has no ID yet.
func (f *CardForm) Card(files Files, assetKey string) Card {
	return Card{
		FirstName:    f.FirstName,
		LastName:     f.LastName,
		Pronouns:     f.Pronouns,
		Title:        f.Title,
		Business:     f.Business,
		Address:      f.Address,
		Description:  f.Description,
		PublicKey:    f.PublicKey,
		Tracker:      f.Tracker,
		FontLink:     f.FontLink,
		FontCSS:      f.FontCSS,
		HostedURL:    f.HostedURL,
		FooterCredit: f.FooterCredit,
		Phone:        f.Phone,
		Email:        f.Email,
		Logo:         files.Logo,
		Photo:        files.Photo,
		Cover:        files.Cover,
		AssetKey:     assetKey,
	}
}
