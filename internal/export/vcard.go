// Package export renders cards into downloadable formats: a vCard contact
// file and a zip package holding a static HTML snapshot plus assets.
package export

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-vcard"

	"github.com/atinyakov/cardkeeper/internal/models"
)

// Attachment names and media types of the exported files.
const (
	VCardFilename    = "business_card.vcf"
	VCardContentType = "text/vcard; charset=utf-8"

	PackageFilename    = "business_card_package.zip"
	PackageContentType = "application/zip"
)

// maxLineOctets is the longest content line allowed before folding.
const maxLineOctets = 75

// semicolonMark holds the place of a literal semicolon while go-vcard
// encodes the card. The encoder escapes backslash, comma and newline but
// leaves semicolons alone since they separate the components of N.
const semicolonMark = "\uE000"

var textValue = strings.NewReplacer(
	semicolonMark, "",
	";", semicolonMark,
	"\r\n", "\n",
	"\r", "\n",
)

// VCard renders card as a vCard 3.0 contact. ORG, TITLE, TEL and EMAIL are
// only written when the card has a value for them.
func VCard(card *models.Card) ([]byte, error) {
	c := make(vcard.Card)
	c.SetValue(vcard.FieldVersion, "3.0")
	c.Set(vcard.FieldName, &vcard.Field{
		Value: textValue.Replace(card.LastName) + ";" + textValue.Replace(card.FirstName),
	})
	c.SetValue(vcard.FieldFormattedName, textValue.Replace(card.FullName()))
	if card.Business != "" {
		c.SetValue(vcard.FieldOrganization, textValue.Replace(card.Business))
	}
	if card.Title != "" {
		c.SetValue(vcard.FieldTitle, textValue.Replace(card.Title))
	}
	if card.Phone != "" {
		c.Set(vcard.FieldTelephone, &vcard.Field{
			Value:  textValue.Replace(card.Phone),
			Params: vcard.Params{vcard.ParamType: {"CELL"}},
		})
	}
	if card.Email != "" {
		c.Set(vcard.FieldEmail, &vcard.Field{
			Value:  textValue.Replace(card.Email),
			Params: vcard.Params{vcard.ParamType: {"PREF", "INTERNET"}},
		})
	}

	var raw bytes.Buffer
	if err := vcard.NewEncoder(&raw).Encode(c); err != nil {
		return nil, fmt.Errorf("encode vcard: %w", err)
	}

	encoded := strings.ReplaceAll(raw.String(), semicolonMark, `\;`)
	var b bytes.Buffer
	for _, line := range strings.Split(strings.TrimSuffix(encoded, "\r\n"), "\r\n") {
		writeLine(&b, line)
	}
	return b.Bytes(), nil
}

// writeLine writes line terminated by CRLF, folding it into continuation
// lines (CRLF followed by a space) every 75 octets without splitting a
// UTF-8 sequence.
func writeLine(b *bytes.Buffer, line string) {
	limit := maxLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		b.WriteString(line[:cut])
		b.WriteString("\r\n ")
		line = line[cut:]
		// the leading space counts toward the continuation line's length
		limit = maxLineOctets - 1
	}
	b.WriteString(line)
	b.WriteString("\r\n")
}
