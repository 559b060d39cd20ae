package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/emersion/go-vcard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/cardkeeper/internal/models"
)

func encodeVCard(t *testing.T, card *models.Card) []byte {
	t.Helper()
	data, err := VCard(card)
	require.NoError(t, err)
	return data
}

func vcardLines(b []byte) []string {
	s := strings.TrimSuffix(string(b), "\r\n")
	return strings.Split(s, "\r\n")
}

func decodeVCard(t *testing.T, b []byte) vcard.Card {
	t.Helper()
	c, err := vcard.NewDecoder(bytes.NewReader(b)).Decode()
	require.NoError(t, err)
	return c
}

func TestVCard_Lovelace(t *testing.T) {
	card := &models.Card{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Business:  "Analytical Engines",
		Title:     "Engineer",
	}
	data := encodeVCard(t, card)
	lines := vcardLines(data)

	require.NotEmpty(t, lines)
	assert.Equal(t, "BEGIN:VCARD", lines[0])
	assert.Equal(t, "END:VCARD", lines[len(lines)-1])
	assert.Contains(t, lines, "VERSION:3.0")
	assert.Contains(t, lines, "N:Lovelace;Ada")
	assert.Contains(t, lines, "FN:Ada Lovelace")
	assert.Contains(t, lines, "ORG:Analytical Engines")
	assert.Contains(t, lines, "TITLE:Engineer")

	decoded := decodeVCard(t, data)
	assert.Equal(t, "Ada Lovelace", decoded.Value(vcard.FieldFormattedName))
	assert.Equal(t, "Analytical Engines", decoded.Value(vcard.FieldOrganization))
}

func TestVCard_OptionalFields(t *testing.T) {
	bare := string(encodeVCard(t, &models.Card{FirstName: "Ada", LastName: "Lovelace"}))
	for _, prop := range []string{"ORG:", "TITLE:", "TEL", "EMAIL"} {
		assert.NotContains(t, bare, prop)
	}

	data := encodeVCard(t, &models.Card{
		FirstName: "Ada", LastName: "Lovelace",
		Phone: "+44 20 7946 0000", Email: "ada@example.com",
	})
	full := vcardLines(data)
	assert.Contains(t, full, "TEL;TYPE=CELL:+44 20 7946 0000")

	var email string
	for _, l := range full {
		if strings.HasPrefix(l, "EMAIL;") {
			email = l
		}
	}
	assert.True(t, strings.HasSuffix(email, ":ada@example.com"), "email line %q", email)
	assert.Contains(t, email, "PREF")
	assert.Contains(t, email, "INTERNET")

	decoded := decodeVCard(t, data)
	assert.Equal(t, "ada@example.com", decoded.Value(vcard.FieldEmail))
	assert.Equal(t, "+44 20 7946 0000", decoded.Value(vcard.FieldTelephone))
}

func TestVCard_Escaping(t *testing.T) {
	lines := vcardLines(encodeVCard(t, &models.Card{
		FirstName: "Jean;Luc",
		LastName:  `Picard\`,
		Business:  "Starfleet, United Federation",
		Title:     "Captain\r\nUSS Enterprise",
	}))

	assert.Contains(t, lines, `N:Picard\\;Jean\;Luc`)
	assert.Contains(t, lines, `FN:Jean\;Luc Picard\\`)
	assert.Contains(t, lines, `ORG:Starfleet\, United Federation`)
	assert.Contains(t, lines, `TITLE:Captain\nUSS Enterprise`)
}

func TestVCard_CRLFTerminated(t *testing.T) {
	out := string(encodeVCard(t, &models.Card{FirstName: "A", LastName: "B"}))
	assert.True(t, strings.HasSuffix(out, "END:VCARD\r\n"))
	assert.NotContains(t, strings.ReplaceAll(out, "\r\n", ""), "\n")
}

func TestVCard_Folding(t *testing.T) {
	title := strings.Repeat("é", 60) // 120 octets
	data := encodeVCard(t, &models.Card{FirstName: "A", LastName: "B", Title: title})

	var unfolded []string
	for _, l := range vcardLines(data) {
		assert.LessOrEqual(t, len(l), maxLineOctets, "line too long: %q", l)
		assert.True(t, strings.ToValidUTF8(l, "?") == l, "split inside a rune: %q", l)
		if strings.HasPrefix(l, " ") {
			unfolded[len(unfolded)-1] += l[1:]
			continue
		}
		unfolded = append(unfolded, l)
	}
	assert.Contains(t, unfolded, "TITLE:"+title)
	assert.Equal(t, title, decodeVCard(t, data).Value(vcard.FieldTitle))
}
