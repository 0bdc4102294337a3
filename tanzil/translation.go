package tanzil

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// TranslationSource is the provider the converted translations credit.
const TranslationSource = "tanzil.net"

// Tanzil translation files carry comments in a syntax the XML parser
// rejects; they are stripped before parsing.
var xmlComment = regexp.MustCompile(`(?s)<!--.*?-->`)

// AyahTranslation is the translated text of one ayah. Numbering runs over
// the whole document, matching the API's ayah ids.
type AyahTranslation struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Translation is the complete translation document the importer uploads.
type Translation struct {
	Mushaf             string            `json:"mushaf"`
	Language           string            `json:"language"`
	Source             string            `json:"source"`
	BismillahText      string            `json:"bismillah_text"`
	TranslatorUsername string            `json:"translator_username"`
	ReleaseDate        *string           `json:"release_date"`
	AyahTranslations   []AyahTranslation `json:"ayah_translations"`
}

// ParseTranslation converts a Tanzil translation XML document. The first
// ayah's raw text becomes the translation's bismillah; single quotes in ayah
// text are entity-escaped for the API.
func ParseTranslation(source []byte, mushaf, language, author string) (*Translation, error) {
	cleaned := xmlComment.ReplaceAllString(string(source), "")

	var doc quranXML
	if err := xml.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}
	if len(doc.Suras) == 0 || len(doc.Suras[0].Ayas) == 0 {
		return nil, fmt.Errorf("%w: no ayahs found", ErrMalformedSource)
	}

	translation := &Translation{
		Mushaf:             mushaf,
		Language:           language,
		Source:             TranslationSource,
		BismillahText:      doc.Suras[0].Ayas[0].Text,
		TranslatorUsername: author,
	}

	number := 1
	for _, sura := range doc.Suras {
		for _, aya := range sura.Ayas {
			translation.AyahTranslations = append(translation.AyahTranslations, AyahTranslation{
				Number: number,
				Text:   strings.ReplaceAll(aya.Text, "'", "&quot;"),
			})
			number++
		}
	}
	return translation, nil
}

// TranslationMetadata derives language and author from a Tanzil translation
// file name of the form language.author.xml.
func TranslationMetadata(path string) (language, author string, err error) {
	parts := strings.Split(filepath.Base(path), ".")
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %s", ErrBadFileName, filepath.Base(path))
	}
	return parts[0], parts[1], nil
}

// EncodeJSON marshals a converted document without HTML escaping, so the
// Arabic text survives byte-identical. pretty indents with four spaces.
func EncodeJSON(v interface{}, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "    ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
