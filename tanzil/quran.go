// Package tanzil converts Tanzil quran and translation XML sources into the
// JSON documents the content importer uploads. The output mirrors the API's
// import schema: a mushaf document carries surahs, ayahs and their words; a
// translation document carries one text entry per ayah.
package tanzil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"strings"
)

// Bismillah is the opening formula as it appears in the Tanzil source. An
// ayah whose whole text equals it is the bismillah itself.
const Bismillah = "بِسْمِ ٱللَّهِ ٱلرَّحْمَـٰنِ ٱلرَّحِيمِ"

// sajdahMark is stripped from ayah text before word splitting.
const sajdahMark = "۩"

// QuranSourceHash is the SHA-256 of the published Tanzil quran source.
// Conversion works on any well-formed document; callers use ValidQuranSource
// to warn when the input is not the pristine release.
const QuranSourceHash = "a22c0d515c37a5667160765c2d1d171fa4b9d7d8778e47161bb0fe894cf61c1d"

// sajdahs maps surah and ayah number to the sajdah obligation of that ayah.
var sajdahs = map[[2]int]string{
	{32, 15}:  "vajib",
	{41, 37}:  "vajib",
	{53, 62}:  "vajib",
	{96, 19}:  "vajib",
	{7, 206}:  "mustahab",
	{13, 15}:  "mustahab",
	{16, 50}:  "mustahab",
	{17, 109}: "mustahab",
	{19, 58}:  "mustahab",
	{22, 18}:  "mustahab",
	{25, 60}:  "mustahab",
	{27, 26}:  "mustahab",
	{38, 24}:  "mustahab",
	{84, 21}:  "mustahab",
}

// madaniSurahs lists the surahs of the madani period; every other surah
// number in 1..114 is makki.
var madaniSurahs = map[int]bool{
	2: true, 3: true, 4: true, 5: true, 8: true, 9: true, 13: true,
	22: true, 24: true, 33: true, 47: true, 48: true, 49: true, 55: true,
	57: true, 58: true, 59: true, 60: true, 61: true, 62: true, 63: true,
	64: true, 65: true, 66: true, 76: true, 98: true, 99: true, 110: true,
}

// Mushaf identifies the quran edition a conversion belongs to.
type Mushaf struct {
	ShortName string `json:"short_name"`
	Name      string `json:"name"`
	Source    string `json:"source"`
}

// Word is a single word of an ayah.
type Word struct {
	Text string `json:"text"`
}

// Ayah is one ayah with its sajdah obligation and word breakdown.
type Ayah struct {
	Number        int     `json:"number"`
	Sajdah        *string `json:"sajdah"`
	IsBismillah   bool    `json:"is_bismillah"`
	BismillahText *string `json:"bismillah_text"`
	Words         []Word  `json:"words"`
}

// Surah is one surah and its ayahs.
type Surah struct {
	Name   string  `json:"name"`
	Period *string `json:"period"`
	Number int     `json:"number"`
	Ayahs  []Ayah  `json:"ayahs"`
}

// Quran is the complete mushaf document the importer uploads.
type Quran struct {
	Mushaf Mushaf  `json:"mushaf"`
	Surahs []Surah `json:"surahs"`
}

type quranXML struct {
	Suras []suraXML `xml:"sura"`
}

type suraXML struct {
	Index int      `xml:"index,attr"`
	Name  string   `xml:"name,attr"`
	Ayas  []ayaXML `xml:"aya"`
}

type ayaXML struct {
	Index     int    `xml:"index,attr"`
	Text      string `xml:"text,attr"`
	Bismillah string `xml:"bismillah,attr"`
}

// ValidQuranSource reports whether source is byte-identical to the published
// Tanzil quran release.
func ValidQuranSource(source []byte) bool {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:]) == QuranSourceHash
}

// ParseQuran converts a Tanzil quran XML document into the mushaf JSON
// structure. The sajdah mark is stripped from ayah text before the word
// split; an ayah whose text is the bismillah is flagged as such.
func ParseQuran(source []byte, mushaf Mushaf) (*Quran, error) {
	var doc quranXML
	if err := xml.Unmarshal(source, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}
	if len(doc.Suras) == 0 {
		return nil, fmt.Errorf("%w: no surahs found", ErrMalformedSource)
	}

	quran := &Quran{Mushaf: mushaf}
	for _, sura := range doc.Suras {
		surah := Surah{
			Name:   sura.Name,
			Number: sura.Index,
			Period: period(sura.Index),
		}
		for _, aya := range sura.Ayas {
			ayah := Ayah{
				Number:      aya.Index,
				Sajdah:      sajdahFor(sura.Index, aya.Index),
				IsBismillah: aya.Text == Bismillah,
			}
			if aya.Bismillah != "" {
				text := aya.Bismillah
				ayah.BismillahText = &text
			}
			for _, word := range strings.Split(strings.ReplaceAll(aya.Text, sajdahMark, ""), " ") {
				ayah.Words = append(ayah.Words, Word{Text: word})
			}
			surah.Ayahs = append(surah.Ayahs, ayah)
		}
		quran.Surahs = append(quran.Surahs, surah)
	}
	return quran, nil
}

func period(surahNumber int) *string {
	if surahNumber < 1 || surahNumber > 114 {
		return nil
	}
	p := "makki"
	if madaniSurahs[surahNumber] {
		p = "madani"
	}
	return &p
}

func sajdahFor(surahNumber, ayahNumber int) *string {
	if s, ok := sajdahs[[2]int{surahNumber, ayahNumber}]; ok {
		return &s
	}
	return nil
}
