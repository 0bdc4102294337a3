package tanzil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quranSample = `<quran>
  <sura index="1" name="الفاتحة">
    <aya index="1" text="` + Bismillah + `"/>
    <aya index="2" text="ٱلْحَمْدُ لِلَّهِ رَبِّ ٱلْعَـٰلَمِينَ"/>
  </sura>
  <sura index="2" name="البقرة">
    <aya index="1" bismillah="` + Bismillah + `" text="الم"/>
  </sura>
</quran>`

func testMushaf() Mushaf {
	return Mushaf{ShortName: "hafs", Name: "Hafs an Asim", Source: "tanzil"}
}

func TestParseQuran_Structure(t *testing.T) {
	quran, err := ParseQuran([]byte(quranSample), testMushaf())
	require.NoError(t, err)

	assert.Equal(t, "hafs", quran.Mushaf.ShortName)
	require.Len(t, quran.Surahs, 2)

	fatiha := quran.Surahs[0]
	assert.Equal(t, 1, fatiha.Number)
	assert.Equal(t, "الفاتحة", fatiha.Name)
	require.Len(t, fatiha.Ayahs, 2)

	assert.True(t, fatiha.Ayahs[0].IsBismillah)
	assert.False(t, fatiha.Ayahs[1].IsBismillah)
	assert.Len(t, fatiha.Ayahs[1].Words, 4)
}

func TestParseQuran_Periods(t *testing.T) {
	quran, err := ParseQuran([]byte(quranSample), testMushaf())
	require.NoError(t, err)

	require.NotNil(t, quran.Surahs[0].Period)
	assert.Equal(t, "makki", *quran.Surahs[0].Period)
	require.NotNil(t, quran.Surahs[1].Period)
	assert.Equal(t, "madani", *quran.Surahs[1].Period)
}

func TestParseQuran_BismillahAttribute(t *testing.T) {
	quran, err := ParseQuran([]byte(quranSample), testMushaf())
	require.NoError(t, err)

	baqara := quran.Surahs[1]
	require.NotNil(t, baqara.Ayahs[0].BismillahText)
	assert.Equal(t, Bismillah, *baqara.Ayahs[0].BismillahText)
	assert.Nil(t, quran.Surahs[0].Ayahs[0].BismillahText)
}

func TestParseQuran_SajdahMarkStrippedFromWords(t *testing.T) {
	sample := `<quran><sura index="32" name="السجدة">
	  <aya index="15" text="كَلِمَة أُخْرَى` + sajdahMark + `"/>
	</sura></quran>`

	quran, err := ParseQuran([]byte(sample), testMushaf())
	require.NoError(t, err)

	ayah := quran.Surahs[0].Ayahs[0]
	require.NotNil(t, ayah.Sajdah)
	assert.Equal(t, "vajib", *ayah.Sajdah)
	for _, word := range ayah.Words {
		assert.NotContains(t, word.Text, sajdahMark)
	}
}

func TestSajdahFor(t *testing.T) {
	require.NotNil(t, sajdahFor(7, 206))
	assert.Equal(t, "mustahab", *sajdahFor(7, 206))
	assert.Nil(t, sajdahFor(1, 1))
}

func TestParseQuran_MalformedSource(t *testing.T) {
	_, err := ParseQuran([]byte("<quran><sura"), testMushaf())
	assert.ErrorIs(t, err, ErrMalformedSource)

	_, err = ParseQuran([]byte("<quran></quran>"), testMushaf())
	assert.ErrorIs(t, err, ErrMalformedSource)
}

func TestValidQuranSource(t *testing.T) {
	assert.False(t, ValidQuranSource([]byte(quranSample)))
	assert.Len(t, QuranSourceHash, 64)
}

func TestEncodeJSON_KeepsArabicUnescaped(t *testing.T) {
	quran, err := ParseQuran([]byte(quranSample), testMushaf())
	require.NoError(t, err)

	out, err := EncodeJSON(quran, false)
	require.NoError(t, err)
	assert.Contains(t, string(out), "الفاتحة")
	assert.False(t, strings.Contains(string(out), `\u`), "text should not be escaped")

	pretty, err := EncodeJSON(quran, true)
	require.NoError(t, err)
	assert.Contains(t, string(pretty), "    \"mushaf\"")
}
