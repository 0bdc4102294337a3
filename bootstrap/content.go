package bootstrap

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/nq-deploy/deployctl/common"
)

// Breakers and dividers are seeded by the database's first user.
const contentCreatorUserID = 1

// AyahRef addresses one ayah as surah:ayah, e.g. "2:255".
type AyahRef struct {
	Surah int
	Ayah  int
}

// WordRef addresses one word as surah:ayah:word, e.g. "2:255:3". Word
// numbers start at 1 and follow the ayah's word order.
type WordRef struct {
	Surah int
	Ayah  int
	Word  int
}

// ParseAyahRef parses a "surah:ayah" reference.
func ParseAyahRef(s string) (AyahRef, error) {
	parts, err := refParts(s, 2)
	if err != nil {
		return AyahRef{}, err
	}
	return AyahRef{Surah: parts[0], Ayah: parts[1]}, nil
}

// ParseWordRef parses a "surah:ayah:word" reference.
func ParseWordRef(s string) (WordRef, error) {
	parts, err := refParts(s, 3)
	if err != nil {
		return WordRef{}, err
	}
	return WordRef{Surah: parts[0], Ayah: parts[1], Word: parts[2]}, nil
}

func refParts(s string, want int) ([]int, error) {
	fields := strings.Split(s, ":")
	if len(fields) != want {
		return nil, fmt.Errorf("%w: %q", ErrBadRef, s)
	}
	parts := make([]int, want)
	for i, field := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: %q", ErrBadRef, s)
		}
		parts[i] = n
	}
	return parts, nil
}

// Surah mirrors the application's quran_surahs table.
type Surah struct {
	ID     int64 `gorm:"primaryKey"`
	Number int   `gorm:"column:number"`
}

func (Surah) TableName() string { return "quran_surahs" }

// Ayah mirrors the application's quran_ayahs table.
type Ayah struct {
	ID         int64 `gorm:"primaryKey"`
	SurahID    int64 `gorm:"column:surah_id"`
	AyahNumber int   `gorm:"column:ayah_number"`
}

func (Ayah) TableName() string { return "quran_ayahs" }

// Word mirrors the application's quran_words table.
type Word struct {
	ID     int64  `gorm:"primaryKey"`
	AyahID int64  `gorm:"column:ayah_id"`
	Word   string `gorm:"column:word"`
}

func (Word) TableName() string { return "quran_words" }

// AyahBreaker mirrors quran_ayahs_breakers: a named break mark (page, juz,
// hizb) placed before an ayah.
type AyahBreaker struct {
	ID             int64  `gorm:"primaryKey"`
	CreatorUserID  int64  `gorm:"column:creator_user_id"`
	AyahID         int64  `gorm:"column:ayah_id"`
	OwnerAccountID *int64 `gorm:"column:owner_account_id"`
	Name           string `gorm:"column:name"`
}

func (AyahBreaker) TableName() string { return "quran_ayahs_breakers" }

// WordBreaker mirrors quran_words_breakers.
type WordBreaker struct {
	ID             int64  `gorm:"primaryKey"`
	CreatorUserID  int64  `gorm:"column:creator_user_id"`
	WordID         int64  `gorm:"column:word_id"`
	OwnerAccountID *int64 `gorm:"column:owner_account_id"`
	Name           string `gorm:"column:name"`
}

func (WordBreaker) TableName() string { return "quran_words_breakers" }

// AyahDivide mirrors quran_ayah_divide: a recitation division attributed to
// a divider account.
type AyahDivide struct {
	ID               int64  `gorm:"primaryKey"`
	CreatorUserID    int64  `gorm:"column:creator_user_id"`
	AyahID           int64  `gorm:"column:ayah_id"`
	DividerAccountID int64  `gorm:"column:divider_account_id"`
	Type             string `gorm:"column:type"`
}

func (AyahDivide) TableName() string { return "quran_ayah_divide" }

// WordDivide mirrors quran_word_divide.
type WordDivide struct {
	ID               int64  `gorm:"primaryKey"`
	CreatorUserID    int64  `gorm:"column:creator_user_id"`
	WordID           int64  `gorm:"column:word_id"`
	DividerAccountID int64  `gorm:"column:divider_account_id"`
	Type             string `gorm:"column:type"`
}

func (WordDivide) TableName() string { return "quran_word_divide" }

// DivideGroup is one entry of a divider input file: the divider account's
// username, the division type, and the references it covers.
type DivideGroup struct {
	Name string   `json:"name"`
	Type string   `json:"type"`
	List []string `json:"list"`
}

// LoadRefs reads a breaker input file: a JSON array of reference strings.
func LoadRefs(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var refs []string
	if err := json.Unmarshal(data, &refs); err != nil {
		return nil, fmt.Errorf("%s is not a reference list: %w", path, err)
	}
	return refs, nil
}

// LoadDivideGroups reads a divider input file: a JSON array of groups.
func LoadDivideGroups(path string) ([]DivideGroup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var groups []DivideGroup
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("%s is not a divide group list: %w", path, err)
	}
	return groups, nil
}

// ayahID resolves surah:ayah to the ayah's database id.
func ayahID(tx *gorm.DB, ref AyahRef) (int64, error) {
	var surah Surah
	res := tx.Where("number = ?", ref.Surah).Limit(1).Find(&surah)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("%w: surah %d", ErrRefNotFound, ref.Surah)
	}

	var ayah Ayah
	res = tx.Where("surah_id = ? AND ayah_number = ?", surah.ID, ref.Ayah).Limit(1).Find(&ayah)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("%w: ayah %d:%d", ErrRefNotFound, ref.Surah, ref.Ayah)
	}
	return ayah.ID, nil
}

// wordID resolves surah:ayah:word to the word's database id. Word order is
// the insertion order of the ayah's words.
func wordID(tx *gorm.DB, ref WordRef) (int64, error) {
	id, err := ayahID(tx, AyahRef{Surah: ref.Surah, Ayah: ref.Ayah})
	if err != nil {
		return 0, err
	}

	var words []Word
	if err := tx.Where("ayah_id = ?", id).Order("id").Find(&words).Error; err != nil {
		return 0, err
	}
	if ref.Word > len(words) {
		return 0, fmt.Errorf("%w: word %d:%d:%d (ayah has %d words)",
			ErrRefNotFound, ref.Surah, ref.Ayah, ref.Word, len(words))
	}
	return words[ref.Word-1].ID, nil
}

// ApplyAyahBreakers inserts a named break before every referenced ayah. The
// whole batch is one transaction; a bad reference rolls everything back.
func ApplyAyahBreakers(db *gorm.DB, name string, refs []string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, raw := range refs {
			ref, err := ParseAyahRef(raw)
			if err != nil {
				return err
			}
			id, err := ayahID(tx, ref)
			if err != nil {
				return err
			}
			breaker := AyahBreaker{CreatorUserID: contentCreatorUserID, AyahID: id, Name: name}
			if err := tx.Create(&breaker).Error; err != nil {
				return err
			}
		}
		common.Logger.WithField("name", name).WithField("count", len(refs)).Info("ayah breakers applied")
		return nil
	})
}

// ApplyWordBreakers inserts a named break before every referenced word.
func ApplyWordBreakers(db *gorm.DB, name string, refs []string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, raw := range refs {
			ref, err := ParseWordRef(raw)
			if err != nil {
				return err
			}
			id, err := wordID(tx, ref)
			if err != nil {
				return err
			}
			breaker := WordBreaker{CreatorUserID: contentCreatorUserID, WordID: id, Name: name}
			if err := tx.Create(&breaker).Error; err != nil {
				return err
			}
		}
		common.Logger.WithField("name", name).WithField("count", len(refs)).Info("word breakers applied")
		return nil
	})
}

// ApplyAyahDividers records each group's divisions under an account named
// after the group, creating the account when missing.
func ApplyAyahDividers(db *gorm.DB, groups []DivideGroup) error {
	for _, group := range groups {
		accountID, err := EnsureAccount(db, group.Name)
		if err != nil {
			return err
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			for _, raw := range group.List {
				ref, err := ParseAyahRef(raw)
				if err != nil {
					return err
				}
				id, err := ayahID(tx, ref)
				if err != nil {
					return err
				}
				divide := AyahDivide{
					CreatorUserID:    contentCreatorUserID,
					AyahID:           id,
					DividerAccountID: accountID,
					Type:             group.Type,
				}
				if err := tx.Create(&divide).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		common.Logger.WithField("divider", group.Name).
			WithField("count", len(group.List)).Info("ayah divisions applied")
	}
	return nil
}

// ApplyWordDividers is ApplyAyahDividers for word references.
func ApplyWordDividers(db *gorm.DB, groups []DivideGroup) error {
	for _, group := range groups {
		accountID, err := EnsureAccount(db, group.Name)
		if err != nil {
			return err
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			for _, raw := range group.List {
				ref, err := ParseWordRef(raw)
				if err != nil {
					return err
				}
				id, err := wordID(tx, ref)
				if err != nil {
					return err
				}
				divide := WordDivide{
					CreatorUserID:    contentCreatorUserID,
					WordID:           id,
					DividerAccountID: accountID,
					Type:             group.Type,
				}
				if err := tx.Create(&divide).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		common.Logger.WithField("divider", group.Name).
			WithField("count", len(group.List)).Info("word divisions applied")
	}
	return nil
}
