package format

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cv-mapper/resume/model"
)

func TestListToText(t *testing.T) {
	assert.Equal(t, "a\nb", ListToText([]string{"a", "", "b"}))
	assert.Equal(t, "", ListToText(nil))
	assert.Equal(t, "", ListToText([]string{"", ""}))
}

func TestSafeJoin(t *testing.T) {
	assert.Equal(t, "Go, Rust", SafeJoin([]string{"Go", "", "Rust"}, ", "))
	assert.Equal(t, "x", SafeJoin([]string{"", "x"}, " / "))
}

func TestTechnologiesSkipsEmptyCategories(t *testing.T) {
	techs := model.Technologies{
		{Name: "Backend", Items: model.TextList{"Go", "Rust"}},
		{Name: "Empty", Items: model.TextList{}},
	}
	assert.Equal(t, "Backend : Go, Rust", Technologies(techs))

	techs = append(techs, model.TechCategory{Name: "Cloud", Items: model.TextList{"", "AWS"}})
	assert.Equal(t, "Backend : Go, Rust\nCloud : AWS", Technologies(techs))
	assert.Equal(t, "", Technologies(nil))
}

func TestTechnologiesKeepsCategoryOfBlankEntries(t *testing.T) {
	techs := model.Technologies{
		{Name: "X", Items: model.TextList{""}},
		{Name: "Cloud", Items: model.TextList{"AWS"}},
	}
	assert.Equal(t, "X : \nCloud : AWS", Technologies(techs))
}

func TestFormationsDropEmptyFields(t *testing.T) {
	formations := []model.Formation{
		{Title: "MSc", School: "X", Location: ""},
		{Title: "", School: "Lycée", Location: "Paris"},
	}
	assert.Equal(t, "MSc, X\nLycée, Paris", Formations(formations))
	assert.Equal(t, "MSc, X", Formations(formations[:1]))
	assert.Equal(t, "", Formations(nil))
}

func TestDateRange(t *testing.T) {
	assert.Equal(t, "2020 – 2023", DateRange("2020", "2023"))
	assert.Equal(t, " – ", DateRange("", ""))
}
