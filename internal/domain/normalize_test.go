package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mkessler/cardvault-api/internal/domain"
)

func TestNormalizeCard(t *testing.T) {
	t.Parallel()

	rec := domain.CardRecord{
		Name:      "  Mike Trout ",
		Sport:     "BASEBALL",
		Brand:     " Topps",
		Team:      "Angels ",
		CardSet:   "Chrome",
		Condition: " Near Mint ",
		Features:  []string{"Rookie", " rookie ", "", "Refractor"},
	}

	domain.NormalizeCard(&rec)

	assert.Equal(t, "mike trout", rec.Name)
	assert.Equal(t, "baseball", rec.Sport)
	assert.Equal(t, "topps", rec.Brand)
	assert.Equal(t, "angels", rec.Team)
	assert.Equal(t, "chrome", rec.CardSet)
	assert.Equal(t, "near mint", rec.Condition)
	assert.Equal(t, []string{"rookie", "refractor"}, rec.Features)
}

func TestNormalizeCard_Idempotent(t *testing.T) {
	t.Parallel()

	rec := domain.CardRecord{
		Name:     "  Shohei OHTANI ",
		Features: []string{"MVP", "mvp", "Auto"},
	}

	domain.NormalizeCard(&rec)
	once := rec.Clone()
	domain.NormalizeCard(&rec)

	assert.Equal(t, once.Name, rec.Name)
	assert.Equal(t, once.Features, rec.Features)
}

func TestNormalizeCard_NilFeaturesStayNil(t *testing.T) {
	t.Parallel()

	rec := domain.CardRecord{Name: "X"}
	domain.NormalizeCard(&rec)
	assert.Nil(t, rec.Features)
}
