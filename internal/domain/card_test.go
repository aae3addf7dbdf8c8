package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkessler/cardvault-api/internal/domain"
)

// Unknown keys in an extractor document must survive a full
// decode-mutate-encode cycle untouched.
func TestCardRecord_ExtensionKeysRoundTrip(t *testing.T) {
	t.Parallel()

	doc := []byte(`{
		"name": "Ken Griffey Jr.",
		"brand": "Upper Deck",
		"grid": {"position": 4, "row": 1, "col": 1},
		"model_version": "vision-3",
		"crop_box": [12, 40, 310, 455]
	}`)

	var rec domain.CardRecord
	require.NoError(t, json.Unmarshal(doc, &rec))
	assert.Equal(t, "Ken Griffey Jr.", rec.Name)
	require.Contains(t, rec.Extra, "model_version")
	require.Contains(t, rec.Extra, "crop_box")

	rec.Name = "Ken Griffey Jr. Edited"

	out, err := json.Marshal(rec)
	require.NoError(t, err)

	var round map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &round))
	assert.JSONEq(t, `"vision-3"`, string(round["model_version"]))
	assert.JSONEq(t, `[12, 40, 310, 455]`, string(round["crop_box"]))
	assert.JSONEq(t, `"Ken Griffey Jr. Edited"`, string(round["name"]))
}

func TestCardRecord_TypedFieldsWinOverExtra(t *testing.T) {
	t.Parallel()

	rec := domain.CardRecord{
		Name:  "Typed",
		Extra: map[string]json.RawMessage{"name": json.RawMessage(`"shadowed"`)},
	}

	out, err := json.Marshal(rec)
	require.NoError(t, err)

	var round map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &round))
	assert.JSONEq(t, `"Typed"`, string(round["name"]))
}

func TestCardRecord_CloneIsDeep(t *testing.T) {
	t.Parallel()

	rec := domain.CardRecord{
		Name:       "A",
		Features:   []string{"rookie"},
		Confidence: map[string]float64{"name": 0.9},
		Grid:       &domain.GridPlacement{Position: 2},
		Extra:      map[string]json.RawMessage{"k": json.RawMessage(`1`)},
	}

	clone := rec.Clone()
	clone.Features[0] = "changed"
	clone.Confidence["name"] = 0.1
	clone.Grid.Position = 7
	clone.Extra["k"] = json.RawMessage(`2`)

	assert.Equal(t, "rookie", rec.Features[0])
	assert.Equal(t, 0.9, rec.Confidence["name"])
	assert.Equal(t, 2, rec.Grid.Position)
	assert.Equal(t, json.RawMessage(`1`), rec.Extra["k"])
}

func TestSortByPosition_UnplacedLastStable(t *testing.T) {
	t.Parallel()

	cards := []domain.CardRecord{
		{Name: "no grid 1"},
		card("second", 5),
		{Name: "no grid 2"},
		card("first", 1),
	}

	domain.SortByPosition(cards)
	assert.Equal(t, "first", cards[0].Name)
	assert.Equal(t, "second", cards[1].Name)
	assert.Equal(t, "no grid 1", cards[2].Name)
	assert.Equal(t, "no grid 2", cards[3].Name)
}

func TestGridPlacement_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, domain.GridPlacement{Position: 0}.Valid())
	assert.True(t, domain.GridPlacement{Position: 8}.Valid())
	assert.False(t, domain.GridPlacement{Position: 9}.Valid())
	assert.False(t, domain.GridPlacement{Position: -1}.Valid())
}
