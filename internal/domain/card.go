package domain

import (
	"encoding/json"
	"sort"
)

// GridPositions is the number of cells in the 3x3 scanning layout.
const GridPositions = 9

// GridPlacement records where a card sat within the scanned 3x3 layout.
type GridPlacement struct {
	Position int `json:"position"`
	Row      int `json:"row"`
	Col      int `json:"col"`
}

// Valid reports whether the placement addresses a cell of the 3x3 grid.
func (g GridPlacement) Valid() bool {
	return g.Position >= 0 && g.Position < GridPositions
}

// CardRecord holds one extracted card's field data, per-field confidence,
// and provenance. Provenance keys the extractor emits beyond the typed
// fields are preserved verbatim in Extra and round-trip unmodified through
// every read-modify-write cycle.
type CardRecord struct {
	Name          string   `json:"name"`
	Sport         string   `json:"sport"`
	Brand         string   `json:"brand"`
	Number        string   `json:"number"`
	Year          string   `json:"year"`
	Team          string   `json:"team"`
	CardSet       string   `json:"set"`
	Condition     string   `json:"condition"`
	Features      []string `json:"features"`
	IsPlayerCard  bool     `json:"is_player_card"`
	ValueEstimate float64  `json:"value_estimate"`

	// Confidence maps field names to the extractor's 0.0-1.0 confidence.
	Confidence map[string]float64 `json:"confidence,omitempty"`

	// Grid is the card's placement in the scanned layout. A nil Grid means
	// the extractor could not attribute the card to a cell; such cards sort
	// after placed ones.
	Grid *GridPlacement `json:"grid,omitempty"`

	// Original is a snapshot of the record as the extractor first produced
	// it, kept for diffing human edits against the AI output.
	Original json.RawMessage `json:"original_extraction,omitempty"`

	// MatchedFrontFile names the matched front image, when one was found.
	MatchedFrontFile string `json:"matched_front_file,omitempty"`

	// Extra carries provenance keys not covered by the typed fields.
	Extra map[string]json.RawMessage `json:"-"`
}

// cardRecordAlias mirrors CardRecord without its methods so the custom
// JSON round-trip below can delegate to the standard marshaller.
type cardRecordAlias struct {
	Name             string             `json:"name"`
	Sport            string             `json:"sport"`
	Brand            string             `json:"brand"`
	Number           string             `json:"number"`
	Year             string             `json:"year"`
	Team             string             `json:"team"`
	CardSet          string             `json:"set"`
	Condition        string             `json:"condition"`
	Features         []string           `json:"features"`
	IsPlayerCard     bool               `json:"is_player_card"`
	ValueEstimate    float64            `json:"value_estimate"`
	Confidence       map[string]float64 `json:"confidence,omitempty"`
	Grid             *GridPlacement     `json:"grid,omitempty"`
	Original         json.RawMessage    `json:"original_extraction,omitempty"`
	MatchedFrontFile string             `json:"matched_front_file,omitempty"`
}

// knownCardKeys are the JSON keys consumed by the typed fields. Anything
// else in an incoming document lands in Extra.
var knownCardKeys = []string{
	"name", "sport", "brand", "number", "year", "team", "set", "condition",
	"features", "is_player_card", "value_estimate", "confidence", "grid",
	"original_extraction", "matched_front_file",
}

// UnmarshalJSON decodes the typed fields and captures any unknown keys
// into the Extra extension map so they survive a later write.
func (c *CardRecord) UnmarshalJSON(data []byte) error {
	var alias cardRecordAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range knownCardKeys {
		delete(raw, key)
	}

	*c = CardRecord{
		Name:             alias.Name,
		Sport:            alias.Sport,
		Brand:            alias.Brand,
		Number:           alias.Number,
		Year:             alias.Year,
		Team:             alias.Team,
		CardSet:          alias.CardSet,
		Condition:        alias.Condition,
		Features:         alias.Features,
		IsPlayerCard:     alias.IsPlayerCard,
		ValueEstimate:    alias.ValueEstimate,
		Confidence:       alias.Confidence,
		Grid:             alias.Grid,
		Original:         alias.Original,
		MatchedFrontFile: alias.MatchedFrontFile,
	}
	if len(raw) > 0 {
		c.Extra = raw
	}
	return nil
}

// MarshalJSON emits the typed fields and merges the preserved extension
// keys back into the document. Typed fields win on key collisions.
func (c CardRecord) MarshalJSON() ([]byte, error) {
	alias := cardRecordAlias{
		Name:             c.Name,
		Sport:            c.Sport,
		Brand:            c.Brand,
		Number:           c.Number,
		Year:             c.Year,
		Team:             c.Team,
		CardSet:          c.CardSet,
		Condition:        c.Condition,
		Features:         c.Features,
		IsPlayerCard:     c.IsPlayerCard,
		ValueEstimate:    c.ValueEstimate,
		Confidence:       c.Confidence,
		Grid:             c.Grid,
		Original:         c.Original,
		MatchedFrontFile: c.MatchedFrontFile,
	}

	encoded, err := json.Marshal(alias)
	if err != nil {
		return nil, err
	}
	if len(c.Extra) == 0 {
		return encoded, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(encoded, &merged); err != nil {
		return nil, err
	}
	for key, value := range c.Extra {
		if _, exists := merged[key]; !exists {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// Position returns the card's grid position and whether one is known.
func (c *CardRecord) Position() (int, bool) {
	if c.Grid == nil {
		return 0, false
	}
	return c.Grid.Position, true
}

// Clone returns a deep copy of the record. Snapshots stored in history
// entries must not alias the live card list.
func (c CardRecord) Clone() CardRecord {
	clone := c
	if c.Features != nil {
		clone.Features = append([]string(nil), c.Features...)
	}
	if c.Confidence != nil {
		clone.Confidence = make(map[string]float64, len(c.Confidence))
		for k, v := range c.Confidence {
			clone.Confidence[k] = v
		}
	}
	if c.Grid != nil {
		grid := *c.Grid
		clone.Grid = &grid
	}
	if c.Original != nil {
		clone.Original = append(json.RawMessage(nil), c.Original...)
	}
	if c.Extra != nil {
		clone.Extra = make(map[string]json.RawMessage, len(c.Extra))
		for k, v := range c.Extra {
			clone.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return clone
}

// CloneCards deep-copies a card list.
func CloneCards(cards []CardRecord) []CardRecord {
	if cards == nil {
		return nil
	}
	out := make([]CardRecord, len(cards))
	for i, c := range cards {
		out[i] = c.Clone()
	}
	return out
}

// SortByPosition orders cards ascending by grid position. Cards without a
// placement sort last, keeping their relative order.
func SortByPosition(cards []CardRecord) {
	sort.SliceStable(cards, func(i, j int) bool {
		pi, iok := cards[i].Position()
		pj, jok := cards[j].Position()
		if iok != jok {
			return iok
		}
		return pi < pj
	})
}

// Positions returns the set of known grid positions in the card list.
func Positions(cards []CardRecord) []int {
	out := make([]int, 0, len(cards))
	for i := range cards {
		if pos, ok := cards[i].Position(); ok {
			out = append(out, pos)
		}
	}
	sort.Ints(out)
	return out
}
