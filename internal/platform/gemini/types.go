// Package gemini implements the extraction interface using Google's Gemini
// vision API.
package gemini

// promptData represents the data passed to the prompt template
type promptData struct {
	// GridMode asks the model to interpret the photo as a fixed 3x3 grid.
	GridMode bool

	// Positions restricts extraction to these grid cells; empty means all.
	Positions []int

	// PreviousJSON carries the current card records as JSON context when
	// re-extracting.
	PreviousJSON string
}

// ResponseSchema represents the expected structure of the Gemini response.
type ResponseSchema struct {
	// Cards is the array of card records read out of the photo.
	Cards []CardSchema `json:"cards"`
}

// CardSchema represents a single extracted card in the API response.
type CardSchema struct {
	Name          string             `json:"name"`
	Sport         string             `json:"sport"`
	Brand         string             `json:"brand"`
	Number        string             `json:"number"`
	Year          string             `json:"year"`
	Team          string             `json:"team"`
	Set           string             `json:"set"`
	Condition     string             `json:"condition"`
	Features      []string           `json:"features"`
	IsPlayerCard  bool               `json:"is_player_card"`
	ValueEstimate float64            `json:"value_estimate"`
	Confidence    map[string]float64 `json:"confidence"`
	Position      *int               `json:"position"`
	Row           int                `json:"row"`
	Col           int                `json:"col"`
}
