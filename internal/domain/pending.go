package domain

// PendingImage is the unit of verification work for one scanned multi-card
// photo: the extracted card records waiting for a human to pass, fail, or
// correct them.
//
// A PendingImage with zero cards does not exist as pending. Emptying the
// card list archives the image (pass path) or recycles it back to intake
// (fail-all path); the stores enforce this invariant.
type PendingImage struct {
	// ID is the stable identifier derived from the source image's filename
	// stem.
	ID string `json:"id"`

	// SourceImage is the path of the scanned photo inside the pending
	// directory.
	SourceImage string `json:"source_image"`

	// Cards is the ordered list of extracted card records. Array index is
	// a transient handle that shifts on removal; grid position is the
	// stable location within the scan.
	Cards []CardRecord `json:"cards"`
}

// Validate checks the pending image's structural invariants.
func (p *PendingImage) Validate() error {
	if p.ID == "" {
		return ErrInvalidID
	}
	return nil
}

// CardAt returns the card at the given index, or ErrCardIndexOutOfRange.
func (p *PendingImage) CardAt(index int) (*CardRecord, error) {
	if index < 0 || index >= len(p.Cards) {
		return nil, ErrCardIndexOutOfRange
	}
	return &p.Cards[index], nil
}

// RemoveCard splices the card at index out of the list, shifting every
// subsequent card down by one.
func (p *PendingImage) RemoveCard(index int) error {
	if index < 0 || index >= len(p.Cards) {
		return ErrCardIndexOutOfRange
	}
	p.Cards = append(p.Cards[:index], p.Cards[index+1:]...)
	return nil
}
