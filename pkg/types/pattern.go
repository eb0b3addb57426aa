package types

import (
	"errors"
	"strings"
)

// Direction is the starting direction of a pattern on the hex grid
type Direction string

const (
	DirEast      Direction = "EAST"
	DirNorthEast Direction = "NORTH_EAST"
	DirNorthWest Direction = "NORTH_WEST"
	DirWest      Direction = "WEST"
	DirSouthWest Direction = "SOUTH_WEST"
	DirSouthEast Direction = "SOUTH_EAST"
)

// signatureAngles are the stroke letters allowed in a pattern signature
const signatureAngles = "aqwed"

// Registry is the decoded pattern registry, keyed by pattern ID
type Registry struct {
	Patterns map[string]Pattern `json:"patterns"`
}

// Pattern is a single spell pattern and the operators that implement it
type Pattern struct {
	// Identification
	ID   string `json:"id"`   // Namespaced ID (e.g., "hexcasting:get_caster")
	Name string `json:"name"` // Display name (e.g., "Mind's Reflection")

	// Drawing
	Direction  Direction `json:"direction"`
	Signature  string    `json:"signature"`
	IsPerWorld bool      `json:"is_per_world"`

	Operators []Operator `json:"operators"`
}

// Operator describes one implementation of a pattern as documented in a
// mod's book
type Operator struct {
	Description string  `json:"description"`
	Inputs      *string `json:"inputs"`  // Nullable - absent for patterns with no stack inputs
	Outputs     *string `json:"outputs"` // Nullable
	BookURL     string  `json:"book_url"`
	ModID       string  `json:"mod_id"`
}

// ValidateDirection checks if the pattern direction is valid
func (p *Pattern) ValidateDirection() error {
	switch p.Direction {
	case DirEast, DirNorthEast, DirNorthWest, DirWest, DirSouthWest, DirSouthEast:
		return nil
	default:
		return ErrInvalidDirection
	}
}

// ValidateSignature checks that the signature only uses stroke letters.
// Per-world patterns may have an empty signature.
func (p *Pattern) ValidateSignature() error {
	if p.Signature == "" && !p.IsPerWorld {
		return ErrInvalidSignature
	}
	if strings.Trim(p.Signature, signatureAngles) != "" {
		return ErrInvalidSignature
	}
	return nil
}

// Validate performs comprehensive validation of the pattern
func (p *Pattern) Validate() error {
	if p.ID == "" {
		return errors.New("pattern ID is required")
	}

	if p.Name == "" {
		return errors.New("pattern name is required")
	}

	if err := p.ValidateDirection(); err != nil {
		return err
	}

	if err := p.ValidateSignature(); err != nil {
		return err
	}

	for i := range p.Operators {
		if err := p.Operators[i].Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Namespace returns the part of the ID before the colon, or "" if none
func (p *Pattern) Namespace() string {
	ns, _, ok := strings.Cut(p.ID, ":")
	if !ok {
		return ""
	}
	return ns
}

// Path returns the part of the ID after the colon
func (p *Pattern) Path() string {
	_, path, ok := strings.Cut(p.ID, ":")
	if !ok {
		return p.ID
	}
	return path
}

// Validate checks the operator has the fields the generator depends on
func (o *Operator) Validate() error {
	if o.ModID == "" {
		return ErrMissingModID
	}
	return nil
}

// InputsText returns the raw inputs description, or "" when absent
func (o *Operator) InputsText() string {
	if o.Inputs == nil {
		return ""
	}
	return *o.Inputs
}

// OutputsText returns the raw outputs description, or "" when absent
func (o *Operator) OutputsText() string {
	if o.Outputs == nil {
		return ""
	}
	return *o.Outputs
}
