package entities

type TaxonomyTerm struct {
	TID         Int    `json:"tid"`
	VID         Int    `json:"vid"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Weight      Int    `json:"weight,omitempty"`
	Depth       Int    `json:"depth,omitempty"`
}
