package models

// ApiModel is a named data model from the API documentation
type ApiModel struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Fields      []ApiField `json:"fields"`
}

// ApiField is a single field of an ApiModel
type ApiField struct {
	Name       string     `json:"name"`
	Type       string     `json:"type"` // Declared type e.g. String, Integer, List<Address>, Tag[]
	IsRequired bool       `json:"isRequired"`
	IsComplex  bool       `json:"isComplex"`
	RefFields  []ApiField `json:"refFields,omitempty"` // Inline nested fields, preferred over a model lookup
}

// FindModel returns the model with the given name
func FindModel(models []*ApiModel, name string) *ApiModel {
	for _, m := range models {
		if m != nil && m.Name == name {
			return m
		}
	}
	return nil
}
