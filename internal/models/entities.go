package models

// Field names an extractable entity
type Field string

const (
	FieldPartNumber    Field = "part_number"
	FieldModelNumber   Field = "model_number"
	FieldApplianceType Field = "appliance_type"
	FieldSymptom       Field = "symptom"
	FieldBrand         Field = "brand"
)

// Entities holds the structured fields pulled out of a message.
// Every field is optional; absence is the common case.
type Entities struct {
	PartNumbers   []string       `json:"part_numbers,omitempty"`
	ModelNumbers  []string       `json:"model_numbers,omitempty"`
	ApplianceType string         `json:"appliance_type,omitempty"`
	Brand         string         `json:"brand,omitempty"`
	Symptom       string         `json:"symptom,omitempty"`
	Inherited     map[Field]bool `json:"inherited,omitempty"`
}

// PartNumber returns the first part number, or "".
func (e Entities) PartNumber() string {
	if len(e.PartNumbers) == 0 {
		return ""
	}
	return e.PartNumbers[0]
}

// ModelNumber returns the first model number, or "".
func (e Entities) ModelNumber() string {
	if len(e.ModelNumbers) == 0 {
		return ""
	}
	return e.ModelNumbers[0]
}

func (e Entities) Get(f Field) string {
	switch f {
	case FieldPartNumber:
		return e.PartNumber()
	case FieldModelNumber:
		return e.ModelNumber()
	case FieldApplianceType:
		return e.ApplianceType
	case FieldBrand:
		return e.Brand
	case FieldSymptom:
		return e.Symptom
	}
	return ""
}

func (e Entities) Has(f Field) bool {
	return e.Get(f) != ""
}

func (e Entities) Empty() bool {
	return len(e.PartNumbers) == 0 && len(e.ModelNumbers) == 0 &&
		e.ApplianceType == "" && e.Brand == "" && e.Symptom == ""
}

// AsMap flattens the entities for prompts and cache keys
func (e Entities) AsMap() map[string]string {
	m := make(map[string]string)
	for _, f := range []Field{FieldPartNumber, FieldModelNumber, FieldApplianceType, FieldBrand, FieldSymptom} {
		if v := e.Get(f); v != "" {
			m[string(f)] = v
		}
	}
	return m
}

// Inherit fills fields missing from e with the values found in prior.
// Symptoms describe the current turn only and are never inherited.
func (e Entities) Inherit(prior Entities) Entities {
	out := e
	out.Inherited = make(map[Field]bool)
	for f, v := range e.Inherited {
		out.Inherited[f] = v
	}

	if len(out.PartNumbers) == 0 && len(prior.PartNumbers) > 0 {
		out.PartNumbers = append([]string(nil), prior.PartNumbers...)
		out.Inherited[FieldPartNumber] = true
	}
	if len(out.ModelNumbers) == 0 && len(prior.ModelNumbers) > 0 {
		out.ModelNumbers = append([]string(nil), prior.ModelNumbers...)
		out.Inherited[FieldModelNumber] = true
	}
	if out.ApplianceType == "" && prior.ApplianceType != "" {
		out.ApplianceType = prior.ApplianceType
		out.Inherited[FieldApplianceType] = true
	}
	if out.Brand == "" && prior.Brand != "" {
		out.Brand = prior.Brand
		out.Inherited[FieldBrand] = true
	}

	if len(out.Inherited) == 0 {
		out.Inherited = nil
	}
	return out
}
