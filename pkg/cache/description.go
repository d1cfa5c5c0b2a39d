package cache

// Field is one field of a custom object.
type Field struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	DataType    string `json:"dataType"`
	Length      int    `json:"length,omitempty"`
	Updateable  bool   `json:"updateable"`
	CRMManaged  bool   `json:"crmManaged"`
}

// Relationship links a custom object field to another object.
type Relationship struct {
	Field     string `json:"field"`
	Type      string `json:"type"`
	RelatedTo struct {
		Name  string `json:"name"`
		Field string `json:"field"`
	} `json:"relatedTo"`
}

// Description is the schema of a custom object as returned by describe.
// Cached descriptions are shared; callers must not modify them.
type Description struct {
	Name             string         `json:"name"`
	DisplayName      string         `json:"displayName"`
	Description      string         `json:"description,omitempty"`
	IDField          string         `json:"idField"`
	DedupeFields     []string       `json:"dedupeFields"`
	SearchableFields [][]string     `json:"searchableFields"`
	Fields           []Field        `json:"fields"`
	Relationships    []Relationship `json:"relationships,omitempty"`
	CreatedAt        string         `json:"createdAt,omitempty"`
	UpdatedAt        string         `json:"updatedAt,omitempty"`
}

// FieldNames returns the names of all fields in schema order.
func (d *Description) FieldNames() []string {
	names := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		names = append(names, f.Name)
	}
	return names
}

// IsSearchable reports whether name is a single-field search key.
func (d *Description) IsSearchable(name string) bool {
	for _, key := range d.SearchableFields {
		if len(key) == 1 && key[0] == name {
			return true
		}
	}
	return false
}
