package annot

import (
	json "github.com/goccy/go-json"
)

// Trace captures how one attribute of a resolved view obtained its value.
type Trace struct {
	Hierarchy string         `json:"hierarchy"`
	Type      TypeID         `json:"type"`
	Attribute string         `json:"attribute"`
	Value     any            `json:"value,omitempty"`
	Err       string         `json:"error,omitempty"`
	Relations []RelationKind `json:"relations,omitempty"`
	Source    *Provenance    `json:"source,omitempty"`
	Origins   []Provenance   `json:"origins"`
}

// Provenance details one node contributing to a traced attribute.
type Provenance struct {
	Type       TypeID `json:"type"`
	Attribute  string `json:"attribute"`
	Vertical   int    `json:"vertical"`
	Horizontal int    `json:"horizontal"`
	Value      any    `json:"value,omitempty"`
	Default    bool   `json:"default"`
	Canonical  bool   `json:"canonical"`
}

// Trace reports the resolved value of name together with the relation kinds
// traversed, the node that supplied the value and the own values of every
// origin accessor. Access failures are recorded in Err rather than returned.
func (v *View) Trace(name string) (Trace, error) {
	trace := Trace{Type: v.typeID, Attribute: name, Hierarchy: v.h.ID()}
	if v.node == nil {
		return trace, nil
	}
	i := v.node.Type.attributeIndex(name)
	if i < 0 {
		return Trace{}, &AccessError{
			Type:        v.typeID,
			Attribute:   name,
			Declaration: v.h.Declaration(),
			Err:         ErrUnknownAttribute,
		}
	}

	slot := v.node.slots[i]
	trace.Relations = relationKinds(slot)

	value, err := v.node.resolvedValue(i)
	if err != nil {
		trace.Err = err.Error()
	} else {
		trace.Value = value
	}
	if cell := v.node.resolvedCell(i); cell != nil && cell.source != nil {
		if j := matchingAttribute(cell.source, v.node.Type.Attributes[i]); j >= 0 {
			source := provenanceOf(cell.source.slots[j])
			trace.Source = &source
		}
	}
	for _, origin := range Origins(slot) {
		trace.Origins = append(trace.Origins, provenanceOf(origin))
	}
	return trace, nil
}

func provenanceOf(a Accessor) Provenance {
	node := a.Node()
	p := Provenance{
		Type:       node.Type.ID,
		Attribute:  a.Attribute().Name,
		Vertical:   node.Vertical,
		Horizontal: node.Horizontal,
		Canonical:  node.Canonical(),
	}
	if value, err := a.Value(); err == nil {
		p.Value = value
	}
	if isDefault, err := a.IsDefault(); err == nil {
		p.Default = isDefault
	}
	return p
}

// relationKinds lists the relation kinds wrapping a, outermost first.
func relationKinds(a Accessor) []RelationKind {
	var kinds []RelationKind
	var walk func(Accessor)
	walk = func(current Accessor) {
		w, ok := current.(Wrapper)
		if !ok {
			return
		}
		kinds = append(kinds, w.Kind())
		walk(w.Original())
		walk(w.Linked())
	}
	walk(a)
	return kinds
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
