package schema

// Description is a serializable view of a compiled schema.
type Description struct {
	PointerSize int                 `json:"pointer_size" yaml:"pointer_size"`
	Records     []RecordDescription `json:"records" yaml:"records"`
}

// RecordDescription describes one compiled record type.
type RecordDescription struct {
	Name   string             `json:"name" yaml:"name"`
	Index  int                `json:"index" yaml:"index"`
	Size   int                `json:"size" yaml:"size"`
	Flags  string             `json:"flags,omitempty" yaml:"flags,omitempty"`
	Fields []FieldDescription `json:"fields" yaml:"fields"`
}

// FieldDescription describes one leaf field.
type FieldDescription struct {
	Path   string `json:"path" yaml:"path"`
	Type   string `json:"type" yaml:"type"`
	Name   string `json:"name" yaml:"name"`
	Offset int    `json:"offset" yaml:"offset"`
	Len    int    `json:"len" yaml:"len"`
	Flags  string `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// Describe returns the description of c. When record is not empty only
// that record is included; ok is false if it does not exist.
func (c *Compiled) Describe(record string) (d Description, ok bool) {
	d.PointerSize = c.PointerSize
	for _, st := range c.Structs {
		if record != "" && st.Name() != record {
			continue
		}
		d.Records = append(d.Records, describeStruct(st))
	}
	return d, record == "" || len(d.Records) > 0
}

func describeStruct(st *Struct) RecordDescription {
	r := RecordDescription{
		Name:   st.Name(),
		Index:  st.Index,
		Size:   st.Size,
		Fields: make([]FieldDescription, 0, len(st.Fields)),
	}
	if st.Flags != 0 {
		r.Flags = st.Flags.String()
	}
	for _, f := range st.Fields {
		fd := FieldDescription{
			Path:   f.Path,
			Type:   f.Type.Name,
			Name:   f.Name.Text,
			Offset: f.Offset,
			Len:    f.Len,
		}
		if f.Flags != 0 {
			fd.Flags = f.Flags.String()
		}
		r.Fields = append(r.Fields, fd)
	}
	return r
}
