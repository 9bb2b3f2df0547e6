package erp

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var jsonFalse = []byte("false")

// String decodes an ERP char field, which arrives as false when empty
type String string

func (s *String) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, jsonFalse) || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("erp string: %w", err)
	}
	*s = String(v)
	return nil
}

// Many2One decodes a relational field sent as [id, "display name"] or false
type Many2One struct {
	ID   int64
	Name string
}

func (m *Many2One) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, jsonFalse) || bytes.Equal(data, []byte("null")) {
		*m = Many2One{}
		return nil
	}
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		// Some methods return the bare id
		var id int64
		if err2 := json.Unmarshal(data, &id); err2 == nil {
			*m = Many2One{ID: id}
			return nil
		}
		return fmt.Errorf("erp many2one: %w", err)
	}
	if len(pair) == 0 {
		*m = Many2One{}
		return nil
	}
	if err := json.Unmarshal(pair[0], &m.ID); err != nil {
		return fmt.Errorf("erp many2one id: %w", err)
	}
	if len(pair) > 1 {
		var name String
		if err := json.Unmarshal(pair[1], &name); err != nil {
			return fmt.Errorf("erp many2one name: %w", err)
		}
		m.Name = string(name)
	}
	return nil
}

// IsSet reports whether the relation points at a record
func (m Many2One) IsSet() bool {
	return m.ID != 0
}

// Bool decodes boolean fields that some servers send as 0/1
type Bool bool

func (b *Bool) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true", "1":
		*b = true
	case "false", "0", "null":
		*b = false
	default:
		return fmt.Errorf("erp bool: unexpected value %s", data)
	}
	return nil
}
