package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// StringSet is a JSON-backed set of strings, used for Shot.CharacterRefs.
// Implements driver.Valuer/sql.Scanner the way the teacher's TaskParameters
// does for its JSON columns (models/task.go).
type StringSet []string

func (s StringSet) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *StringSet) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("failed to unmarshal StringSet value:", value))
	}
	return json.Unmarshal(bytes, s)
}

func (s StringSet) Contains(v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
