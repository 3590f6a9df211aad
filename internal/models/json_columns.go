package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringArray stores string lists as JSON, while tolerating legacy plain-string data.
type StringArray []string

func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *StringArray) Scan(value interface{}) error {
	if a == nil {
		return fmt.Errorf("models.StringArray: Scan on nil pointer")
	}
	if value == nil {
		*a = []string{}
		return nil
	}

	raw, err := rawJSONString(value)
	if err != nil {
		return fmt.Errorf("models.StringArray: %w", err)
	}
	if raw == "" || raw == "null" {
		*a = []string{}
		return nil
	}

	var arr []string
	if err := json.Unmarshal([]byte(raw), &arr); err == nil {
		*a = arr
		return nil
	}

	var single string
	if err := json.Unmarshal([]byte(raw), &single); err == nil {
		if single == "" {
			*a = []string{}
		} else {
			*a = []string{single}
		}
		return nil
	}

	*a = []string{raw}
	return nil
}

// JSONMap stores a free-form object column (publication meta, post options).
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *JSONMap) Scan(value interface{}) error {
	if m == nil {
		return fmt.Errorf("models.JSONMap: Scan on nil pointer")
	}
	if value == nil {
		*m = JSONMap{}
		return nil
	}

	raw, err := rawJSONString(value)
	if err != nil {
		return fmt.Errorf("models.JSONMap: %w", err)
	}
	if raw == "" || raw == "null" {
		*m = JSONMap{}
		return nil
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return fmt.Errorf("models.JSONMap: %w", err)
	}
	*m = obj
	return nil
}

func rawJSONString(value interface{}) (string, error) {
	switch v := value.(type) {
	case []byte:
		return strings.TrimSpace(string(v)), nil
	case string:
		return strings.TrimSpace(v), nil
	default:
		return "", fmt.Errorf("unsupported Scan type %T", value)
	}
}
