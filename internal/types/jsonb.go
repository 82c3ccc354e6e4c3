package types

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

var (
	_ sql.Scanner   = (*ThresholdOverrides)(nil)
	_ driver.Valuer = ThresholdOverrides{}
	_ sql.Scanner   = (*Alert)(nil)
	_ driver.Valuer = Alert{}
	_ sql.Scanner   = (*Location)(nil)
	_ driver.Valuer = Location{}
)

// scanJSONB decodes a JSONB column value into dest. It accepts both []byte and
// string representations since drivers differ.
func scanJSONB(dest any, value any) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, dest)
}

func valueJSONB(v any) (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Scan implements sql.Scanner. A NULL column yields empty overrides.
func (o *ThresholdOverrides) Scan(value any) error {
	if value == nil {
		*o = ThresholdOverrides{}
		return nil
	}
	return scanJSONB(o, value)
}

// Value implements driver.Valuer.
func (o ThresholdOverrides) Value() (driver.Value, error) {
	return valueJSONB(o)
}

// Scan implements sql.Scanner.
func (a *Alert) Scan(value any) error {
	return scanJSONB(a, value)
}

// Value implements driver.Valuer.
func (a Alert) Value() (driver.Value, error) {
	return valueJSONB(a)
}

// Scan implements sql.Scanner.
func (l *Location) Scan(value any) error {
	return scanJSONB(l, value)
}

// Value implements driver.Valuer.
func (l Location) Value() (driver.Value, error) {
	return valueJSONB(l)
}
