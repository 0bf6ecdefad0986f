package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout はAPIとデータベースで使う日付の書式。
const DateLayout = "2006-01-02"

// Date はPostgreSQLのdate列をYYYY-MM-DD形式で入出力する。
type Date struct {
	time.Time
}

// ParseDate はYYYY-MM-DDまたはRFC3339形式の文字列を日付として解釈する。
func ParseDate(s string) (Date, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q", s)
	}
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}, nil
}

// String はYYYY-MM-DD形式の文字列を返す。
func (d Date) String() string {
	return d.Format(DateLayout)
}

// Scan はsql.Scannerを実装する。
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.Time = v
		return nil
	case []byte:
		parsed, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("date: unsupported scan type %T", src)
	}
}

// Value はdriver.Valuerを実装する。
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// MarshalJSON はjson.Marshalerを実装する。
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}
