package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ColumnKind は書き込み可能な列の値の種類。
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindUUID
	KindDate
	KindNumeric
	KindInt
	KindBool
	KindTextArray
)

// ColumnSpec は書き込み可能な列の名前と種類。
// Requiredの列は、指定された場合にnullや空の値を受け付けない。
type ColumnSpec struct {
	Name     string
	Kind     ColumnKind
	Required bool
}

// FieldValue は部分更新で指定された1列分の値。Valueがnilの場合はNULLを書き込む。
type FieldValue struct {
	Column string
	Value  any
}

// CompanyColumns は PATCH /companies/{id} で受け付ける企業列。
var CompanyColumns = []ColumnSpec{
	{Name: "legal_name", Kind: KindText, Required: true},
	{Name: "function_description", Kind: KindText},
	{Name: "geographical_coverage", Kind: KindTextArray, Required: true},
	{Name: "company_email", Kind: KindText, Required: true},
	{Name: "website_url", Kind: KindText},
	{Name: "phone_number", Kind: KindText},
	{Name: "registration_url", Kind: KindText},
	{Name: "employees_count", Kind: KindInt},
	{Name: "delete_flag", Kind: KindBool},
	{Name: "business_function", Kind: KindText, Required: true},
}

// DecodeFields はJSONオブジェクトから specs に含まれる列だけを取り出し、列の種類に従って変換する。
// 未知のキーは無視する。結果はspecsの順序に並ぶ。
// 型が合わない値は invalid_input、Required列のnullや空値は <列名>_required のエラーになる。
func DecodeFields(body map[string]json.RawMessage, specs []ColumnSpec) ([]FieldValue, error) {
	fields := make([]FieldValue, 0, len(body))
	for _, spec := range specs {
		raw, ok := body[spec.Name]
		if !ok {
			continue
		}
		v, err := decodeValue(raw, spec)
		if err != nil {
			return nil, err
		}
		fields = append(fields, FieldValue{Column: spec.Name, Value: v})
	}
	return fields, nil
}

func decodeValue(raw json.RawMessage, spec ColumnSpec) (any, error) {
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		if spec.Required {
			return nil, NewRequiredFieldError(spec.Name)
		}
		return nil, nil
	}

	invalid := NewValidationError(ErrCodeInvalidInput, fmt.Sprintf("%s has an invalid value.", spec.Name))

	switch spec.Kind {
	case KindText:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, invalid
		}
		if spec.Required && strings.TrimSpace(s) == "" {
			return nil, NewRequiredFieldError(spec.Name)
		}
		return s, nil

	case KindUUID:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, invalid
		}
		if s == "" {
			return nil, nil
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, NewValidationError(ErrCodeInvalidInputSyntax, fmt.Sprintf("%s must be a UUID.", spec.Name))
		}
		return id.String(), nil

	case KindDate:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, invalid
		}
		if s == "" {
			return nil, nil
		}
		d, err := ParseDate(s)
		if err != nil {
			return nil, invalid
		}
		return d, nil

	case KindNumeric:
		return decodeNumeric(raw, invalid)

	case KindInt:
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, invalid
		}
		return n, nil

	case KindBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, invalid
		}
		return b, nil

	case KindTextArray:
		var arr []string
		if err := json.Unmarshal(raw, &arr); err != nil {
			return nil, invalid
		}
		if spec.Required && len(arr) == 0 {
			return nil, NewRequiredFieldError(spec.Name)
		}
		return pq.StringArray(arr), nil
	}

	return nil, invalid
}

var errInvalidNumeric = errors.New("invalid numeric")

// ParseNumeric は数値または数値文字列を、numeric列に渡せる文字列にする。
// null、空文字列、数値でない値はfalseを返す。
func ParseNumeric(raw json.RawMessage) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	v, err := decodeNumeric(raw, errInvalidNumeric)
	s, ok := v.(string)
	return s, err == nil && ok && s != ""
}

// decodeNumeric は数値または数値文字列を受け付け、精度を保ったまま文字列で返す。
func decodeNumeric(raw json.RawMessage, invalid error) (any, error) {
	var num json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, invalid
	}
	switch t := v.(type) {
	case json.Number:
		num = t
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err != nil {
			return nil, invalid
		}
		num = json.Number(strings.TrimSpace(t))
	default:
		return nil, invalid
	}
	return num.String(), nil
}
