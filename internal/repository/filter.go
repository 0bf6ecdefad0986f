package repository

import (
	"fmt"
	"strings"

	"github.com/hitoshi/carbonmarket/internal/model"
)

// Filter は一覧クエリのWHERE句を$n形式のプレースホルダで組み立てる。
// 空文字列の条件は追加しない。
type Filter struct {
	clauses []string
	args    []any
}

// NewFilter は固定条件（例: "c.delete_flag = false"）を持つFilterを生成する。
func NewFilter(fixed ...string) *Filter {
	return &Filter{clauses: append([]string(nil), fixed...)}
}

func (f *Filter) bind(v any) string {
	f.args = append(f.args, v)
	return fmt.Sprintf("$%d", len(f.args))
}

// ILike はいずれかの列が部分一致する条件を追加する。値は1つのプレースホルダを共有する。
func (f *Filter) ILike(q string, cols ...string) *Filter {
	q = strings.TrimSpace(q)
	if q == "" || len(cols) == 0 {
		return f
	}
	ph := f.bind("%" + q + "%")
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c + " ILIKE " + ph
	}
	f.clauses = append(f.clauses, "("+strings.Join(parts, " OR ")+")")
	return f
}

// Eq は完全一致条件を追加する。
func (f *Filter) Eq(col, v string) *Filter {
	v = strings.TrimSpace(v)
	if v == "" {
		return f
	}
	f.clauses = append(f.clauses, col+" = "+f.bind(v))
	return f
}

// Contains は配列列が値を含む条件を追加する。
func (f *Filter) Contains(col, v string) *Filter {
	v = strings.TrimSpace(v)
	if v == "" {
		return f
	}
	f.clauses = append(f.clauses, col+" @> ARRAY["+f.bind(v)+"]::text[]")
	return f
}

// Where は "WHERE a AND b" を返す。条件がなければ空文字列。
func (f *Filter) Where() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(f.clauses, " AND ")
}

// Args は件数クエリ用の引数のコピーを返す。
func (f *Filter) Args() []any {
	return append([]any(nil), f.args...)
}

// Paged はページクエリ用の LIMIT/OFFSET 句と、それを含む引数の新しいスライスを返す。
// 件数クエリの引数とは共有しない。
func (f *Filter) Paged(p model.PageRequest) (string, []any) {
	n := len(f.args)
	args := append(f.Args(), p.PageSize, p.Offset())
	return fmt.Sprintf("LIMIT $%d OFFSET $%d", n+1, n+2), args
}

// buildSet は部分更新のSET句と引数を返す。プレースホルダは$1から振る。
func buildSet(fields []model.FieldValue) (string, []any) {
	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for i, fv := range fields {
		sets = append(sets, fmt.Sprintf("%s = $%d", fv.Column, i+1))
		args = append(args, fv.Value)
	}
	return strings.Join(sets, ", "), args
}

// prefixed は列名の並びに表の別名を付ける。
func prefixed(alias string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return strings.Join(out, ", ")
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
