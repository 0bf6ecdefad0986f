package model

import "strconv"

// ページサイズの上限。
const MaxPageSize = 100

// PageRequest は一覧取得のページ指定。Pageは1始まり。
type PageRequest struct {
	Page     int
	PageSize int
}

// NewPageRequest はクエリ文字列のpage/pageSizeを解釈してクランプする。
// 数値でない値や0はデフォルトとして扱い、page >= 1、1 <= pageSize <= 100 に収める。
func NewPageRequest(rawPage, rawPageSize string, defaultPageSize int) PageRequest {
	page := parsePositive(rawPage, 1)
	if page < 1 {
		page = 1
	}

	pageSize := parsePositive(rawPageSize, defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	return PageRequest{Page: page, PageSize: pageSize}
}

// Offset はLIMIT/OFFSET用のオフセットを返す。
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// parsePositive は整数として解釈できない値と0をdefaultValに置き換える。
// 負数はそのまま返し、呼び出し側でクランプする。
func parsePositive(raw string, defaultVal int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n == 0 {
		return defaultVal
	}
	return n
}

// Page はページング付き一覧の応答。
type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}
