package common

import (
	"math"
	"strconv"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

type PaginationResult struct {
	Success     bool        `json:"success"`
	Message     string      `json:"message"`
	Data        interface{} `json:"data"`
	Count       int64       `json:"count"`
	CurrentPage int         `json:"currentPage"`
	NextPage    int         `json:"nextPage"`
	PrevPage    int         `json:"prevPage"`
	LastPage    int         `json:"lastPage"`
}

// PageParams is a normalised page/limit pair parsed from query strings.
type PageParams struct {
	Page  int
	Limit int
}

func (p PageParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ParsePageParams reads "page" and "limit" values, falling back to page 1
// and DefaultPageSize. Limit is capped at MaxPageSize.
func ParsePageParams(page, limit string) PageParams {
	p, err := strconv.Atoi(page)
	if err != nil || p < 1 {
		p = 1
	}
	l, err := strconv.Atoi(limit)
	if err != nil || l < 1 {
		l = DefaultPageSize
	}
	if l > MaxPageSize {
		l = MaxPageSize
	}
	return PageParams{Page: p, Limit: l}
}

// PaginateResponse wraps one page of results. nextPage and prevPage are 0
// when there is no such page.
func PaginateResponse(data interface{}, total int64, page int, limit int, message string) PaginationResult {
	if message == "" {
		message = "success"
	}

	lastPage := 0
	if limit > 0 {
		lastPage = int(math.Ceil(float64(total) / float64(limit)))
	}

	nextPage := page + 1
	if nextPage > lastPage {
		nextPage = 0
	}

	prevPage := page - 1
	if prevPage < 1 {
		prevPage = 0
	}

	return PaginationResult{
		Success:     true,
		Message:     message,
		Data:        data,
		Count:       total,
		CurrentPage: page,
		NextPage:    nextPage,
		PrevPage:    prevPage,
		LastPage:    lastPage,
	}
}
