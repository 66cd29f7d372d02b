package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Pagination represents limit/skip paging parameters
type Pagination struct {
	Limit int   `json:"limit"`
	Skip  int   `json:"skip"`
	Total int64 `json:"total"`
}

// NewPagination reads limit and skip from the query string, falling back to defaults
func NewPagination(c *gin.Context, defaultLimit int) *Pagination {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxPaginationLimit {
		limit = MaxPaginationLimit
	}

	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		skip = 0
	}

	return &Pagination{
		Limit: limit,
		Skip:  skip,
	}
}

// SetTotal sets the total number of matching items
func (p *Pagination) SetTotal(total int64) {
	p.Total = total
}
