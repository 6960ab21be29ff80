package api

import (
	"strconv" // String conversion

	"github.com/gin-gonic/gin" // Gin web framework
)

// pageParams reads page and page_size, defaulting to 1 and 20
func pageParams(c *gin.Context) (page, pageSize int) {
	page = 1      // Default page number
	pageSize = 20 // Default page size
	if p := c.Query("page"); p != "" {
		// If valid, set page number
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	// Check and set page size within limits
	if ps := c.Query("page_size"); ps != "" {
		// If valid, set page size
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}
	return page, pageSize
}

// totalPages rounds total/pageSize up
func totalPages(total int64, pageSize int) int {
	return (int(total) + pageSize - 1) / pageSize
}
