package api

import (
	"context"                 // Context for service calls
	"errors"                  // Error matching
	"money42/internal/domain" // Importing domain models
	"money42/internal/store"  // Profile summaries
	"money42/internal/utils"  // Utility functions
	"net/http"                // HTTP status codes
	"strconv"                 // String conversion
	"strings"                 // String manipulation
	"time"                    // Time durations
	"unicode/utf8"            // Length in characters, as the column counts it

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// maxIssue caps the number of codes created by one request
const maxIssue = 500

// maxCodeLen matches the code column width
const maxCodeLen = 64

// generatedLen is the length GenerateCode adds after the prefix separator
const generatedLen = len("XXXX-XXXX")

// AdminStore is the storage the admin handlers need
type AdminStore interface {
	CreateCodes(ctx context.Context, codes []domain.TransactionCode) error
	ListCodes(ctx context.Context, used *bool, page, pageSize int) ([]domain.TransactionCode, int64, error)
	ListProfiles(ctx context.Context, page, pageSize int) ([]store.ProfileSummary, int64, error)
}

// IssueCodesRequest creates codes of one type and amount. Either Codes lists
// them explicitly or Count random codes are generated with Prefix.
type IssueCodesRequest struct {
	Type   domain.CodeType `json:"type"`   // deposit or withdraw
	Amount int64           `json:"amount"` // Yen per code
	Codes  []string        `json:"codes"`  // Explicit code strings
	Count  int             `json:"count"`  // Number of random codes
	Prefix string          `json:"prefix"` // Prefix for random codes
}

// IssueCodesHandler creates a batch of redeemable codes
func IssueCodesHandler(st AdminStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req IssueCodesRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Validate type and amount
		if !req.Type.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "type must be deposit or withdraw"})
			return
		}
		if req.Amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
			return
		}
		strs, err := codeStrings(req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		codes := make([]domain.TransactionCode, len(strs)) // Rows to insert
		for i, s := range strs {
			codes[i] = domain.TransactionCode{Code: s, Type: req.Type, Amount: req.Amount}
		}
		if err := st.CreateCodes(c.Request.Context(), codes); err != nil {
			if errors.Is(err, domain.ErrCodeExists) {
				// Whole batch rejected
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			logrus.WithError(err).Error("Failed to create codes")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create codes"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"type":   req.Type,   // Code type
			"amount": req.Amount, // Amount per code
			"count":  len(codes), // Batch size
		}).Info("Codes issued")
		c.JSON(http.StatusCreated, gin.H{"codes": codes}) // Return created codes
	}
}

// codeStrings resolves the request into the list of code strings to insert
func codeStrings(req IssueCodesRequest) ([]string, error) {
	if len(req.Codes) > 0 {
		if len(req.Codes) > maxIssue {
			return nil, errors.New("too many codes")
		}
		out := make([]string, 0, len(req.Codes))
		seen := make(map[string]bool, len(req.Codes)) // Reject duplicates within the batch
		for _, s := range req.Codes {
			s = strings.TrimSpace(s)
			if s == "" {
				return nil, errors.New("codes must not be blank")
			}
			if utf8.RuneCountInString(s) > maxCodeLen {
				return nil, errors.New("code longer than " + strconv.Itoa(maxCodeLen) + " characters")
			}
			if seen[s] {
				return nil, errors.New("duplicate code " + s)
			}
			seen[s] = true
			out = append(out, s)
		}
		return out, nil
	}
	if req.Count <= 0 || req.Count > maxIssue {
		return nil, errors.New("count must be between 1 and " + strconv.Itoa(maxIssue))
	}
	if utf8.RuneCountInString(strings.ToUpper(req.Prefix)) > maxCodeLen-generatedLen-1 {
		return nil, errors.New("prefix longer than " + strconv.Itoa(maxCodeLen-generatedLen-1) + " characters")
	}
	out := make([]string, 0, req.Count)
	seen := make(map[string]bool, req.Count)
	for len(out) < req.Count {
		s, err := utils.GenerateCode(req.Prefix)
		if err != nil {
			return nil, err
		}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out, nil
}

// ListCodesHandler returns codes, optionally filtered by used=true|false
func ListCodesHandler(st AdminStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var used *bool // Filter on is_used when set
		if u := c.Query("used"); u != "" {
			v, err := strconv.ParseBool(u)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "used must be true or false"})
				return
			}
			used = &v
		}
		page, pageSize := pageParams(c) // Pagination from query
		codes, total, err := st.ListCodes(c.Request.Context(), used, page, pageSize)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch codes"})
			return
		}
		if codes == nil {
			codes = []domain.TransactionCode{}
		}
		c.JSON(http.StatusOK, gin.H{
			"codes":       codes,                       // List of codes
			"page":        page,                        // Current page
			"page_size":   pageSize,                    // Page size
			"total":       total,                       // Total codes
			"total_pages": totalPages(total, pageSize), // Total pages
		})
	}
}

// profilesPage is the cached shape of a ListProfilesHandler response
type profilesPage struct {
	Profiles   []store.ProfileSummary `json:"profiles"`    // List of profiles
	Page       int                    `json:"page"`        // Current page
	PageSize   int                    `json:"page_size"`   // Page size
	Total      int64                  `json:"total"`       // Total number of profiles
	TotalPages int                    `json:"total_pages"` // Total pages
	Cached     bool                   `json:"cached"`      // Served from cache
}

// ListProfilesHandler returns all profiles with their owner's email.
// Responses are cached in Redis for ttl; a nil client disables caching.
func ListProfilesHandler(st AdminStore, rdb redis.Cmdable, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page, pageSize := pageParams(c) // Pagination from query
		// Create a cache key based on pagination parameters
		cacheKey := "admin:profiles:page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		var cached profilesPage
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			cached.Cached = true // Indicate response is from cache
			c.JSON(http.StatusOK, cached)
			return
		}
		profiles, total, err := st.ListProfiles(ctx, page, pageSize)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profiles"})
			return
		}
		if profiles == nil {
			profiles = []store.ProfileSummary{}
		}
		resp := profilesPage{
			Profiles:   profiles,
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages(total, pageSize),
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, ttl)
		c.JSON(http.StatusOK, resp) // Return the response
	}
}
