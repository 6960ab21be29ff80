package api

import (
	"context"                     // Context for service calls
	"errors"                      // Error matching
	"money42/internal/domain"     // Importing domain models
	"money42/internal/middleware" // Authenticated user lookup
	"money42/internal/wallet"     // Wallet service types
	"net/http"                    // HTTP status codes

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// WalletService is the wallet behaviour the handlers need
type WalletService interface {
	Balance(ctx context.Context, userID string) (*wallet.Balance, error)
	Redeem(ctx context.Context, userID, code string) (*wallet.Outcome, error)
	History(ctx context.Context, userID string, page, pageSize int) ([]domain.Transaction, int64, error)
}

// RedeemRequest represents a code redemption request
type RedeemRequest struct {
	Code string `json:"code"` // Code typed by the user
}

// RedeemResponse is the body of a successful redemption
type RedeemResponse struct {
	Message       string          `json:"message"`        // e.g. "deposit success: ¥500"
	TransactionID uint            `json:"transaction_id"` // Ledger row
	Type          domain.CodeType `json:"type"`           // deposit or withdraw
	Amount        int64           `json:"amount"`         // Code amount
	Balance       int64           `json:"balance"`        // Balance after redemption
}

// GetBalanceHandler returns the balance of the authenticated user
func GetBalanceHandler(svc WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := middleware.UserID(c) // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		balance, err := svc.Balance(c.Request.Context(), userID) // Cached or fresh balance
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // User ID
				"error":   err.Error(), // Error message
			}).Error("Failed to fetch balance") // Log failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch balance"})
			return
		}
		c.JSON(http.StatusOK, balance) // Return balance info
	}
}

// RedeemHandler redeems a transaction code for the authenticated user
func RedeemHandler(svc WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := middleware.UserID(c) // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req RedeemRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		outcome, err := svc.Redeem(c.Request.Context(), userID, req.Code)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrEmptyCode):
			c.Status(http.StatusNoContent) // Nothing to do
			return
		case errors.Is(err, domain.ErrInvalidCode):
			c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrInvalidCode.Error()})
			return
		case errors.Is(err, domain.ErrInsufficientBalance):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": domain.ErrInsufficientBalance.Error()})
			return
		default:
			// Details are logged by the service; the user sees a generic message
			c.JSON(http.StatusInternalServerError, gin.H{"error": domain.ErrRedeemFailed.Error()})
			return
		}
		// Return success response
		c.JSON(http.StatusOK, RedeemResponse{
			Message:       outcome.Message(),
			TransactionID: outcome.TransactionID,
			Type:          outcome.Type,
			Amount:        outcome.Amount,
			Balance:       outcome.Balance,
		})
	}
}

// GetTransactionHistoryHandler returns the authenticated user's redemptions
func GetTransactionHistoryHandler(svc WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := middleware.UserID(c) // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		page, pageSize := pageParams(c) // Pagination from query
		txs, total, err := svc.History(c.Request.Context(), userID, page, pageSize)
		if err != nil {
			logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Error("Failed to fetch transactions")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}
		if txs == nil {
			txs = []domain.Transaction{} // Render [] rather than null
		}
		c.JSON(http.StatusOK, gin.H{
			"transactions": txs,                         // List of transactions
			"page":         page,                        // Current page
			"page_size":    pageSize,                    // Page size
			"total":        total,                       // Total transactions
			"total_pages":  totalPages(total, pageSize), // Total pages
		})
	}
}
