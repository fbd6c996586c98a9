package handlers

import (
	"errors"
	"net/http"

	"timeclock_backend/internal/repositories"
	"timeclock_backend/internal/services"
	"timeclock_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AttendanceHandler serves the QR display surface and the scanning clients.
type AttendanceHandler struct {
	qrService      services.QRSessionService
	checkInService services.CheckInService
}

// NewAttendanceHandler creates a new AttendanceHandler.
func NewAttendanceHandler(qs services.QRSessionService, cs services.CheckInService) *AttendanceHandler {
	return &AttendanceHandler{qrService: qs, checkInService: cs}
}

func storeIDParam(c *gin.Context) (int64, bool) {
	storeID, err := utils.StrToInt64(c.Param("storeId"))
	if err != nil || storeID <= 0 {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid store ID format.", ""))
		return 0, false
	}
	return storeID, true
}

// IssueQR returns the current renderable code for a store's display surface.
func (h *AttendanceHandler) IssueQR(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	session, err := h.qrService.Issue(storeID)
	if err != nil {
		utils.LogError(err, "IssueQR: Error from qrService.Issue")
		if errors.Is(err, services.ErrSecretNotProvisioned) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Store has no check-in secret. Rotate to provision one.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to issue code.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, session)
}

// RotateSecret provisions or rotates a store's secret. All codes from
// prior generations become permanently unverifiable. Owner-only; the role
// check runs in route middleware before this handler.
func (h *AttendanceHandler) RotateSecret(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	rotated, err := h.qrService.RotateSecret(storeID)
	if err != nil {
		utils.LogError(err, "RotateSecret: Error from qrService.RotateSecret")
		if errors.Is(err, services.ErrStoreNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Store not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to rotate secret.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"store_id": rotated.StoreID, "generation": rotated.Generation})
}

// SubmitCheckIn validates a scanned payload and records a time entry.
func (h *AttendanceHandler) SubmitCheckIn(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}
	userID := c.GetInt64("userID")

	var req services.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "SubmitCheckIn: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	entry, err := h.checkInService.Submit(storeID, userID, req)
	if err != nil {
		utils.LogError(err, "SubmitCheckIn: Error from checkInService.Submit")
		switch {
		case errors.Is(err, services.ErrInvalidEntryType):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "entry_type must be CHECK_IN or CHECK_OUT.", ""))
		case errors.Is(err, services.ErrDuplicateSubmission):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "This code was already used for this action.", ""))
		case errors.Is(err, services.ErrMalformedPayload),
			errors.Is(err, services.ErrStoreMismatch),
			errors.Is(err, services.ErrTokenInvalid),
			errors.Is(err, services.ErrSecretNotProvisioned):
			// One generic rejection for all four; which check failed is
			// visible only in server logs.
			utils.RespondInvalidCode(c)
		default:
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to record entry.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// GetLatestEntry returns the caller's most recent entry at this store,
// which the client uses to infer the next action to offer.
func (h *AttendanceHandler) GetLatestEntry(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}
	userID := c.GetInt64("userID")

	entry, err := h.checkInService.LatestEntry(storeID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"entry": nil})
			return
		}
		utils.LogError(err, "GetLatestEntry: Error from checkInService.LatestEntry")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch latest entry.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// GetTodayShifts returns the member's scheduled shifts for today.
func (h *AttendanceHandler) GetTodayShifts(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}
	userID, ok := memberIDParam(c)
	if !ok {
		return
	}

	shifts, err := h.checkInService.TodayShifts(storeID, userID)
	if err != nil {
		utils.LogError(err, "GetTodayShifts: Error from checkInService.TodayShifts")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch shifts.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": shifts})
}

// memberIDParam resolves the :userId path segment, honoring the "me" alias.
func memberIDParam(c *gin.Context) (int64, bool) {
	raw := c.Param("userId")
	if raw == "me" {
		return c.GetInt64("userID"), true
	}
	userID, err := utils.StrToInt64(raw)
	if err != nil || userID <= 0 {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid user ID format.", ""))
		return 0, false
	}
	return userID, true
}
