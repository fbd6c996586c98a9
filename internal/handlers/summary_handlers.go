package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"timeclock_backend/internal/models"
	"timeclock_backend/internal/services"
	"timeclock_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

const summaryDateLayout = "2006-01-02"

// SummaryHandler serves labor summaries and raw entry range reads.
type SummaryHandler struct {
	accountingService services.AccountingService
}

// NewSummaryHandler creates a new SummaryHandler.
func NewSummaryHandler(as services.AccountingService) *SummaryHandler {
	return &SummaryHandler{accountingService: as}
}

// parseRange reads from/to query params as half-open [from, to) dates.
func parseRange(c *gin.Context) (time.Time, time.Time, bool) {
	from, err := time.Parse(summaryDateLayout, c.Query("from"))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid 'from' date, use YYYY-MM-DD.", ""))
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse(summaryDateLayout, c.Query("to"))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid 'to' date, use YYYY-MM-DD.", ""))
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// GetSummaries returns per-week or per-month worked/overtime minutes.
func (h *SummaryHandler) GetSummaries(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}
	userID, ok := memberIDParam(c)
	if !ok {
		return
	}
	from, to, ok := parseRange(c)
	if !ok {
		return
	}

	granularity := c.DefaultQuery("granularity", models.GranularityWeek)

	var weekStartsOn *int
	if raw := c.Query("week_starts_on"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || (n != 0 && n != 1) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "week_starts_on must be 0 (Sunday) or 1 (Monday).", ""))
			return
		}
		weekStartsOn = &n
	}

	summaries, err := h.accountingService.Summaries(services.SummaryQuery{
		StoreID:      storeID,
		UserID:       userID,
		From:         from,
		To:           to,
		Granularity:  granularity,
		WeekStartsOn: weekStartsOn,
	})
	if err != nil {
		utils.LogError(err, "GetSummaries: Error from accountingService.Summaries")
		switch {
		case errors.Is(err, services.ErrInvalidTimeRange):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "'to' must be after 'from'.", err.Error()))
		case errors.Is(err, services.ErrInvalidGranularity):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "granularity must be 'week' or 'month'.", err.Error()))
		case errors.Is(err, services.ErrInvalidWeekStart):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "week_starts_on must be 0 or 1.", err.Error()))
		default:
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to compute summaries.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summaries, "granularity": granularity})
}

// GetEntries returns the raw entries for a member over a range; the
// manager review workflow consumes this.
func (h *SummaryHandler) GetEntries(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}
	userID, ok := memberIDParam(c)
	if !ok {
		return
	}
	from, to, ok := parseRange(c)
	if !ok {
		return
	}

	entries, err := h.accountingService.Entries(storeID, userID, from, to)
	if err != nil {
		utils.LogError(err, "GetEntries: Error from accountingService.Entries")
		if errors.Is(err, services.ErrInvalidTimeRange) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "'to' must be after 'from'.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch entries.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

// GetLaborRules returns the effective labor-rule configuration.
func (h *SummaryHandler) GetLaborRules(c *gin.Context) {
	rules, err := h.accountingService.LaborRules()
	if err != nil {
		utils.LogError(err, "GetLaborRules: Error from accountingService.LaborRules")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch labor rules.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, rules)
}

// UpdateLaborRules persists labor-rule settings. Owner-only via route
// middleware.
func (h *SummaryHandler) UpdateLaborRules(c *gin.Context) {
	var rules models.LaborRules
	if err := c.ShouldBindJSON(&rules); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	updated, err := h.accountingService.UpdateLaborRules(rules)
	if err != nil {
		utils.LogError(err, "UpdateLaborRules: Error from accountingService.UpdateLaborRules")
		if errors.Is(err, services.ErrInvalidWeekStart) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "week_starts_on must be 0 or 1.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
		}
		return
	}
	c.JSON(http.StatusOK, updated)
}
