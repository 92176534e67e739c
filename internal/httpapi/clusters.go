package httpapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/signaldesk/signaldesk/internal/feedquery"
)

var validCategories = map[string]bool{
	"PRODUCT_UPDATE":      true,
	"MONETIZATION_CHANGE": true,
	"SAFETY_YOUTH_RISK":   true,
	"NSFW_CONTENT_POLICY": true,
	"CULTURAL_TREND":      true,
	"REGULATORY_LEGAL":    true,
	"BUSINESS_FUNDING":    true,
}

func (s *Server) handleClusters(c echo.Context) error {
	category := strings.ToUpper(strings.TrimSpace(c.QueryParam("category")))
	if category != "" && !validCategories[category] {
		return failValidation(c, map[string]string{"category": "is not a recognized category"})
	}

	limit, err := parsePositiveInt(c.QueryParam("limit"), 0, 1, 50)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	page, err := s.feed.List(c.Request().Context(), feedquery.Params{
		Category: category,
		Platform: c.QueryParam("platform"),
		Window:   c.QueryParam("window"),
		Cursor:   c.QueryParam("cursor"),
		Limit:    limit,
	})
	if err != nil {
		return failValidation(c, map[string]string{"query": err.Error()})
	}

	return success(c, page)
}
