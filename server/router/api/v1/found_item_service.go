package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/campusfind/campusfind/internal/util"
	"github.com/campusfind/campusfind/store"
)

type CreateFoundItemRequest struct {
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Campus      string            `json:"campus"`
	Attributes  map[string]string `json:"attributes"`
	Images      []string          `json:"images"`
}

type FoundItemResponse struct {
	ID          string            `json:"id"`
	HandlerID   string            `json:"handlerId"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Campus      string            `json:"campus"`
	Attributes  map[string]string `json:"attributes"`
	Images      []string          `json:"images"`
	Status      string            `json:"status"`
	CreatedTs   int64             `json:"createdTs"`
	UpdatedTs   int64             `json:"updatedTs"`
}

func convertFoundItem(item *store.FoundItem) *FoundItemResponse {
	return &FoundItemResponse{
		ID:          item.ID,
		HandlerID:   item.HandlerID,
		Description: item.Description,
		Category:    item.Category,
		Campus:      item.Campus,
		Attributes:  item.Attributes,
		Images:      item.Images,
		Status:      item.Status.String(),
		CreatedTs:   item.CreatedTs,
		UpdatedTs:   item.UpdatedTs,
	}
}

// CreateFoundItem logs a found item into the inventory, admin only. Insertion
// fans out background matching passes over every existing request.
func (s *APIV1Service) CreateFoundItem(c echo.Context) error {
	ctx := c.Request().Context()
	user := requireAdmin(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusForbidden, "admin access required")
	}

	body := &CreateFoundItemRequest{}
	if err := c.Bind(body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}
	if strings.TrimSpace(body.Description) == "" && len(body.Images) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "description or images required")
	}

	now := time.Now().Unix()
	item, err := s.Store.CreateFoundItem(ctx, &store.FoundItem{
		ID:          util.GenUUID(),
		HandlerID:   user.ID,
		Description: body.Description,
		Category:    body.Category,
		Campus:      body.Campus,
		Attributes:  body.Attributes,
		Images:      body.Images,
		Status:      store.FoundItemStatusFound,
		CreatedTs:   now,
		UpdatedTs:   now,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create found item").SetInternal(err)
	}

	s.Dispatcher.OnFoundItemCreated(item.ID)
	return c.JSON(http.StatusCreated, convertFoundItem(item))
}

// ListFoundItems lists the inventory, admin only. Supports status, category
// and campus query filters.
func (s *APIV1Service) ListFoundItems(c echo.Context) error {
	ctx := c.Request().Context()
	if requireAdmin(c) == nil {
		return echo.NewHTTPError(http.StatusForbidden, "admin access required")
	}

	find := &store.FindFoundItem{ExcludeEmbedding: true}
	if status := c.QueryParam("status"); status != "" {
		itemStatus := store.FoundItemStatus(status)
		find.Status = &itemStatus
	}
	if category := c.QueryParam("category"); category != "" {
		find.Category = &category
	}
	if campus := c.QueryParam("campus"); campus != "" {
		find.Campus = &campus
	}

	items, err := s.Store.ListFoundItems(ctx, find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list found items").SetInternal(err)
	}

	response := make([]*FoundItemResponse, 0, len(items))
	for _, item := range items {
		response = append(response, convertFoundItem(item))
	}
	return c.JSON(http.StatusOK, response)
}
