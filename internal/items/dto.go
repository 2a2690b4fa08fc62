package items

import (
	"github.com/google/uuid"

	"github.com/Gitttomo/AntiTextNext-sub000/pkg/db/models"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/enums"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/pagination"
)

// CreateItemInput captures the fields a seller provides for a new listing.
type CreateItemInput struct {
	SellerID         uuid.UUID
	Title            string
	Author           *string
	CourseName       *string
	Description      *string
	Condition        enums.ItemCondition
	OriginalPriceYen int
	SellingPriceYen  int
	PhotoURL         *string
}

// ItemListFilters describe the supported filter knobs for the browse endpoint.
type ItemListFilters struct {
	Status   *enums.ItemStatus `json:"status,omitempty"`
	SellerID *uuid.UUID        `json:"seller_id,omitempty"`
	Query    string            `json:"q,omitempty"`
}

// ListItemsInput captures the inputs needed to paginate/filter listings.
type ListItemsInput struct {
	Filters    ItemListFilters
	Pagination pagination.Params
}

// ItemListResult is one page of listings plus the cursor for the next page.
type ItemListResult struct {
	Items      []models.Item `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// ItemDetail is the detail view of a listing. LockRemainingSeconds is only
// set while the item carries a live reservation lock.
type ItemDetail struct {
	Item                 models.Item `json:"item"`
	LockRemainingSeconds int         `json:"lock_remaining_seconds,omitempty"`
}
