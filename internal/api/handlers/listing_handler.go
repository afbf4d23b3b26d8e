package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"numislive/internal/services"
	"numislive/pkg/logger"
)

type ListingHandler struct {
	listingService *services.ListingService
	bidService     *services.BidService
	closer         *services.Closer
	log            logger.Logger
}

func NewListingHandler(
	listingService *services.ListingService,
	bidService *services.BidService,
	closer *services.Closer,
	log logger.Logger,
) *ListingHandler {
	return &ListingHandler{
		listingService: listingService,
		bidService:     bidService,
		closer:         closer,
		log:            log,
	}
}

type CreateListingRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	StartingPrice string `json:"starting_price"`
	DurationDays  int    `json:"duration_days"`
	DurationHours int    `json:"duration_hours"`
	ImagePath     string `json:"image_path"`

	Year         int    `json:"year"`
	Country      string `json:"country"`
	Denomination string `json:"denomination"`
	Grade        string `json:"grade"`
	MintMark     string `json:"mint_mark"`
	Composition  string `json:"composition"`
}

func (h *ListingHandler) CreateListing(c echo.Context) error {
	var req CreateListingRequest
	if err := c.Bind(&req); err != nil {
		h.log.Error("Failed to bind request", "error", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}

	startingPrice, err := decimal.NewFromString(req.StartingPrice)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid starting price"})
	}

	actor := actorFromContext(c)
	listing, err := h.listingService.CreateListing(c.Request().Context(), actor.ID, services.CreateListingInput{
		Title:         req.Title,
		Description:   req.Description,
		StartingPrice: startingPrice,
		DurationDays:  req.DurationDays,
		DurationHours: req.DurationHours,
		ImagePath:     req.ImagePath,
		Year:          req.Year,
		Country:       req.Country,
		Denomination:  req.Denomination,
		Grade:         req.Grade,
		MintMark:      req.MintMark,
		Composition:   req.Composition,
	})
	if err != nil {
		h.log.Error("Failed to create listing", "error", err)
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, listing)
}

func (h *ListingHandler) ListListings(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	search := c.QueryParam("search")

	listings, err := h.listingService.ListOpenListings(c.Request().Context(), search, page, pageSize)
	if err != nil {
		h.log.Error("Failed to list listings", "error", err)
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"listings": listings})
}

func (h *ListingHandler) GetListing(c echo.Context) error {
	details, err := h.listingService.GetListingDetails(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, details)
}

func (h *ListingHandler) DeleteListing(c echo.Context) error {
	listingID := c.Param("id")
	actor := actorFromContext(c)

	if err := h.listingService.DeleteListing(c.Request().Context(), listingID, actor); err != nil {
		h.log.Error("Failed to delete listing", "listing_id", listingID, "error", err)
		return errorResponse(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// CloseListing settles a listing ahead of its deadline. Seller or admin only;
// closing an already-closed listing returns the original outcome.
func (h *ListingHandler) CloseListing(c echo.Context) error {
	listingID := c.Param("id")
	actor := actorFromContext(c)

	result, err := h.closer.CloseListing(c.Request().Context(), listingID, actor)
	if err != nil {
		h.log.Error("Failed to close listing", "listing_id", listingID, "error", err)
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

type PlaceBidRequest struct {
	Price string `json:"price"`
}

func (h *ListingHandler) PlaceBid(c echo.Context) error {
	listingID := c.Param("id")

	var req PlaceBidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid price"})
	}

	actor := actorFromContext(c)
	bid, err := h.bidService.PlaceBid(c.Request().Context(), listingID, actor.ID, price)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, bid)
}

func (h *ListingHandler) ListBids(c echo.Context) error {
	bids, err := h.bidService.ListBids(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bids": bids})
}

func (h *ListingHandler) DeleteBid(c echo.Context) error {
	bidID := c.Param("bidID")
	actor := actorFromContext(c)

	if err := h.bidService.DeleteBid(c.Request().Context(), bidID, actor); err != nil {
		h.log.Error("Failed to delete bid", "bid_id", bidID, "error", err)
		return errorResponse(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

type AddCommentRequest struct {
	Content string `json:"content"`
}

func (h *ListingHandler) AddComment(c echo.Context) error {
	listingID := c.Param("id")

	var req AddCommentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}

	actor := actorFromContext(c)
	comment, err := h.listingService.AddComment(c.Request().Context(), listingID, actor.ID, req.Content)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, comment)
}
