// Package rest exposes the engine over HTTP.
package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/greenlink-eco/credit-engine/internal/api/middleware"
	"github.com/greenlink-eco/credit-engine/internal/api/rest/dto"
	"github.com/greenlink-eco/credit-engine/internal/domain"
	"github.com/greenlink-eco/credit-engine/internal/engine"
	"github.com/greenlink-eco/credit-engine/internal/settlement"
	"github.com/greenlink-eco/credit-engine/internal/store"
)

// Handler serves the REST API.
type Handler struct {
	engine  *engine.Engine
	settler *settlement.MemorySettler
}

// NewHandler creates a new REST handler
func NewHandler(eng *engine.Engine, settler *settlement.MemorySettler) *Handler {
	return &Handler{engine: eng, settler: settler}
}

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// caller resolves the acting account: the JWT subject when present,
// otherwise the caller named in the request body.
func (h *Handler) caller(c *gin.Context, bodyCaller string) domain.AccountID {
	if subject := c.GetString(string(middleware.AUTH_SUBJECT_KEY)); subject != "" {
		return domain.AccountID(subject)
	}
	return domain.AccountID(bodyCaller)
}

func parseID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		respondBadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// RegisterSubmission handles POST /submissions
func (h *Handler) RegisterSubmission(c *gin.Context) {
	var req dto.RegisterSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body", err.Error())
		return
	}

	sub, err := h.engine.RegisterSubmission(c.Request.Context(),
		domain.AccountID(req.Owner),
		req.ImageFingerprint,
		req.GreeneryPct,
		domain.AmountFromFloat(req.CarbonValue),
		req.Location,
	)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.SubmissionFromDomain(sub))
}

// GetSubmission handles GET /submissions/:id
func (h *Handler) GetSubmission(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sub, err := h.engine.Submission(id)
	if err != nil {
		respondNotFound(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, dto.SubmissionFromDomain(sub))
}

// ListSubmissions handles GET /submissions?owner=
func (h *Handler) ListSubmissions(c *gin.Context) {
	owner := c.Query("owner")
	if owner == "" {
		respondBadRequest(c, "owner query parameter is required")
		return
	}
	subs := h.engine.SubmissionsOf(domain.AccountID(owner))
	out := make([]dto.Submission, 0, len(subs))
	for _, sub := range subs {
		out = append(out, dto.SubmissionFromDomain(sub))
	}
	c.JSON(http.StatusOK, gin.H{"submissions": out})
}

// Tokenize handles POST /submissions/:id/tokenize
func (h *Handler) Tokenize(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.TokenizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body", err.Error())
		return
	}

	token, err := h.engine.Tokenize(c.Request.Context(), h.caller(c, req.Caller), id)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.TokenFromDomain(token))
}

// RegistryStats handles GET /registry/stats
func (h *Handler) RegistryStats(c *gin.Context) {
	stats := h.engine.RegistryStats()
	c.JSON(http.StatusOK, dto.RegistryStats{
		Total:       stats.Total,
		Verified:    stats.Verified,
		Tokenized:   stats.Tokenized,
		CarbonTotal: stats.CarbonTotal.Float(),
	})
}

// Mint handles POST /tokens/mint
func (h *Handler) Mint(c *gin.Context) {
	var req dto.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body", err.Error())
		return
	}

	token, err := h.engine.Mint(c.Request.Context(), h.caller(c, req.Caller),
		domain.AccountID(req.Owner),
		domain.AmountFromFloat(req.CarbonValue),
		req.GreeneryPct,
		req.Location,
		req.ImageFingerprint,
	)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.TokenFromDomain(token))
}

// BatchMint handles POST /tokens/mint-batch
func (h *Handler) BatchMint(c *gin.Context) {
	var req dto.BatchMintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body", err.Error())
		return
	}

	owners := make([]domain.AccountID, len(req.Owners))
	for i, o := range req.Owners {
		owners[i] = domain.AccountID(o)
	}
	values := make([]domain.Amount, len(req.CarbonValues))
	for i, v := range req.CarbonValues {
		values[i] = domain.AmountFromFloat(v)
	}

	tokens, err := h.engine.BatchMint(c.Request.Context(), h.caller(c, req.Caller),
		owners, values, req.GreeneryPcts, req.Locations, req.ImageFingerprints)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	out := make([]dto.Token, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, dto.TokenFromDomain(token))
	}
	c.JSON(http.StatusCreated, gin.H{"tokens": out})
}

// Transfer handles POST /tokens/:id/transfer
func (h *Handler) Transfer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body", err.Error())
		return
	}

	if err := h.engine.Transfer(c.Request.Context(), h.caller(c, req.Caller), domain.AccountID(req.To), id); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "transferred"})
}

// GetToken handles GET /tokens/:id
func (h *Handler) GetToken(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	token, err := h.engine.MetadataOf(id)
	if err != nil {
		respondNotFound(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, dto.TokenFromDomain(token))
}

// ListTokens handles GET /tokens?owner=
func (h *Handler) ListTokens(c *gin.Context) {
	owner := c.Query("owner")
	if owner == "" {
		respondBadRequest(c, "owner query parameter is required")
		return
	}
	ids := h.engine.TokensOwnedBy(domain.AccountID(owner))
	c.JSON(http.StatusOK, gin.H{"token_ids": ids})
}

// CreateListing handles POST /listings
func (h *Handler) CreateListing(c *gin.Context) {
	var req dto.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body", err.Error())
		return
	}

	listing, err := h.engine.CreateListing(c.Request.Context(), h.caller(c, req.Seller),
		req.TokenID, domain.AmountFromFloat(req.Price))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ListingFromDomain(listing))
}

// Buy handles POST /listings/:id/buy
func (h *Handler) Buy(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body", err.Error())
		return
	}

	listing, err := h.engine.Buy(c.Request.Context(), h.caller(c, req.Buyer), id, domain.AmountFromFloat(req.Payment))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListingFromDomain(listing))
}

// UpdateListingPrice handles PATCH /listings/:id/price
func (h *Handler) UpdateListingPrice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body", err.Error())
		return
	}

	listing, err := h.engine.UpdateListingPrice(c.Request.Context(), h.caller(c, req.Caller), id, domain.AmountFromFloat(req.Price))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListingFromDomain(listing))
}

// CancelListing handles POST /listings/:id/cancel
func (h *Handler) CancelListing(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.CallerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body", err.Error())
		return
	}

	listing, err := h.engine.CancelListing(c.Request.Context(), h.caller(c, req.Caller), id)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListingFromDomain(listing))
}

// EmergencyReturn handles POST /listings/:id/emergency-return
func (h *Handler) EmergencyReturn(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.CallerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body", err.Error())
		return
	}

	listing, err := h.engine.EmergencyReturnListing(c.Request.Context(), h.caller(c, req.Caller), id)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListingFromDomain(listing))
}

// GetListing handles GET /listings/:id
func (h *Handler) GetListing(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	listing, err := h.engine.Listing(id)
	if err != nil {
		respondNotFound(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, dto.ListingFromDomain(listing))
}

// ListActiveListings handles GET /listings
func (h *Handler) ListActiveListings(c *gin.Context) {
	listings := h.engine.ActiveListings()
	out := make([]dto.Listing, 0, len(listings))
	for _, listing := range listings {
		out = append(out, dto.ListingFromDomain(listing))
	}
	c.JSON(http.StatusOK, gin.H{"listings": out})
}

// MarketStats handles GET /market/stats
func (h *Handler) MarketStats(c *gin.Context) {
	stats := h.engine.MarketStats()
	c.JSON(http.StatusOK, dto.MarketStats{
		Total:         stats.Total,
		Active:        stats.Active,
		SoldVolume:    stats.SoldVolume.Float(),
		FeesCollected: stats.FeesCollected.Float(),
	})
}

// Pause handles POST /admin/pause
func (h *Handler) Pause(c *gin.Context) {
	h.adminToggle(c, h.engine.Pause, "paused")
}

// Unpause handles POST /admin/unpause
func (h *Handler) Unpause(c *gin.Context) {
	h.adminToggle(c, h.engine.Unpause, "resumed")
}

func (h *Handler) adminToggle(c *gin.Context, op func(ctx context.Context, caller domain.AccountID) error, status string) {
	var req dto.CallerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body", err.Error())
		return
	}
	if err := op(c.Request.Context(), h.caller(c, req.Caller)); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// SetThreshold handles PUT /admin/threshold
func (h *Handler) SetThreshold(c *gin.Context) {
	var req dto.ThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body", err.Error())
		return
	}
	if err := h.engine.SetVerificationThreshold(c.Request.Context(), h.caller(c, req.Caller), req.GreeneryPct); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"greenery_pct": req.GreeneryPct})
}

// SetFee handles PUT /admin/fee
func (h *Handler) SetFee(c *gin.Context) {
	var req dto.FeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body", err.Error())
		return
	}
	if err := h.engine.SetPlatformFeeBps(c.Request.Context(), h.caller(c, req.Caller), req.FeeBps); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fee_bps": req.FeeBps})
}

// OverrideSubmission handles PUT /admin/submissions/:id
func (h *Handler) OverrideSubmission(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body", err.Error())
		return
	}

	sub, err := h.engine.AdminOverrideSubmission(c.Request.Context(), h.caller(c, req.Caller),
		id, req.GreeneryPct, domain.AmountFromFloat(req.CarbonValue))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SubmissionFromDomain(sub))
}

// GrantRole handles POST /admin/roles/grant
func (h *Handler) GrantRole(c *gin.Context) {
	h.changeRole(c, h.engine.GrantRole)
}

// RevokeRole handles POST /admin/roles/revoke
func (h *Handler) RevokeRole(c *gin.Context) {
	h.changeRole(c, h.engine.RevokeRole)
}

func (h *Handler) changeRole(c *gin.Context, op func(ctx context.Context, caller, account domain.AccountID, role domain.Role) error) {
	var req dto.RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body", err.Error())
		return
	}
	if err := op(c.Request.Context(), h.caller(c, req.Caller), domain.AccountID(req.Account), domain.Role(req.Role)); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": req.Account, "role": req.Role})
}

// SetBaseLocator handles PUT /admin/base-locator
func (h *Handler) SetBaseLocator(c *gin.Context) {
	var req dto.BaseLocatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body", err.Error())
		return
	}
	if err := h.engine.SetMetadataBaseLocator(c.Request.Context(), h.caller(c, req.Caller), req.URI); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uri": req.URI})
}

// Deposit handles POST /accounts/:id/deposit
func (h *Handler) Deposit(c *gin.Context) {
	account := domain.AccountID(c.Param("id"))
	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body", err.Error())
		return
	}
	if err := h.settler.Deposit(account, domain.AmountFromFloat(req.Amount)); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Balance{
		Account: string(account),
		Balance: h.settler.BalanceOf(account).Float(),
	})
}

// GetBalance handles GET /accounts/:id/balance
func (h *Handler) GetBalance(c *gin.Context) {
	account := domain.AccountID(c.Param("id"))
	c.JSON(http.StatusOK, dto.Balance{
		Account: string(account),
		Balance: h.settler.BalanceOf(account).Float(),
	})
}

// GetRoles handles GET /accounts/:id/roles
func (h *Handler) GetRoles(c *gin.Context) {
	account := domain.AccountID(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"account": string(account), "roles": h.engine.RolesOf(account)})
}

// ListEvents handles GET /events
func (h *Handler) ListEvents(c *gin.Context) {
	filter := store.EventFilter{
		Type: domain.EventType(c.Query("type")),
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondBadRequest(c, "invalid limit")
			return
		}
		filter.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondBadRequest(c, "invalid offset")
			return
		}
		filter.Offset = n
	}

	events, err := h.engine.ListEvents(c.Request.Context(), filter)
	if err != nil {
		respondInternalError(c, err, "failed to list events")
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
