package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marketbay/auction-api/internal/alerts"
	"github.com/marketbay/auction-api/internal/auction"
	"github.com/marketbay/auction-api/internal/auth"
	"github.com/marketbay/auction-api/internal/autobid"
	"github.com/marketbay/auction-api/internal/bidding"
	"github.com/marketbay/auction-api/internal/config"
	"github.com/marketbay/auction-api/internal/database"
	"github.com/marketbay/auction-api/internal/settlement"
	"github.com/marketbay/auction-api/internal/types"
	"github.com/marketbay/auction-api/pkg/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	numBidders      = 5
	numAuctions     = 4
	bidsPerBidder   = 6
	auctionLifetime = 8 * time.Second
	serverAddress   = "http://localhost:8080"
	simPassword     = "sim-password"
	adminUser       = "sim-admin"
	adminPassword   = "sim-admin-password"
)

var itemTitles = []string{
	"Vintage Camera", "Mechanical Keyboard", "Oil Painting",
	"Antique Clock", "Signed Vinyl Record", "Telescope",
}

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	// Configure pretty logging
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	// Sort durations for percentile calculations
	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	// Calculate mean
	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))

	// Calculate median
	median = rs.durations[len(rs.durations)/2]

	// Calculate percentiles
	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient handles HTTP communication with the auction API
type simulationClient struct {
	baseURL string
	client  *http.Client
	tokens  map[string]string
	mu      sync.RWMutex
	stats   map[string]*routeStats
}

// newSimulationClient creates and initializes a new simulation client
func newSimulationClient() *simulationClient {
	return &simulationClient{
		baseURL: serverAddress,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		tokens: make(map[string]string),
		stats: map[string]*routeStats{
			"auth":       {name: "Authentication"},
			"create":     {name: "Create Auction"},
			"bid":        {name: "Place Bid"},
			"autobid":    {name: "Set Auto-Bid"},
			"settlement": {name: "Run Settlement"},
			"alerts":     {name: "List Alerts"},
			"report":     {name: "Sales Report"},
		},
	}
}

// authenticate fetches a JWT token for one user and caches it
func (sc *simulationClient) authenticate(userID, password string) error {
	start := time.Now()
	defer func() {
		sc.stats["auth"].addDuration(time.Since(start))
	}()

	credentials := map[string]string{
		"user_id":  userID,
		"password": password,
	}

	body, err := json.Marshal(credentials)
	if err != nil {
		return err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		sc.stats["auth"].failures++
		return fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"jwt_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}

	sc.mu.Lock()
	sc.tokens[userID] = result.Data.Token
	sc.mu.Unlock()
	return nil
}

func (sc *simulationClient) token(userID string) string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.tokens[userID]
}

// doJSON issues an authenticated request and decodes the response envelope
// into out, which may be nil when the caller only cares about the status.
func (sc *simulationClient) doJSON(userID, method, path string, payload, out interface{}) error {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(b)
	}

	req, err := http.NewRequest(method, sc.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", sc.token(userID)))
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := sc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("path", path).Str("response", string(respBody)).Msg("API response")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}

	envelope := struct {
		Success bool        `json:"success"`
		Data    interface{} `json:"data"`
	}{Data: out}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}
	return nil
}

// createAuction lists a new auction as the given seller
func (sc *simulationClient) createAuction(sellerID, title string, startingPrice decimal.Decimal, closesAt time.Time) (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["create"].addDuration(time.Since(start))
	}()

	payload := map[string]interface{}{
		"item_id":        fmt.Sprintf("ITEM_%d", rand.Intn(10000)),
		"title":          title,
		"description":    "Simulation listing",
		"starting_price": startingPrice,
		"opens_at":       time.Now().Add(-time.Second),
		"closes_at":      closesAt,
	}

	var created types.Auction
	if err := sc.doJSON(sellerID, "POST", "/api/v1/auctions", payload, &created); err != nil {
		sc.stats["create"].failures++
		return "", err
	}
	if created.AuctionID == "" {
		return "", fmt.Errorf("no auction ID in response")
	}
	return created.AuctionID, nil
}

// placeBid submits a manual bid and returns the receipt
func (sc *simulationClient) placeBid(bidderID, auctionID string, amount decimal.Decimal) (*types.BidReceipt, error) {
	start := time.Now()
	defer func() {
		sc.stats["bid"].addDuration(time.Since(start))
	}()

	payload := map[string]interface{}{"amount": amount}
	var receipt types.BidReceipt
	path := fmt.Sprintf("/api/v1/auctions/%s/bids", auctionID)
	if err := sc.doJSON(bidderID, "POST", path, payload, &receipt); err != nil {
		sc.stats["bid"].failures++
		return nil, err
	}
	return &receipt, nil
}

// setAutoBid installs an auto-bid directive for the bidder
func (sc *simulationClient) setAutoBid(bidderID, auctionID string, ceiling, step decimal.Decimal) error {
	start := time.Now()
	defer func() {
		sc.stats["autobid"].addDuration(time.Since(start))
	}()

	payload := map[string]interface{}{"ceiling": ceiling, "step": step}
	path := fmt.Sprintf("/api/v1/auctions/%s/autobid", auctionID)
	if err := sc.doJSON(bidderID, "POST", path, payload, nil); err != nil {
		sc.stats["autobid"].failures++
		return err
	}
	return nil
}

// runSettlement triggers a settlement pass as the admin user
func (sc *simulationClient) runSettlement() ([]string, error) {
	start := time.Now()
	defer func() {
		sc.stats["settlement"].addDuration(time.Since(start))
	}()

	var result types.SettlementRunResponse
	if err := sc.doJSON(adminUser, "POST", "/api/v1/admin/settlement/run", nil, &result); err != nil {
		sc.stats["settlement"].failures++
		return nil, err
	}
	return result.SettledAuctionIDs, nil
}

// listAlerts fetches the bidder's alerts, newest first
func (sc *simulationClient) listAlerts(userID string) ([]types.Alert, error) {
	start := time.Now()
	defer func() {
		sc.stats["alerts"].addDuration(time.Since(start))
	}()

	var result []types.Alert
	if err := sc.doJSON(userID, "GET", "/api/v1/alerts", nil, &result); err != nil {
		sc.stats["alerts"].failures++
		return nil, err
	}
	return result, nil
}

// salesReport fetches the admin sales report
func (sc *simulationClient) salesReport() (*types.SalesReport, error) {
	start := time.Now()
	defer func() {
		sc.stats["report"].addDuration(time.Since(start))
	}()

	var report types.SalesReport
	if err := sc.doJSON(adminUser, "GET", "/api/v1/admin/reports/sales", nil, &report); err != nil {
		sc.stats["report"].failures++
		return nil, err
	}
	return &report, nil
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\nAPI Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, stats := range sc.stats {
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// main runs the auction simulation. It starts a local API server, drives
// sellers and bidders against it, forces settlement and prints a summary.
func main() {
	// Start the server in a goroutine
	go func() {
		if err := startServer(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for server to start
	time.Sleep(2 * time.Second)

	simClient := newSimulationClient()

	// Authenticate every simulated user
	if err := simClient.authenticate(adminUser, adminPassword); err != nil {
		log.Fatal().Err(err).Msg("Failed to authenticate admin")
	}
	bidders := make([]string, 0, numBidders)
	for i := 0; i < numBidders; i++ {
		userID := fmt.Sprintf("BIDDER_%d", i)
		if err := simClient.authenticate(userID, simPassword); err != nil {
			log.Fatal().Err(err).Str("user_id", userID).Msg("Failed to authenticate bidder")
		}
		bidders = append(bidders, userID)
	}

	// Sellers are just bidders wearing another hat; each lists an auction
	// that closes soon so settlement can run within the simulation.
	closesAt := time.Now().Add(auctionLifetime)
	auctionIDs := make([]string, 0, numAuctions)
	for i := 0; i < numAuctions; i++ {
		seller := bidders[i%len(bidders)]
		title := itemTitles[rand.Intn(len(itemTitles))]
		startingPrice := decimal.NewFromInt(int64(rand.Intn(90) + 10))

		auctionID, err := simClient.createAuction(seller, title, startingPrice, closesAt)
		if err != nil {
			log.Error().Err(err).Str("seller", seller).Msg("Failed to create auction")
			continue
		}
		auctionIDs = append(auctionIDs, auctionID)
		log.Info().
			Str("auction_id", auctionID).
			Str("seller", seller).
			Str("title", title).
			Str("starting_price", startingPrice.StringFixed(2)).
			Msg("Auction created")
	}

	if len(auctionIDs) == 0 {
		log.Fatal().Msg("No auctions created, aborting simulation")
	}

	stats := struct {
		AcceptedBids int
		RejectedBids int
		AutoBidsSet  int
		StartTime    time.Time
	}{StartTime: time.Now()}
	var statsMu sync.Mutex

	// A few bidders install auto-bid directives up front
	for i, bidderID := range bidders {
		if i%2 != 0 {
			continue
		}
		auctionID := auctionIDs[rand.Intn(len(auctionIDs))]
		ceiling := decimal.NewFromInt(int64(rand.Intn(200) + 150))
		step := decimal.NewFromInt(int64(rand.Intn(5) + 1))
		if err := simClient.setAutoBid(bidderID, auctionID, ceiling, step); err != nil {
			log.Error().Err(err).Str("bidder", bidderID).Msg("Failed to set auto-bid")
			continue
		}
		stats.AutoBidsSet++
		log.Info().
			Str("bidder", bidderID).
			Str("auction_id", auctionID).
			Str("ceiling", ceiling.StringFixed(2)).
			Str("step", step.StringFixed(2)).
			Msg("Auto-bid directive set")
	}

	// Concurrent manual bidding
	var wg sync.WaitGroup
	for _, bidderID := range bidders {
		wg.Add(1)
		go func(bidderID string) {
			defer wg.Done()
			for i := 0; i < bidsPerBidder; i++ {
				auctionID := auctionIDs[rand.Intn(len(auctionIDs))]
				amount := decimal.NewFromInt(int64(rand.Intn(300) + 20))

				receipt, err := simClient.placeBid(bidderID, auctionID, amount)
				if err != nil {
					statsMu.Lock()
					stats.RejectedBids++
					statsMu.Unlock()
					log.Debug().Err(err).Str("bidder", bidderID).Msg("Bid rejected")
					continue
				}

				statsMu.Lock()
				stats.AcceptedBids++
				statsMu.Unlock()
				log.Info().
					Str("bidder", bidderID).
					Str("auction_id", auctionID).
					Str("amount", amount.StringFixed(2)).
					Str("leading_user", receipt.LeadingUser).
					Str("leading_price", receipt.LeadingPrice.StringFixed(2)).
					Msg("Bid placed")

				time.Sleep(time.Duration(rand.Intn(300)) * time.Millisecond)
			}
		}(bidderID)
	}
	wg.Wait()

	// Let every auction close, then force a settlement pass
	if wait := time.Until(closesAt) + time.Second; wait > 0 {
		log.Info().Dur("wait", wait).Msg("Waiting for auctions to close")
		time.Sleep(wait)
	}

	settled, err := simClient.runSettlement()
	if err != nil {
		log.Error().Err(err).Msg("Settlement pass failed")
	}

	// A second pass must settle nothing further
	again, err := simClient.runSettlement()
	if err == nil && len(again) > 0 {
		log.Error().Int("count", len(again)).Msg("Second settlement pass settled auctions, idempotency broken")
	}

	// Gather alert counts per bidder
	alertCounts := make(map[string]int, len(bidders))
	for _, bidderID := range bidders {
		userAlerts, err := simClient.listAlerts(bidderID)
		if err != nil {
			log.Error().Err(err).Str("bidder", bidderID).Msg("Failed to list alerts")
			continue
		}
		alertCounts[bidderID] = len(userAlerts)
	}

	report, err := simClient.salesReport()
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch sales report")
	}

	// Print summary
	duration := time.Since(stats.StartTime)
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("AUCTION SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf(`
Bidding Statistics
------------------
Auctions Listed:   %d
Accepted Bids:     %d
Rejected Bids:     %d
Auto-Bids Set:     %d
Settled Auctions:  %d
Duration:          %v

Alerts per Bidder
-----------------
`, len(auctionIDs), stats.AcceptedBids, stats.RejectedBids, stats.AutoBidsSet,
		len(settled), duration.Round(time.Millisecond))

	for _, bidderID := range bidders {
		fmt.Printf("%-10s: %d\n", bidderID, alertCounts[bidderID])
	}

	if report != nil {
		fmt.Println("\nSales Report")
		fmt.Println("------------")
		fmt.Printf("Total Earnings: $%s\n", report.TotalEarnings.StringFixed(2))
		for _, seller := range report.PerSeller {
			fmt.Printf("%-10s: $%s over %d auctions\n",
				seller.SellerID, seller.Earnings.StringFixed(2), seller.Auctions)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 80))

	log.Info().
		Int("auctions", len(auctionIDs)).
		Int("accepted_bids", stats.AcceptedBids).
		Int("settled", len(settled)).
		Dur("duration", duration).
		Msg("Simulation completed")

	simClient.printPerformanceStats()
}

// startServer initializes and starts the auction API server
// Sets up all required services, handlers and routes
func startServer() error {
	cfg := config.Load()

	// Initialize database
	db, err := database.NewDatabase(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize services
	authService := auth.NewService(cfg.JWTSecret)
	middleware.SetJWTSecret(cfg.JWTSecret)

	// Register simulated users
	authService.RegisterUser(adminUser, adminPassword, "admin")
	for i := 0; i < numBidders; i++ {
		authService.RegisterUser(fmt.Sprintf("BIDDER_%d", i), simPassword, "user")
	}

	resolver := autobid.NewResolver()
	auctionService := auction.NewService(db)
	biddingService := bidding.NewService(db, resolver, cfg.MaxBidRetries)
	autobidService := autobid.NewService(db, resolver)
	settlementService := settlement.NewService(db)
	alertsService := alerts.NewService(db)

	// Initialize router
	router := gin.Default()
	authHandlers := auth.NewGinHandlers(authService)
	auctionHandlers := auction.NewGinHandlers(auctionService)
	biddingHandlers := bidding.NewGinHandlers(biddingService)
	autobidHandlers := autobid.NewGinHandlers(autobidService)
	settlementHandlers := settlement.NewGinHandlers(settlementService)
	alertsHandlers := alerts.NewGinHandlers(alertsService)

	// Setup routes
	setupRoutes(router, authHandlers, auctionHandlers, biddingHandlers,
		autobidHandlers, settlementHandlers, alertsHandlers)

	// Start the server
	return router.Run(":8080")
}

// setupRoutes configures all API endpoints and their handlers
// Groups routes by functionality and applies appropriate middleware
func setupRoutes(
	router *gin.Engine,
	authHandlers *auth.GinHandlers,
	auctionHandlers *auction.GinHandlers,
	biddingHandlers *bidding.GinHandlers,
	autobidHandlers *autobid.GinHandlers,
	settlementHandlers *settlement.GinHandlers,
	alertsHandlers *alerts.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		auth := v1.Group("/auth")
		{
			auth.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Public browse routes
		v1.GET("/auctions", auctionHandlers.ListAuctionsHandler())
		v1.GET("/auctions/:auction_id", auctionHandlers.GetAuctionHandler())

		// Authenticated routes
		auctions := v1.Group("/auctions")
		auctions.Use(middleware.JWTAuth())
		{
			auctions.POST("", auctionHandlers.CreateAuctionHandler())
			auctions.POST("/:auction_id/bids", biddingHandlers.PlaceBidHandler())
			auctions.POST("/:auction_id/autobid", autobidHandlers.SetAutoBidHandler())
			auctions.GET("/:auction_id/autobid", autobidHandlers.GetAutoBidHandler())
		}

		userAlerts := v1.Group("/alerts")
		userAlerts.Use(middleware.JWTAuth())
		{
			userAlerts.GET("", alertsHandlers.ListAlertsHandler())
			userAlerts.POST("/:alert_id/read", alertsHandlers.MarkReadHandler())
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.JWTAuth(), middleware.AdminAuth())
		{
			admin.POST("/settlement/run", settlementHandlers.RunSettlementHandler())
			admin.DELETE("/auctions/:auction_id", auctionHandlers.RemoveAuctionHandler())
			admin.GET("/reports/sales", auctionHandlers.SalesReportHandler())
		}
	}
}
