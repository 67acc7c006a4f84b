// Package main provides the Edumate API server: loan discovery, the
// comparison tray, the chat wizard and contact favourites.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"

	"edumate-api/internal/catalog"
	"edumate-api/internal/compare"
	"edumate-api/internal/config"
	"edumate-api/internal/discovery"
	"edumate-api/internal/models"
	"edumate-api/internal/services/database"
	"edumate-api/internal/services/exchange"
	"edumate-api/internal/services/otp"
	"edumate-api/internal/services/places"
	"edumate-api/internal/services/programs"
	s3service "edumate-api/internal/services/s3"
	"edumate-api/internal/services/ses"
	"edumate-api/internal/utils"
	"edumate-api/internal/wizard"
)

// mailer is the slice of the SES service the server sends through.
type mailer interface {
	SendLeadNotification(ctx context.Context, params ses.LeadParams) (*ses.SendEmailResult, error)
	SendWelcomeEmail(ctx context.Context, contact *models.Contact) (*ses.SendEmailResult, error)
}

// Server holds all dependencies
type Server struct {
	db          *database.DB
	productRepo *database.ProductRepository
	contactRepo *database.ContactRepository
	noteRepo    *database.NoteRepository
	wizard      *wizard.Manager
	rates       *exchange.Service
	places      *places.Client
	emails      mailer
	documents   *s3service.Service
	config      *config.Config

	mu       sync.Mutex
	listings map[string]*listingSession
}

// listingSession is one server-side discovery session: a fetcher bound to
// an optional contact whose favourites back the favourites-only view, plus
// the session's comparison tray.
type listingSession struct {
	fetcher   *discovery.Fetcher
	contactID string
	tray      compare.Tray
}

// catalogSource adapts the product repository to the discovery fetcher,
// resolving the contact's favourites when the descriptor asks for them.
type catalogSource struct {
	products  *database.ProductRepository
	contacts  *database.ContactRepository
	contactID string
}

// List fetches one listing page for the descriptor.
func (c *catalogSource) List(ctx context.Context, d catalog.Descriptor) (*discovery.Result, error) {
	var favourites []string
	if d.ShowFavoritesOnly && c.contactID != "" {
		contact, err := c.contacts.GetByID(ctx, c.contactID)
		if err != nil {
			return nil, err
		}
		if contact != nil {
			favourites = contact.Favourite
		}
	}
	return c.products.List(ctx, d, favourites)
}

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func main() {
	// Initialize logger first
	if err := utils.InitLogger(getEnvOrDefault("LOG_LEVEL", "info")); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer utils.Logger.Sync()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Warning: Could not load config from environment: %v", err)
		cfg = &config.Config{}
	}

	// Initialize database
	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()

	otpSvc := otp.NewService(
		database.NewOTPRepository(db),
		nil,
		time.Duration(cfg.OTPExpiryMinutes)*time.Minute,
	)
	ratesSvc := exchange.NewService(cfg.ExchangeRateAPIURL)
	contactRepo := database.NewContactRepository(db)

	server := &Server{
		db:          db,
		productRepo: database.NewProductRepository(db),
		contactRepo: contactRepo,
		noteRepo:    database.NewNoteRepository(db),
		wizard: wizard.NewManager(
			programs.NewService(db, cfg.GeminiAPIKey),
			otpSvc,
			ratesSvc,
			contactRepo,
		),
		rates:    ratesSvc,
		places:   places.NewClient(cfg.GoogleMapsAPIKey),
		config:   cfg,
		listings: make(map[string]*listingSession),
	}
	server.wizard.SetOTPCountdown(cfg.OTPCountdownSeconds)
	server.wizard.SetSuggestionSource(server.places)

	// SES and S3 are optional; without AWS credentials the server still
	// runs and skips emails and document storage.
	if emails, err := ses.NewService(context.Background()); err == nil {
		server.emails = emails
	} else {
		log.Printf("Warning: Could not initialize SES service: %v", err)
	}
	if documents, err := s3service.NewService(context.Background()); err == nil {
		server.documents = documents
	} else {
		log.Printf("Warning: Could not initialize S3 service: %v", err)
	}

	// Setup routes
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", server.healthHandler)
	mux.HandleFunc("/api/health", server.healthHandler)

	// Loan product catalog
	mux.HandleFunc("GET /api/loan-products", server.listProductsHandler)
	mux.HandleFunc("GET /api/loan-products/{id}", server.getProductHandler)
	mux.HandleFunc("POST /api/loan-products/compare", server.compareHandler)
	mux.HandleFunc("POST /api/loan-products/export", server.exportHandler)

	// Discovery sessions (debounced, stale-dropping listing state)
	mux.HandleFunc("POST /api/discovery/sessions", server.createListingHandler)
	mux.HandleFunc("GET /api/discovery/sessions/{id}", server.getListingHandler)
	mux.HandleFunc("PATCH /api/discovery/sessions/{id}", server.updateListingHandler)
	mux.HandleFunc("DELETE /api/discovery/sessions/{id}", server.closeListingHandler)

	// Per-session comparison tray
	mux.HandleFunc("GET /api/discovery/sessions/{id}/compare", server.listingCompareHandler)
	mux.HandleFunc("POST /api/discovery/sessions/{id}/compare/{loanID}", server.toggleCompareHandler)
	mux.HandleFunc("DELETE /api/discovery/sessions/{id}/compare", server.clearCompareHandler)

	// Chat wizard
	mux.HandleFunc("POST /api/chat/sessions", server.startChatHandler)
	mux.HandleFunc("GET /api/chat/sessions/{id}", server.getChatHandler)
	mux.HandleFunc("POST /api/chat/sessions/{id}/actions", server.chatActionHandler)
	mux.HandleFunc("POST /api/chat/sessions/{id}/reset", server.resetChatHandler)

	// University autocomplete and currency rates
	mux.HandleFunc("GET /api/universities/suggest", server.suggestHandler)
	mux.HandleFunc("GET /api/exchange-rates", server.exchangeRatesHandler)

	// Student documents
	mux.HandleFunc("POST /api/documents/presign", server.presignDocumentHandler)
	mux.HandleFunc("GET /api/documents", server.listDocumentsHandler)

	// Contacts, favourites and comparison notes
	mux.HandleFunc("POST /api/contacts", server.upsertContactHandler)
	mux.HandleFunc("GET /api/contacts/{id}", server.getContactHandler)
	mux.HandleFunc("POST /api/contacts/{id}/favourites/{loanID}", server.favouriteHandler(true))
	mux.HandleFunc("DELETE /api/contacts/{id}/favourites/{loanID}", server.favouriteHandler(false))
	mux.HandleFunc("POST /api/contacts/{id}/interested/{loanID}", server.interestedHandler(true))
	mux.HandleFunc("DELETE /api/contacts/{id}/interested/{loanID}", server.interestedHandler(false))
	mux.HandleFunc("GET /api/contacts/{id}/notes", server.listNotesHandler)
	mux.HandleFunc("PUT /api/contacts/{id}/notes/{loanID}", server.putNoteHandler)
	mux.HandleFunc("DELETE /api/contacts/{id}/notes/{loanID}", server.deleteNoteHandler)

	// Setup CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := c.Handler(mux)

	port := getEnvOrDefault("PORT", "8080")
	addr := fmt.Sprintf("0.0.0.0:%s", port)

	log.Printf("Edumate API Server")
	log.Printf("Listening on http://localhost:%s", port)
	log.Printf("Health: http://localhost:%s/health", port)

	log.Printf("Starting HTTP server on %s...", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	dbStatus := "disconnected"
	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err == nil {
			dbStatus = "connected"
		}
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Edumate API is running",
		Data: map[string]interface{}{
			"status":    "healthy",
			"database":  dbStatus,
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   "1.0.0",
		},
	})
}

// descriptorFromQuery builds a listing descriptor from URL query params.
func descriptorFromQuery(r *http.Request) catalog.Descriptor {
	q := r.URL.Query()

	intakeYear, _ := strconv.Atoi(q.Get("intake_year"))
	amountMin, _ := strconv.ParseFloat(q.Get("loan_amount_min"), 64)
	amountMax, _ := strconv.ParseFloat(q.Get("loan_amount_max"), 64)
	tuition, _ := strconv.ParseFloat(q.Get("total_tuition_fee"), 64)
	costOfLiving, _ := strconv.ParseFloat(q.Get("cost_of_living"), 64)
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))

	return catalog.Descriptor{
		Search: q.Get("search"),
		Filters: catalog.FilterInput{
			IntakeMonth:     q.Get("intake_month"),
			IntakeYear:      intakeYear,
			StudyLevel:      q.Get("study_level"),
			SchoolName:      q.Get("school_name"),
			ProgramName:     q.Get("program_name"),
			LoanAmountMin:   amountMin,
			LoanAmountMax:   amountMax,
			TotalTuitionFee: tuition,
			CostOfLiving:    costOfLiving,
		},
		Sort: catalog.Sort{
			Key: q.Get("sort_key"),
			Dir: catalog.SortDir(q.Get("sort_dir")),
		},
		Pagination:        catalog.Pagination{Page: page, Size: size},
		ShowFavoritesOnly: q.Get("favorites_only") == "true",
	}
}

func (s *Server) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	d := descriptorFromQuery(r)

	var favourites []string
	if d.ShowFavoritesOnly {
		contactID := r.URL.Query().Get("contact_id")
		if contactID != "" {
			contact, err := s.contactRepo.GetByID(r.Context(), contactID)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to resolve favourites"})
				return
			}
			if contact != nil {
				favourites = contact.Favourite
			}
		}
	}

	result, err := s.productRepo.List(r.Context(), d, favourites)
	if err != nil {
		log.Printf("Error fetching products: %v", err)
		writeJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to fetch products"})
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: result})
}

func (s *Server) getProductHandler(w http.ResponseWriter, r *http.Request) {
	product, err := s.productRepo.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to fetch product"})
		return
	}
	if product == nil {
		writeJSON(w, http.StatusNotFound, Response{Success: false, Error: "Product not found"})
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"product": product,
			"card":    models.ExtractLoanData(product),
		},
	})
}

// compareViews resolves tray ids into card views, in tray order.
func (s *Server) compareViews(ctx context.Context, ids []string) ([]models.LoanCardView, error) {
	views := make([]models.LoanCardView, 0, len(ids))
	for _, id := range ids {
		product, err := s.productRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		views = append(views, models.ExtractLoanData(product))
	}
	return views, nil
}

func (s *Server) compareHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}
	if len(req.IDs) > compare.MaxCompare {
		writeJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   fmt.Sprintf("At most %d loans can be compared", compare.MaxCompare),
		})
		return
	}

	s.writeComparison(r.Context(), w, req.IDs)
}

// writeComparison renders card views and best badges for a set of tray ids.
func (s *Server) writeComparison(ctx context.Context, w http.ResponseWriter, ids []string) {
	views, err := s.compareViews(ctx, ids)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to fetch compared products"})
		return
	}

	badges := make(map[string]int, len(views))
	for _, v := range views {
		badges[v.ID] = compare.BestCount(v, views)
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"views":        views,
			"badges":       badges,
			"best_overall": compare.BestOverall(views),
		},
	})
}

func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	views, err := s.compareViews(r.Context(), req.IDs)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to fetch compared products"})
		return
	}

	data, err := compare.ExportCSV(views)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to build CSV"})
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="loan-comparison.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) createListingHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ContactID string `json:"contact_id"`
	}
	// An empty body creates an anonymous listing session.
	_ = json.NewDecoder(r.Body).Decode(&req)

	source := &catalogSource{
		products:  s.productRepo,
		contacts:  s.contactRepo,
		contactID: req.ContactID,
	}
	fetcher := discovery.NewFetcher(source, nil)
	fetcher.Refresh()

	id := uuid.New().String()
	s.mu.Lock()
	s.listings[id] = &listingSession{fetcher: fetcher, contactID: req.ContactID}
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Data:    map[string]string{"session_id": id},
	})
}

func (s *Server) listing(id string) *listingSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listings[id]
}

func (s *Server) getListingHandler(w http.ResponseWriter, r *http.Request) {
	ls := s.listing(r.PathValue("id"))
	if ls == nil {
		writeJSON(w, http.StatusNotFound, Response{Success: false, Error: "Session not found"})
		return
	}

	result, err := ls.fetcher.Latest()
	data := map[string]interface{}{
		"descriptor": ls.fetcher.Descriptor().Identity(),
		"result":     result,
	}
	if err != nil {
		data["fetch_error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func (s *Server) updateListingHandler(w http.ResponseWriter, r *http.Request) {
	ls := s.listing(r.PathValue("id"))
	if ls == nil {
		writeJSON(w, http.StatusNotFound, Response{Success: false, Error: "Session not found"})
		return
	}

	var req struct {
		Search            *string              `json:"search,omitempty"`
		Filters           *catalog.FilterInput `json:"filters,omitempty"`
		Sort              *catalog.Sort        `json:"sort,omitempty"`
		Page              *int                 `json:"page,omitempty"`
		PageSize          *int                 `json:"page_size,omitempty"`
		ShowFavoritesOnly *bool                `json:"show_favorites_only,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	// Order matters: filter/sort changes reset the page, so an explicit
	// page in the same request lands last.
	if req.Filters != nil {
		ls.fetcher.SetFilters(*req.Filters)
	}
	if req.Sort != nil {
		ls.fetcher.SetSort(*req.Sort)
	}
	if req.PageSize != nil {
		ls.fetcher.SetPageSize(*req.PageSize)
	}
	if req.ShowFavoritesOnly != nil {
		ls.fetcher.SetShowFavoritesOnly(*req.ShowFavoritesOnly)
	}
	if req.Page != nil {
		ls.fetcher.SetPage(*req.Page)
	}
	if req.Search != nil {
		ls.fetcher.SetSearch(*req.Search)
	}

	writeJSON(w, http.StatusAccepted, Response{
		Success: true,
		Message: "Listing update applied",
		Data:    map[string]string{"descriptor": ls.fetcher.Descriptor().Identity()},
	})
}

// toggleCompareHandler adds or removes a loan from the session tray. The
// fifth add is rejected without changing the tray.
func (s *Server) toggleCompareHandler(w http.ResponseWriter, r *http.Request) {
	ls := s.listing(r.PathValue("id"))
	if ls == nil {
		writeJSON(w, http.StatusNotFound, Response{Success: false, Error: "Session not found"})
		return
	}

	s.mu.Lock()
	selected, err := ls.tray.Toggle(r.PathValue("loanID"))
	ids := ls.tray.IDs()
	s.mu.Unlock()

	if err != nil {
		writeJSON(w, http.StatusConflict, Response{Success: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]interface{}{"selected": selected, "ids": ids},
	})
}

func (s *Server) clearCompareHandler(w http.ResponseWriter, r *http.Request) {
	ls := s.listing(r.PathValue("id"))
	if ls == nil {
		writeJSON(w, http.StatusNotFound, Response{Success: false, Error: "Session not found"})
		return
	}

	s.mu.Lock()
	ls.tray.Clear()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Comparison cleared"})
}

func (s *Server) listingCompareHandler(w http.ResponseWriter, r *http.Request) {
	ls := s.listing(r.PathValue("id"))
	if ls == nil {
		writeJSON(w, http.StatusNotFound, Response{Success: false, Error: "Session not found"})
		return
	}

	s.mu.Lock()
	ids := ls.tray.IDs()
	s.mu.Unlock()

	s.writeComparison(r.Context(), w, ids)
}

func (s *Server) closeListingHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	ls := s.listings[id]
	delete(s.listings, id)
	s.mu.Unlock()

	if ls == nil {
		writeJSON(w, http.StatusNotFound, Response{Success: false, Error: "Session not found"})
		return
	}
	ls.fetcher.Close()
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Session closed"})
}

func (s *Server) startChatHandler(w http.ResponseWriter, r *http.Request) {
	session := s.wizard.StartSession()
	writeJSON(w, http.StatusCreated, Response{Success: true, Data: session.Snapshot()})
}

func (s *Server) getChatHandler(w http.ResponseWriter, r *http.Request) {
	session, err := s.wizard.Get(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, Response{Success: false, Error: "Session not found"})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: session.Snapshot()})
}

// ChatActionRequest is the wizard action envelope.
type ChatActionRequest struct {
	Action      string  `json:"action"`
	Value       string  `json:"value,omitempty"`
	Month       string  `json:"month,omitempty"`
	Year        int     `json:"year,omitempty"`
	Amount      float64 `json:"amount,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	Code        string  `json:"code,omitempty"`
	MessageID   string  `json:"message_id,omitempty"`
	Mode        string  `json:"mode,omitempty"`
}

func (s *Server) chatActionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var req ChatActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	ctx := r.Context()
	var session *wizard.Session
	var err error

	switch req.Action {
	case "study-level":
		session, err = s.wizard.SubmitStudyLevel(sessionID, req.Value)
	case "admit-status":
		session, err = s.wizard.SubmitAdmitStatus(sessionID, req.Value)
	case "intended-date":
		session, err = s.wizard.SubmitIntendedDate(sessionID, req.Month, req.Year)
	case "university":
		session, err = s.wizard.SubmitUniversity(ctx, sessionID, req.Value)
	case "suggest-universities":
		// The debounced fetch completes after this response is written.
		session, err = s.wizard.SuggestUniversities(context.WithoutCancel(ctx), sessionID, req.Value)
	case "select-program":
		session, err = s.wizard.SelectProgram(sessionID, req.Value)
	case "custom-program":
		session, err = s.wizard.SubmitCustomProgram(ctx, sessionID, req.Value)
	case "loan-amount":
		session, err = s.wizard.SubmitLoanAmount(sessionID, req.Amount)
	case "loan-type":
		session, err = s.wizard.SubmitLoanType(sessionID, req.Value)
	case "phone":
		session, err = s.wizard.SubmitPhone(ctx, sessionID, req.CountryCode, req.Phone)
	case "resend-otp":
		session, err = s.wizard.ResendOTP(ctx, sessionID)
	case "verify-otp":
		session, err = s.wizard.VerifyOTP(ctx, sessionID, req.Code)
		if err == nil {
			s.notifyLead(ctx, session)
		}
	case "edit-message":
		session, err = s.wizard.EditMessage(sessionID, req.MessageID)
	case "currency-mode":
		session, err = s.wizard.SetCurrencyDisplayMode(sessionID, models.CurrencyDisplayMode(req.Mode))
	default:
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Unknown action: " + req.Action})
		return
	}

	if err != nil {
		writeJSON(w, chatErrorStatus(err), Response{Success: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: session.Snapshot()})
}

// chatErrorStatus maps wizard errors to HTTP statuses.
func chatErrorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrSessionNotFound),
		errors.Is(err, models.ErrMessageNotFound),
		errors.Is(err, models.ErrProgramNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidStep),
		errors.Is(err, models.ErrResendNotReady):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidLoanAmount),
		errors.Is(err, models.ErrInvalidLoanType),
		errors.Is(err, models.ErrInvalidOTPCode):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrOTPCodeMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrOTPExpired):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// notifyLead forwards a verified wizard lead to the advisor inbox and
// greets the contact, both best-effort.
func (s *Server) notifyLead(ctx context.Context, session *wizard.Session) {
	if s.emails == nil || session == nil {
		return
	}
	snap := session.Snapshot()
	if _, err := s.emails.SendLeadNotification(ctx, ses.LeadParams{
		Phone:          snap.FormData.CountryCode + snap.FormData.Phone,
		StudyLevel:     snap.FormData.StudyLevel,
		UniversityName: snap.FormData.UniversityName,
		ProgramName:    snap.FormData.ProgramName,
		LoanAmount:     snap.FormData.LoanAmount,
		LoanType:       snap.FormData.LoanType,
	}); err != nil {
		log.Printf("Warning: lead notification failed: %v", err)
	}
	if snap.Contact != nil {
		if _, err := s.emails.SendWelcomeEmail(ctx, snap.Contact); err != nil {
			log.Printf("Warning: welcome email failed: %v", err)
		}
	}
}

func (s *Server) resetChatHandler(w http.ResponseWriter, r *http.Request) {
	session, err := s.wizard.Reset(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, Response{Success: false, Error: "Session not found"})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: session.Snapshot()})
}

func (s *Server) suggestHandler(w http.ResponseWriter, r *http.Request) {
	suggestions, err := s.places.GetUniversitySuggestions(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeJSON(w, http.StatusBadGateway, Response{Success: false, Error: "Failed to fetch suggestions"})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: suggestions})
}

func (s *Server) exchangeRatesHandler(w http.ResponseWriter, r *http.Request) {
	rates, err := s.rates.GetRates(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, Response{Success: false, Error: "Failed to fetch exchange rates"})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: rates})
}

func (s *Server) presignDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if s.documents == nil {
		writeJSON(w, http.StatusServiceUnavailable, Response{Success: false, Error: "Document storage is not configured"})
		return
	}

	var req struct {
		ContactID   string `json:"contact_id"`
		FileName    string `json:"file_name"`
		ContentType string `json:"content_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}
	if req.ContactID == "" || req.FileName == "" {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "contact_id and file_name are required"})
		return
	}

	result, err := s.documents.PresignDocumentUpload(r.Context(), req.ContactID, req.FileName, req.ContentType)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: result})
}

func (s *Server) listDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if s.documents == nil {
		writeJSON(w, http.StatusServiceUnavailable, Response{Success: false, Error: "Document storage is not configured"})
		return
	}

	contactID := r.URL.Query().Get("contact_id")
	if contactID == "" {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "contact_id is required"})
		return
	}

	docs, err := s.documents.ListDocuments(r.Context(), contactID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to list documents"})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: docs})
}

func (s *Server) upsertContactHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ContactUpsert
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	contact, err := s.contactRepo.Upsert(r.Context(), &req)
	if err != nil {
		if errors.Is(err, models.ErrEmptyPhone) {
			writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Phone is required"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to save contact"})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: contact})
}

func (s *Server) getContactHandler(w http.ResponseWriter, r *http.Request) {
	contact, err := s.contactRepo.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to fetch contact"})
		return
	}
	if contact == nil {
		writeJSON(w, http.StatusNotFound, Response{Success: false, Error: "Contact not found"})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: contact})
}

// favouriteHandler toggles the given direction of the favourite set. The
// update is a single server-side array statement, so rapid toggles from a
// laggy client cannot clobber each other.
func (s *Server) favouriteHandler(add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var contact *models.Contact
		var err error
		if add {
			contact, err = s.contactRepo.AddFavourite(r.Context(), r.PathValue("id"), r.PathValue("loanID"))
		} else {
			contact, err = s.contactRepo.RemoveFavourite(r.Context(), r.PathValue("id"), r.PathValue("loanID"))
		}
		writeContactUpdate(w, contact, err)
	}
}

func (s *Server) interestedHandler(add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var contact *models.Contact
		var err error
		if add {
			contact, err = s.contactRepo.AddInterested(r.Context(), r.PathValue("id"), r.PathValue("loanID"))
		} else {
			contact, err = s.contactRepo.RemoveInterested(r.Context(), r.PathValue("id"), r.PathValue("loanID"))
		}
		writeContactUpdate(w, contact, err)
	}
}

func writeContactUpdate(w http.ResponseWriter, contact *models.Contact, err error) {
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to update contact"})
		return
	}
	if contact == nil {
		writeJSON(w, http.StatusNotFound, Response{Success: false, Error: "Contact not found"})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: contact})
}

func (s *Server) listNotesHandler(w http.ResponseWriter, r *http.Request) {
	notes, err := s.noteRepo.GetByContact(r.Context(), r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to fetch notes"})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: notes})
}

func (s *Server) putNoteHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Note string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	if err := s.noteRepo.Upsert(r.Context(), r.PathValue("id"), r.PathValue("loanID"), req.Note); err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to save note"})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Note saved"})
}

func (s *Server) deleteNoteHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.noteRepo.Delete(r.Context(), r.PathValue("id"), r.PathValue("loanID")); err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to delete note"})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Note deleted"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
