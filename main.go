package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	apihttp "flightline-cloud/internal/api/http"
	"flightline-cloud/internal/audit"
	"flightline-cloud/internal/auth"
	"flightline-cloud/internal/checkin/application"
	checkinhttp "flightline-cloud/internal/checkin/interfaces/http"
	invoicingrepo "flightline-cloud/internal/invoicing/infrastructure/postgres"
	masterdatarepo "flightline-cloud/internal/masterdata/infrastructure/postgres"
	"flightline-cloud/internal/observability/metrics"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	bookingChecker := auth.NewBookingChecker(db)
	auditRepo := audit.NewRepository(db)

	billingCfg, err := application.LoadBillingConfig()
	if err != nil {
		logger.Fatalf("billing config error: %v", err)
	}

	bookingRepo := masterdatarepo.NewBookingRepository(db)
	chargeRateRepo := masterdatarepo.NewChargeRateRepository(db)
	optionsRepo := masterdatarepo.NewOptionsRepository(db)
	invoiceRepo := invoicingrepo.NewInvoiceRepository(db,
		invoicingrepo.WithOrgID(cfg.OrgID),
		invoicingrepo.WithCurrency(billingCfg.Currency),
	)

	checkInService, err := application.NewCheckInService(
		bookingRepo,
		chargeRateRepo,
		optionsRepo,
		billingCfg,
		invoiceRepo,
		application.SystemClock{},
	)
	if err != nil {
		logger.Fatalf("check-in service error: %v", err)
	}

	checkInHandler, err := checkinhttp.NewCheckInHandler(
		checkInService,
		bookingChecker,
		auditRepo,
		billingCfg.DraftExportHeading,
		billingCfg.Currency,
	)
	if err != nil {
		logger.Fatalf("check-in handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	invoicesHandler := apihttp.NewInvoicesHandler(db, cfg.OrgID)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/checkins/", checkInHandler)
	mux.Handle("/api/v1/invoices", invoicesHandler)
	mux.Handle("/api/v1/invoices/", invoicesHandler)
	mux.Handle("/api/v1/exports/invoices.csv", apihttp.NewExportInvoicesCSVHandler(db, cfg.OrgID))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL string
	HTTPAddr    string
	OrgID       string
	JWTSecret   string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL: getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8080"),
		OrgID:       getenvDefault("ORG_ID", "org-demo"),
		JWTSecret:   getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
