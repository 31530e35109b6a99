package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/bank-ledger/internal/ledger"
	"github.com/example/bank-ledger/internal/security"
	"github.com/example/bank-ledger/pkg/audit"
)

// AuditTrail is the read side of the hash-chained audit log.
type AuditTrail interface {
	Entries() []*audit.LogEntry
	Verify() bool
}

type Dependencies struct {
	Logger *slog.Logger
	Ledger *ledger.Ledger

	// Audit is optional. Without it GET /v1/audit answers 404.
	Audit AuditTrail
	// Metrics is optional, usually promhttp.HandlerFor on the ledger registry.
	Metrics http.Handler

	MaxBodyBytes int64
}

func NewRouter(deps Dependencies) (http.Handler, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	createAccountV, err := security.NewJSONSchemaValidator(createAccountSchema)
	if err != nil {
		return nil, err
	}
	amountV, err := security.NewJSONSchemaValidator(amountSchema)
	if err != nil {
		return nil, err
	}
	transferV, err := security.NewJSONSchemaValidator(transferSchema)
	if err != nil {
		return nil, err
	}

	h := &handlers{ledger: deps.Ledger, audit: deps.Audit, logger: deps.Logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(security.CorrelationID)
	r.Use(RequestLogger(deps.Logger))
	r.Use(security.BodySizeLimit(deps.MaxBodyBytes))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(h.requireLedger)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.listAccounts)
			r.With(createAccountV.Middleware).Post("/", h.createAccount)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getAccount)
				r.Get("/transactions", h.listTransactions)
				r.Get("/summary", h.summary)
				r.Get("/validation", h.validate)
				r.With(amountV.Middleware).Post("/deposit", h.deposit)
				r.With(amountV.Middleware).Post("/withdraw", h.withdraw)
			})
		})

		r.With(transferV.Middleware).Post("/transfers", h.transfer)
		r.Post("/interest", h.applyInterest)
		r.Get("/audit", h.auditEntries)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		security.WriteJSONError(w, r, http.StatusNotFound, "not_found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		security.WriteJSONError(w, r, http.StatusMethodNotAllowed, "method_not_allowed")
	})

	return r, nil
}
