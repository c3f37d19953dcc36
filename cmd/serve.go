package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akashaero/fairval/internal/config"
	"github.com/akashaero/fairval/internal/dcf"
	"github.com/akashaero/fairval/internal/report"
	"github.com/akashaero/fairval/internal/solve"
)

var servePort int

// valuationRequest is the POST /api/valuation body.
type valuationRequest struct {
	Ticker string              `json:"ticker,omitempty"`
	Inputs dcf.ValuationInputs `json:"inputs"`
	Price  float64             `json:"price,omitempty"`
}

// valuationResponse mirrors the CLI's JSON output.
type valuationResponse struct {
	Ticker  string               `json:"ticker,omitempty"`
	Inputs  dcf.ValuationInputs  `json:"inputs"`
	Result  *dcf.ValuationResult `json:"result"`
	Price   float64              `json:"price,omitempty"`
	Upside  float64              `json:"upside,omitempty"`
	Implied map[string]float64   `json:"implied,omitempty"`
}

// newServeMux builds the API routes from solver settings, so tests can
// exercise handlers without a running server.
func newServeMux(solver config.SolverConfig) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /api/valuation", func(w http.ResponseWriter, r *http.Request) {
		var req valuationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		res, err := dcf.Evaluate(req.Inputs)
		if err != nil {
			writeJSONError(w, http.StatusUnprocessableEntity, err)
			return
		}

		resp := valuationResponse{
			Ticker: req.Ticker,
			Inputs: req.Inputs,
			Result: res,
			Price:  req.Price,
		}
		if req.Price > 0 {
			resp.Upside = report.UpsideDownside(res.FairValuePerShare, req.Price)
			resp.Implied = make(map[string]float64)
			for field, bracket := range solver.Brackets() {
				q := solve.Query{Field: field, TargetPrice: req.Price, Lo: bracket[0], Hi: bracket[1]}
				sres, err := solve.Solve(req.Inputs, q, solver.Options())
				if err != nil || !sres.Converged {
					continue
				}
				resp.Implied[string(field)] = sres.Value
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	})

	return mux
}

const shutdownTimeout = 10 * time.Second

// shutdownServer drains in-flight requests on its own deadline. The signal
// context is already cancelled by the time shutdown starts, so it cannot
// serve as the grace period.
func shutdownServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Warn("server shutdown", zap.Error(err))
	}
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP valuation API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newServeMux(cfg.Solver),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownServer(srv)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
