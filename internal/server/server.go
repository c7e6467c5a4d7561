package server

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/fhiba/2025Q2-G4/internal/adapter/utils"
	"github.com/fhiba/2025Q2-G4/internal/config"
	"github.com/fhiba/2025Q2-G4/internal/handlers"
	"github.com/fhiba/2025Q2-G4/internal/middleware"
	"github.com/fhiba/2025Q2-G4/pkg/logger_i"
)

type Stopper interface {
	Stop(ctx context.Context) error
}

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	Workers          Stopper
	CloseServices    func()
}

type Server struct {
	server *http.Server
	logger *logger_i.Logger
}

// Routes mounts every endpoint of h. Inbound notification and processing
// routes are rate limited per client address.
func Routes(h *handlers.Handler) http.Handler {
	r := utils.NewRouter()

	r.Router.Get("/healthz", h.GetHealth)
	r.Router.Post("/notifications/uploads", middleware.WrapLimited(h.PostUploadNotifications))
	r.Router.Post("/notifications/cloudevents", middleware.WrapLimited(h.PostCloudEvent))
	r.Router.Post("/invoices/process", middleware.WrapLimited(h.PostProcess))
	r.Router.Get("/invoices", middleware.Wrap(h.GetInvoices))
	r.Router.Get("/invoices/export.csv", middleware.Wrap(h.GetExportCSV))
	r.Router.Get("/invoices/export.xlsx", middleware.Wrap(h.GetExportXLSX))
	r.Router.Patch("/invoices/fields", middleware.Wrap(h.PatchFields))
	return r.Router
}

func CreateServer(listenAddr string, h *handlers.Handler) *Server {
	return &Server{
		server: &http.Server{
			Addr:         listenAddr,
			Handler:      Routes(h),
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		logger: logger_i.NewLogger("Server"),
	}
}

func (s *Server) ListenAndServe() {
	s.logger.Info("Server is listening at", "address", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Server crashed", "error", err.Error(), "addr", s.server.Addr)
	}
}

// ShutDownHandler waits for a signal, then stops the server, drains the
// workers and closes the backing services, in that order.
func (s *Server) ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	s.logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		s.server.SetKeepAlivesEnabled(false)

		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Error("Could not shutdown gracefully", "error", err)
		}

		//close workers
		if shutdownParams.Workers != nil {
			if err := shutdownParams.Workers.Stop(ctx); err != nil {
				s.logger.Error("Workers did not drain", "error", err)
			}
		}
		if shutdownParams.CloseServices != nil {
			shutdownParams.CloseServices()
		}
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Gracefully shut down")
		close(shutdownParams.StopExecution)
	case <-ctx.Done():
		s.logger.Info("Force Shut down")
		os.Exit(1)
	}
}
