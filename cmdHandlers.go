package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Hx199814/oneyearobesity/config"
	"github.com/Hx199814/oneyearobesity/inference"
	"github.com/Hx199814/oneyearobesity/obesity"
	"github.com/Hx199814/oneyearobesity/utils"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"github.com/mdobak/go-xerrors"
)

// maxBodyBytes bounds request bodies; a full profile is well under 1 KiB.
const maxBodyBytes = 64 << 10

type apiError struct {
	Message string `json:"message"`
}

type healthResponse struct {
	Status         string `json:"status"`
	ModelAvailable bool   `json:"modelAvailable"`
}

type surveyResponse struct {
	Questions    []obesity.Question `json:"questions"`
	FeatureNames []string           `json:"featureNames"`
	Bands        []obesity.Band     `json:"bands"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger := utils.GetLogger()
		err := xerrors.New(err)
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiError{Message: message})
}

// writeServiceError logs err and answers with the status it maps to.
func writeServiceError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	status := statusForError(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logErr := xerrors.New(err)
	logger.Log(ctx, level, msg, slog.Int("status", status), slog.Any("error", logErr))
	writeJSONError(w, status, publicMessage(status, err))
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func handleHealth(service *assessmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{
			Status:         "ok",
			ModelAvailable: service.pipeline.Available(),
		})
	}
}

func handleModelInfo(service *assessmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, service.pipeline.Info())
	}
}

func handleSurvey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, surveyResponse{
		Questions:    obesity.Questions,
		FeatureNames: obesity.FeatureNames[:],
		Bands:        obesity.ReferenceBands(),
	})
}

func handleBaseline(service *assessmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req baselineRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		reading, err := service.baseline(req)
		if err != nil {
			writeServiceError(ctx, w, service.logger, "baseline classification failed", err)
			return
		}
		writeJSON(w, http.StatusOK, reading)
	}
}

func handlePredict(service *assessmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var profile obesity.StudentProfile
		if err := decodeBody(w, r, &profile); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		assessment, err := service.assess(ctx, profile)
		if err != nil {
			writeServiceError(ctx, w, service.logger, "prediction failed", err)
			return
		}
		writeJSON(w, http.StatusOK, assessment)
	}
}

func newSocketServer() *socketio.Server {
	allowOriginFunc := func(r *http.Request) bool {
		return true
	}

	return socketio.NewServer(&engineio.Options{
		PingTimeout:  60 * time.Second,
		PingInterval: 25 * time.Second,
		Transports: []transport.Transport{
			&websocket.Transport{
				CheckOrigin: allowOriginFunc,
			},
			&polling.Transport{
				CheckOrigin: allowOriginFunc,
			},
		},
	})
}

func registerSocketEvents(server *socketio.Server, controller *socketController, logger *slog.Logger) {
	server.OnConnect("/", func(socket socketio.Conn) error {
		socket.SetContext("")
		connURL := socket.URL()
		logger.Info("socket connected",
			slog.String("socketID", socket.ID()),
			slog.String("url", connURL.String()),
			slog.String("remoteAddr", socket.RemoteAddr().String()),
		)
		controller.emitModelInfo(socket)
		return nil
	})

	server.OnEvent("/", "requestModelInfo", func(socket socketio.Conn) {
		controller.emitModelInfo(socket)
	})

	server.OnEvent("/", "classifyBaseline", func(socket socketio.Conn, msg string) {
		controller.handleClassifyBaseline(socket, msg)
	})

	server.OnEvent("/", "predict", func(socket socketio.Conn, msg string) {
		go controller.handlePredict(socket, msg)
	})

	server.OnError("/", func(socket socketio.Conn, e error) {
		err := xerrors.New(e)
		logger.Error("socket error", slog.Any("error", err))
	})

	server.OnDisconnect("/", func(socket socketio.Conn, reason string) {
		logger.Info("socket disconnected", slog.String("socketID", socket.ID()), slog.String("reason", reason))
	})
}

func serve(protocol, port string) {
	protocol = strings.ToLower(protocol)
	logger := utils.GetLogger()
	ctx := context.Background()

	cfg := config.Load()
	if port == "" {
		port = cfg.Port
	}

	// A failed load keeps the server up for BMI and baseline readouts.
	pipeline, _ := inference.Load(ctx, cfg.Model, logger)

	service := &assessmentService{
		pipeline:      pipeline,
		advisor:       newAdvisor(ctx, cfg.Advice, logger),
		logger:        logger,
		timeout:       cfg.RequestTimeout,
		adviceTimeout: cfg.Advice.Timeout,
	}
	controller := newSocketController(service)

	server := newSocketServer()
	registerSocketEvents(server, controller, logger)

	go func() {
		if err := server.Serve(); err != nil {
			err := xerrors.New(err)
			logger.Error("socketio listen error", slog.Any("error", err))
			os.Exit(1)
		}
	}()
	defer server.Close()

	router := newRouter(service, routeOptions{
		staticDir:     cfg.StaticDir,
		socketHandler: server,
	})

	serveHTTP(protocol == "https", port, cfg.TLS, router, logger)
}

func serveHTTP(serveHTTPS bool, port string, tlsCfg config.TLSConfig, handler http.Handler, logger *slog.Logger) {
	addr := ":" + port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if serveHTTPS {
		if tlsCfg.CertFile == "" || tlsCfg.KeyFile == "" {
			logger.Error("https requires CERT_FILE and CERT_KEY")
			os.Exit(1)
		}
		httpServer.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}

		logger.Info("starting HTTPS server", slog.String("addr", addr))
		if err := httpServer.ListenAndServeTLS(tlsCfg.CertFile, tlsCfg.KeyFile); err != nil {
			err := xerrors.New(err)
			logger.Error("HTTPS server stopped", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	logger.Info("starting HTTP server", slog.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil {
		err := xerrors.New(err)
		logger.Error("HTTP server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
