// Command nasasniff runs the live NASA-bus capture loop: it reads from a
// configured transport, reassembles and decodes frames, fans decoded
// packets out through a live session, and serves an admin/live HTTP
// surface.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tlindal/nasasniff/internal/config"
	"github.com/tlindal/nasasniff/internal/fsutil"
	"github.com/tlindal/nasasniff/internal/httpapi"
	"github.com/tlindal/nasasniff/internal/monitoring"
	"github.com/tlindal/nasasniff/internal/nasa"
	"github.com/tlindal/nasasniff/internal/nasa/analyser"
	"github.com/tlindal/nasasniff/internal/nasa/decoder"
	"github.com/tlindal/nasasniff/internal/nasa/reassembler"
	"github.com/tlindal/nasasniff/internal/nasa/session"
	"github.com/tlindal/nasasniff/internal/persist"
	"github.com/tlindal/nasasniff/internal/store"
	"github.com/tlindal/nasasniff/internal/timeutil"
	"github.com/tlindal/nasasniff/internal/transport"
	"github.com/tlindal/nasasniff/internal/version"
)

var configPath = flag.String("config", config.DefaultConfigPath, "Path to the capture session configuration file")

func main() {
	flag.Parse()
	log.Printf("nasasniff %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	cfg, err := config.Load(*configPath)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("using default configuration (%v)", err)
		cfg = config.Empty()
	} else if err != nil {
		log.Fatalf("nasasniff: load configuration: %v", err)
	}

	tr, err := buildTransport(cfg)
	if err != nil {
		log.Fatalf("nasasniff: build transport: %v", err)
	}

	an := analyser.New(analyser.Config{HistoryLimit: cfg.GetAnalyserHistoryLimit()})
	sess := session.New(session.Config{Capacity: cfg.GetHistoryCapacity(), Mode: session.ModeLive})
	sess.RegisterSink(analyserSink{an})

	var st *store.Store
	if path := cfg.GetStorePath(); path != "" {
		st, err = store.Open(path)
		if err != nil {
			log.Fatalf("nasasniff: open capture store: %v", err)
		}
		defer st.Close()
		sess.RegisterSink(store.NewSink(st, cfg.GetStoreQueue()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		runHTTPServer(ctx, cfg, sess, an, st)
	}()

	sess.Start()
	if err := tr.Connect(ctx); err != nil {
		log.Fatalf("nasasniff: connect transport: %v", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		runCaptureLoop(ctx, tr, sess)
	}()

	<-ctx.Done()
	log.Print("nasasniff: shutting down")
	sess.Stop()
	tr.Close()

	if cfg.GetExportOnStop() {
		exportHistory(cfg, sess)
	}

	wg.Wait()
	log.Print("nasasniff: graceful shutdown complete")
}

// buildTransport selects and constructs the configured concrete
// transport implementation.
func buildTransport(cfg *config.Config) (transport.Transport, error) {
	switch cfg.GetTransport() {
	case config.TransportSerial:
		return transport.NewSerial(transport.SerialConfig{
			Path:     cfg.GetSerialPath(),
			BaudRate: cfg.GetSerialBaudRate(),
			DataBits: cfg.GetSerialDataBits(),
			StopBits: cfg.GetSerialStopBits(),
			Parity:   cfg.GetSerialParity(),
		}), nil
	case config.TransportTCP:
		return transport.NewTCP(transport.TCPConfig{
			Addr:           cfg.GetTCPAddr(),
			InitialBackoff: cfg.GetTCPInitialBackoff(),
			MaxBackoff:     cfg.GetTCPMaxBackoff(),
		}), nil
	case config.TransportPcap:
		return transport.NewPcap(transport.PcapConfig{
			File:  cfg.GetPcapFile(),
			Proto: cfg.GetPcapProto(),
			Port:  cfg.GetPcapPort(),
		}), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.GetTransport())
	}
}

// runCaptureLoop drives the single-threaded read→reassemble→decode
// chain and publishes each decoded packet to sess, per SPEC_FULL.md §5's
// scheduling model.
func runCaptureLoop(ctx context.Context, tr transport.Transport, sess *session.Session) {
	r := reassembler.New()
	d := decoder.New(timeutil.RealClock{})

	go drainTransportEvents(ctx, tr)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		chunk, err := tr.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			monitoring.Logf("nasasniff: transport read error: %v", err)
			continue
		}
		if len(chunk) == 0 {
			continue
		}

		frames, resyncs := r.Feed(chunk)
		for _, rs := range resyncs {
			sess.ReportResync(rs)
		}
		for _, frame := range frames {
			packet, err := d.Decode(frame)
			if err != nil {
				sess.ReportError(err, frame)
				continue
			}
			if err := sess.Publish(packet); err != nil {
				monitoring.Logf("nasasniff: publish packet: %v", err)
			}
		}
	}
}

func drainTransportEvents(ctx context.Context, tr transport.Transport) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-tr.Events():
			if !ok {
				return
			}
			monitoring.Logf("nasasniff: transport event %v: %v (delay=%s)", ev.Kind, ev.Err, ev.Delay)
		}
	}
}

func runHTTPServer(ctx context.Context, cfg *config.Config, sess *session.Session, an *analyser.Analyser, st *store.Store) {
	mux := http.NewServeMux()

	var mounter httpapi.SQLBrowserMounter
	if st != nil {
		mounter = st
	}
	api := httpapi.New(sess, an, mounter)
	if err := api.AttachRoutes(mux); err != nil {
		log.Fatalf("nasasniff: attach HTTP routes: %v", err)
	}

	server := &http.Server{
		Addr:    cfg.GetListenAddr(),
		Handler: mux,
	}

	go func() {
		log.Printf("nasasniff: HTTP surface listening on %s", cfg.GetListenAddr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("nasasniff: HTTP server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("nasasniff: HTTP shutdown error: %v", err)
		server.Close()
	}
}

// analyserSink feeds every published packet into the analyser without
// the analyser needing to implement session.Sink's full surface itself.
type analyserSink struct{ an *analyser.Analyser }

func (s analyserSink) ObservePacket(p nasa.Packet)      { s.an.Observe(p) }
func (s analyserSink) ObserveError(session.ErrorEvent)  {}
func (s analyserSink) ObserveResync(reassembler.Resync) {}

func exportHistory(cfg *config.Config, sess *session.Session) {
	history := sess.History()
	env := persist.BuildEnvelope(history, timeutil.FormatISO8601Milli(timeutil.RealClock{}.Now()))
	path := cfg.GetCaptureDir() + "/" + env.ID + ".json"
	if err := persist.Export(fsutil.OSFileSystem{}, cfg.GetCaptureDir(), path, env); err != nil {
		log.Printf("nasasniff: export capture on stop: %v", err)
	} else {
		log.Printf("nasasniff: exported %d packets to %s", env.Count, path)
	}
}
