// Command replay serves a previously exported JSON capture envelope
// (internal/persist) through the same admin/live HTTP surface as the
// live capture command, in view mode: the push channel replays history
// on attach but rejects new publishes.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tlindal/nasasniff/internal/fsutil"
	"github.com/tlindal/nasasniff/internal/httpapi"
	"github.com/tlindal/nasasniff/internal/monitoring"
	"github.com/tlindal/nasasniff/internal/nasa/analyser"
	"github.com/tlindal/nasasniff/internal/nasa/session"
	"github.com/tlindal/nasasniff/internal/persist"
	"github.com/tlindal/nasasniff/internal/version"
)

var (
	capturePath = flag.String("capture", "", "Path to a JSON capture envelope exported by nasasniff (required)")
	listenAddr  = flag.String("listen", ":8080", "HTTP listen address")
)

func main() {
	flag.Parse()
	log.Printf("replay %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)
	if *capturePath == "" {
		log.Fatal("replay: -capture is required")
	}

	baseDir := filepath.Dir(*capturePath)
	_, packets, err := persist.Import(fsutil.OSFileSystem{}, baseDir, *capturePath)
	if err != nil {
		log.Fatalf("replay: import capture: %v", err)
	}
	log.Printf("replay: loaded %d packets from %s", len(packets), *capturePath)

	an := analyser.New(analyser.Config{})
	for _, p := range packets {
		an.Observe(p)
	}

	sess := session.New(session.Config{Capacity: len(packets), Mode: session.ModeView})
	sess.Start()
	if err := sess.LoadHistory(packets); err != nil {
		log.Fatalf("replay: load history: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	api := httpapi.New(sess, an, nil)
	if err := api.AttachRoutes(mux); err != nil {
		log.Fatalf("replay: attach HTTP routes: %v", err)
	}

	server := &http.Server{Addr: *listenAddr, Handler: mux}

	go func() {
		log.Printf("replay: serving view-mode session on %s", *listenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("replay: HTTP server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Print("replay: shutting down")
	sess.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("replay: HTTP shutdown error: %v", err)
		server.Close()
	}
}
