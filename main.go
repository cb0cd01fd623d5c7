package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/kinoreplan/api"
	"github.com/banshee-data/kinoreplan/internal/config"
	"github.com/banshee-data/kinoreplan/internal/lineplan"
	"github.com/banshee-data/kinoreplan/internal/plan"
	"github.com/banshee-data/kinoreplan/internal/store"
	"github.com/banshee-data/kinoreplan/internal/telemetry"
	"github.com/banshee-data/kinoreplan/internal/version"
	"github.com/banshee-data/kinoreplan/internal/viz"
)

var (
	devMode     = flag.Bool("dev", false, "Replay odometry from fixtures.txt instead of the serial port")
	listen      = flag.String("listen", ":8080", "Listen address")
	configPath  = flag.String("config", config.DefaultConfigPath, "Planner tuning file")
	dbFile      = flag.String("db", "flight_data.db", "Flight log database file")
	serialPort  = flag.String("serial", "/dev/ttyUSB0", "Odometry serial port")
	publishAddr = flag.String("publish", "127.0.0.1:9870", "Trajectory executor UDP address")
	obstacles   = flag.String("obstacles", "", "Obstacle JSON file for the built-in planner (empty for free space)")
	vizDir      = flag.String("viz", "", "Directory for path/curve plots (empty disables)")
	cruiseSpeed = flag.Float64("speed", 2.0, "Cruise speed for the built-in planner (m/s)")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	log.Printf("kinoreplan %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	tuning, err := config.LoadTuningConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load tuning config: %v", err)
	}
	if err := tuning.Validate(); err != nil {
		log.Fatalf("invalid tuning config: %v", err)
	}
	planCfg := plan.ConfigFromTuning(tuning)

	field, err := lineplan.LoadSphereField(*obstacles)
	if err != nil {
		log.Fatalf("failed to load obstacle field: %v", err)
	}

	pub, err := telemetry.NewUDPPublisher(*publishAddr)
	if err != nil {
		log.Fatalf("failed to dial trajectory endpoint: %v", err)
	}
	defer pub.Close()

	flightLog, err := store.Open(*dbFile)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer flightLog.Close()
	log.Printf("flight session %s", flightLog.SessionID())

	planner := lineplan.NewPlanner(field, *cruiseSpeed, planCfg.SafetyMargin)
	ctrl := plan.NewController(planCfg, planner, field, pub)
	ctrl.SetRecorder(flightLog)
	if *vizDir != "" {
		ctrl.SetVisualizer(viz.NewPathPlotter(*vizDir))
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// odometry source: serial link in production, fixture replay in dev
	wg.Add(1)
	go func() {
		defer wg.Done()
		if *devMode {
			if err := replayFixtures(ctx, "fixtures.txt", ctrl); err != nil {
				log.Printf("fixture replay failed: %v", err)
			}
			log.Print("odometry routine terminated")
			return
		}

		port, err := telemetry.NewOdometryPort(*serialPort)
		if err != nil {
			log.Printf("failed to open odometry port: %v", err)
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case odom := <-port.Updates():
					ctrl.OnOdometry(odom)
				case <-ctx.Done():
					return
				}
			}
		}()

		if err := port.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor odometry port: %v", err)
		}
		log.Print("odometry routine terminated")
	}()

	// planning controller: FSM tick plus safety tick
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ctrl.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("controller stopped: %v", err)
		}
		log.Print("controller routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		apiMux := api.NewServer(ctrl, flightLog, tuning).ServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", apiMux))
		mux.Handle("/", apiMux)

		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("got request %q", r.URL.Path)
			mux.ServeHTTP(w, r)
		})

		server := &http.Server{
			Addr:    *listen,
			Handler: h,
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

// replayFixtures loops the odometry frames in path into the controller at
// the serial link's nominal rate until ctx is cancelled.
func replayFixtures(ctx context.Context, path string, ctrl *plan.Controller) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) == 0 {
		return nil
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			odom, err := telemetry.ParseOdometryFrame(lines[i%len(lines)])
			if err != nil {
				continue
			}
			ctrl.OnOdometry(odom)
		}
	}
}
