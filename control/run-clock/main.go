package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrockway/wordclock/control/button"
	"github.com/jrockway/wordclock/control/clock"
	"github.com/jrockway/wordclock/control/config"
	"github.com/jrockway/wordclock/control/console"
	"github.com/jrockway/wordclock/control/gesture"
	"github.com/jrockway/wordclock/control/layout"
	"github.com/jrockway/wordclock/control/light"
	"github.com/jrockway/wordclock/control/mode"
	"github.com/jrockway/wordclock/control/rtc"
	"github.com/jrockway/wordclock/control/screen"
	"github.com/jrockway/wordclock/control/status"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var (
	configFile = kingpin.Flag("config", "Path to yaml or toml config file.").Default("wordclock.yaml").Short('c').String()
	verbose    = kingpin.Flag("verbose", "Log at debug level.").Short('v').Bool()
	bind       = kingpin.Flag("bind", "Address to bind for the debug/metrics server; overrides the config file.").String()
	preview    = kingpin.Flag("preview", "Run without hardware: host clock, fixed light level, no LED strip.").Bool()
)

func main() {
	kingpin.Parse()
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(*configFile)
	if errors.Is(err, fs.ErrNotExist) && *preview {
		log.WithField("config", *configFile).Warn("config file not found; using defaults")
		cfg = config.Default()
	} else if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *bind != "" {
		cfg.HTTP.Bind = *bind
	}

	if cfg.Console.Port != "" {
		c, err := console.Open(cfg.Console.Port, cfg.Console.Baud)
		if err != nil {
			log.Fatalf("open console: %v", err)
		}
		defer c.Close()
		console.Attach(log.StandardLogger(), c)
	}

	l, err := layout.ByName(cfg.Layout)
	if err != nil {
		log.Fatalf("layout: %v", err)
	}
	if err := l.Validate(); err != nil {
		log.Fatalf("layout %s does not fit its strip: %v", l.Name, err)
	}

	if !*preview {
		if _, err := host.Init(); err != nil {
			log.Fatalf("init periph.io: %v", err)
		}
	}

	driver := cfg.Display.Driver
	if *preview {
		driver = "none"
	}
	strip, err := screen.OpenStrip(driver, cfg.Display.Port, l.NumCells)
	if err != nil {
		log.Fatalf("open display: %v", err)
	}
	display := screen.New(strip, l)
	display.PowerLimit = cfg.Display.PowerLimit
	display.SetBrightness(cfg.Brightness.Max)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, l, display)
	stop()
	// Blank the strip before exiting, whatever went wrong.
	if cerr := display.Close(); cerr != nil {
		log.WithError(cerr).Error("close display")
	}
	if err != nil {
		log.WithError(err).Fatal("clock stopped")
	}
	log.Info("interrupt")
}

// run brings up the clock's devices and runs it on display until the context is done.
func run(ctx context.Context, cfg *config.Config, l *layout.Layout, display *screen.Screen) error {
	var shared mode.Shared
	opts := mode.Options{
		Timing: cfg.Timing.Mode(),
		Colors: cfg.Colors,
	}
	var src mode.TimeSource
	if *preview {
		src = rtc.NewSystem()
		opts.Light = light.Fixed(50)
		opts.Brightness = cfg.Brightness.Level
	} else {
		ds, err := openRTC(cfg)
		if errors.Is(err, rtc.ErrNotDetected) {
			// Nothing to show without a clock.  Stay up so the failure is visible on the
			// console and the debug server.
			log.WithError(err).Error("real time clock not found; idling")
			if err := display.Blank(); err != nil {
				log.WithError(err).Error("blank display")
			}
			idle(ctx, cfg.HTTP.Bind, newRouter(nil, display, nil))
			return nil
		} else if err != nil {
			return fmt.Errorf("open rtc: %w", err)
		}
		src = ds
		if sensor := openLight(cfg); sensor != nil {
			defer sensor.Halt()
			opts.Light = sensor
			opts.Brightness = cfg.Brightness.Level
		}
	}

	var watcher *button.Watcher
	if !*preview {
		classifier := gesture.New(&shared, time.Duration(cfg.Button.LongPress), time.Duration(cfg.Button.Debounce))
		defer classifier.Close()
		w, err := button.Open(cfg.Button.Pin, classifier, cfg.Button.ActiveHigh)
		if err != nil {
			return fmt.Errorf("open button: %w", err)
		}
		watcher = w
	}

	machine := mode.New(&shared, src, opts)
	cl := clock.New(machine, display, l)
	defer cl.Close()
	page := status.New(display.Preview)
	cl.Observe = func(f mode.Frame, err error) {
		page.Observe(f, machine.Edit(), err)
	}

	router := newRouter(page, display, nil)
	if *preview {
		router = newRouter(page, display, &shared)
	}
	httpServer := &http.Server{Addr: cfg.HTTP.Bind, Handler: router}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return cl.Run(ctx)
	})
	if watcher != nil {
		eg.Go(func() error {
			return watcher.Run(ctx)
		})
	}
	eg.Go(func() error {
		log.WithField("bind", httpServer.Addr).Info("http server listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		tctx, c := context.WithTimeout(context.Background(), time.Second)
		defer c()
		return httpServer.Shutdown(tctx)
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openRTC(cfg *config.Config) (*rtc.DS3231, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(cfg.RTC.Bus)
	if err != nil {
		return nil, err
	}
	ds, err := rtc.New(bus, cfg.RTC.Addr, loc)
	if err != nil {
		bus.Close()
		return nil, err
	}
	if ds.Placeholder, err = cfg.PlaceholderDate(); err != nil {
		return nil, err
	}
	logger := log.WithFields(log.Fields{"component": "rtc", "device": ds.String()})
	lost, err := ds.LostPower()
	if err != nil {
		return nil, err
	}
	if lost {
		t, err := cfg.PowerLossTime()
		if err != nil {
			return nil, err
		}
		logger.WithField("time", t).Warn("rtc lost power; resetting the time")
		if err := ds.Set(t); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// openLight returns the light sensor, or nil to run at a fixed brightness.
func openLight(cfg *config.Config) *light.TSL2591 {
	if cfg.Light.Disabled {
		return nil
	}
	logger := log.WithField("component", "light")
	bus, err := i2creg.Open(cfg.Light.Bus)
	if err != nil {
		logger.WithError(err).Warn("open i2c bus; running at fixed brightness")
		return nil
	}
	opts := light.DefaultOpts
	opts.FullScaleLux = cfg.Light.FullScaleLux
	sensor, err := light.NewTSL2591(bus, cfg.Light.Addr, &opts)
	if err != nil {
		bus.Close()
		logger.WithError(err).Warn("init light sensor; running at fixed brightness")
		return nil
	}
	logger.WithField("device", sensor.String()).Info("light sensor ready")
	return sensor
}

// idle serves the debug pages until the context is done.
func idle(ctx context.Context, bind string, h http.Handler) {
	s := &http.Server{Addr: bind, Handler: h}
	go func() {
		<-ctx.Done()
		tctx, c := context.WithTimeout(context.Background(), time.Second)
		defer c()
		s.Shutdown(tctx)
	}()
	if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("http server")
		<-ctx.Done()
	}
}
