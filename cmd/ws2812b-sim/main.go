// Command ws2812b-sim animates a WS2812B string through the driver and a
// simulated transfer engine, then renders what actually went over the
// wire. Output goes to a real strip via nrzled over SPI when a port is
// available, or to the terminal otherwise.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"

	"github.com/coreman2200/ws2812b"
	"github.com/coreman2200/ws2812b/internal/config"
	"github.com/coreman2200/ws2812b/sim"
)

func main() {
	var (
		pixels     = flag.Int("pixels", 0, "number of LEDs in the string")
		fps        = flag.Int("fps", 0, "animation frames per second")
		brightness = flag.Float64("brightness", 0, "global brightness 0..1")
		output     = flag.String("output", "", "output: spi | screen")
		clockMHz   = flag.Int("clock-mhz", 0, "PWM timer clock in MHz")
		configPath = flag.String("config", "ws2812b.yaml", "path to config file")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	cfg := config.Default()
	if c, err := config.Load(*configPath); err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
	} else {
		cfg = c
	}
	if *pixels > 0 {
		cfg.Pixels = *pixels
	}
	if *fps > 0 {
		cfg.FPS = *fps
	}
	if *brightness > 0 {
		cfg.Brightness = *brightness
	}
	if *output != "" {
		cfg.Output = *output
	}
	if *clockMHz > 0 {
		cfg.ClockMHz = *clockMHz
	}

	if _, err := host.Init(); err != nil {
		log.Fatal().Err(err).Msg("host init")
	}

	eng := &sim.Engine{}
	pix := make([]ws2812b.Pixel, cfg.Pixels)
	dev, err := ws2812b.New(eng, pix, &ws2812b.Opts{
		TimerClock: physic.Frequency(cfg.ClockMHz) * physic.MegaHertz,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("driver init")
	}

	drawer := initDrawer(cfg)
	defer func() { _ = drawer.Halt() }()

	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	defer func() {
		signal.Stop(c)
		cancel()
	}()

	log.Info().
		Int("pixels", cfg.Pixels).
		Int("fps", cfg.FPS).
		Str("output", cfg.Output).
		Str("dev", dev.String()).
		Msg("starting")

	start := time.Now()
	ticker := time.NewTicker(time.Second / time.Duration(cfg.FPS))
	defer ticker.Stop()
	img := image.NewNRGBA(image.Rect(0, 0, cfg.Pixels, 1))

	for {
		select {
		case <-ticker.C:
			rad := math.Mod(float64(time.Since(start).Milliseconds())*math.Pi/180.0, 2*math.Pi)
			animate(pix, rad, cfg.Brightness)
			if err := dev.Update(); err != nil {
				log.Warn().Err(err).Msg("update rejected")
				continue
			}
			eng.Playback(dev)

			// Render the decoded drain record, not the source pixels, so
			// the preview shows exactly what went over the wire.
			frames := eng.TakeFrames()
			for i := 0; i < len(pix) && i < len(frames); i++ {
				r, g, b := dev.Timing().Decode(frames[i])
				img.SetNRGBA(i, 0, color.NRGBA{R: r, G: g, B: b, A: 255})
			}
			if err := drawer.Draw(drawer.Bounds(), img, image.Point{}); err != nil {
				log.Fatal().Err(err).Msg("draw")
			}
			fmt.Printf("\n")

		case sig := <-c:
			log.Info().Str("signal", sig.String()).Msg("aborting")
			_ = dev.Halt()
			return

		case <-ctx.Done():
			_ = dev.Halt()
			return
		}
	}
}

func initDrawer(cfg *config.Config) display.Drawer {
	if cfg.Output == "spi" {
		if p, err := spireg.Open(cfg.SPI.Port); err == nil {
			d, err := nrzled.NewSPI(p, &nrzled.Opts{
				NumPixels: cfg.Pixels,
				Channels:  3,
				Freq:      2500 * physic.KiloHertz,
			})
			if err != nil {
				log.Fatal().Err(err).Msg("nrzled init")
			}
			return d
		}
		log.Warn().Msg("no SPI port found, printing to the console")
	}
	return screen.New(100)
}

func animate(pix []ws2812b.Pixel, rad, brightness float64) {
	n := len(pix)
	for i := range pix {
		h := math.Mod(rad/(2*math.Pi)+float64(i)/float64(n), 1.0)
		c := colorWheel(h)
		pix[i] = ws2812b.Pixel{
			R: byte(float64(c.R) * brightness),
			G: byte(float64(c.G) * brightness),
			B: byte(float64(c.B) * brightness),
		}
	}
}

func colorWheel(h float64) color.NRGBA {
	h *= 6
	switch {
	case h < 1.:
		return color.NRGBA{R: 255, G: byte(255 * h), A: 255}
	case h < 2.:
		return color.NRGBA{R: byte(255 * (2 - h)), G: 255, A: 255}
	case h < 3.:
		return color.NRGBA{G: 255, B: byte(255 * (h - 2)), A: 255}
	case h < 4.:
		return color.NRGBA{G: byte(255 * (4 - h)), B: 255, A: 255}
	case h < 5.:
		return color.NRGBA{R: byte(255 * (h - 4)), B: 255, A: 255}
	default:
		return color.NRGBA{R: 255, B: byte(255 * (6 - h)), A: 255}
	}
}
