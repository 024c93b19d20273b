// Command ws2812b-scope runs a continuous simulated transmission and
// streams every drained buffer half over websocket, so the pulse codes,
// phase transitions and latch frames can be watched live from a browser.
package main

import (
	"encoding/json"
	"flag"
	"image/color"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/ws2812b"
	"github.com/coreman2200/ws2812b/internal/config"
	"github.com/coreman2200/ws2812b/internal/scope"
	"github.com/coreman2200/ws2812b/sim"
)

func main() {
	var (
		addr       = flag.String("addr", "", "HTTP listen address")
		pixels     = flag.Int("pixels", 0, "number of LEDs in the string")
		fps        = flag.Int("fps", 0, "transmissions per second")
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
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *pixels > 0 {
		cfg.Pixels = *pixels
	}
	if *fps > 0 {
		cfg.FPS = *fps
	}

	hub := scope.NewHub()
	eng := &sim.Engine{}
	pix := make([]ws2812b.Pixel, cfg.Pixels)
	dev, err := ws2812b.New(eng, pix, &ws2812b.Opts{
		TimerClock: physic.Frequency(cfg.ClockMHz) * physic.MegaHertz,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("driver init")
	}

	eng.OnDrain = func(f ws2812b.Frame, codes []uint32) {
		r, g, b := dev.Timing().Decode(codes)
		hub.Broadcast(scope.FrameRecord{
			Frame:       f.String(),
			Codes:       codes,
			R:           r,
			G:           g,
			B:           b,
			Latch:       codes[0] == 0,
			RemainingUS: int64(dev.Remaining() / time.Microsecond),
		})
	}

	http.HandleFunc("/ws", hub.HandleWS)
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"pixels":       cfg.Pixels,
			"fps":          cfg.FPS,
			"clients":      hub.Clients(),
			"remaining_us": int64(dev.Remaining() / time.Microsecond),
		})
	})
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := http.ListenAndServe(cfg.Addr, nil); err != nil {
			log.Fatal().Err(err).Msg("http")
		}
	}()

	start := time.Now()
	ticker := time.NewTicker(time.Second / time.Duration(cfg.FPS))
	defer ticker.Stop()
	for range ticker.C {
		rad := math.Mod(float64(time.Since(start).Milliseconds())*math.Pi/180.0, 2*math.Pi)
		animate(pix, rad, cfg.Brightness)
		if err := dev.Update(); err != nil {
			log.Warn().Err(err).Msg("update rejected")
			continue
		}
		eng.Playback(dev)
		eng.TakeFrames()
	}
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
