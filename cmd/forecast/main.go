// Command forecast fetches and stores the forecast of one place and prints it.
//
//	forecast --city Campinas --state "São Paulo" --days 3
//	forecast --latitude -23.55 --longitude -46.63
package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"meteo-locator/internal/config"
	"meteo-locator/internal/weather"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func main() {
	flags := pflag.NewFlagSet("forecast", pflag.ExitOnError)
	flags.String("config", "", "path to a config file")
	flags.String("city", "", "city to geocode")
	flags.String("state", "", "state hint for the city")
	flags.String("county", "", "county hint for the city")
	flags.Float64("latitude", 0, "latitude, used with --longitude instead of --city")
	flags.Float64("longitude", 0, "longitude, used with --latitude instead of --city")
	flags.Int("days", 0, "forecast horizon in days, 1 to 16 (default app.forecastDays)")
	flags.Bool("history", false, "print the stored record instead of fetching")
	flags.Bool("compact", false, "print JSON on a single line")
	_ = flags.Parse(os.Args[1:])

	v := viper.GetViper()
	if err := v.BindPFlags(flags); err != nil {
		log.Fatalf("Failed to bind flags: %v", err)
	}

	cfg, err := config.LoadFrom(v, v.GetString("config"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// stdout carries the payload
	logger := cfg.NewLoggerTo(os.Stderr)

	svc, err := weather.NewWeatherService(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create weather service: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var lat, lon *float64
	if flags.Changed("latitude") && flags.Changed("longitude") {
		la, lo := v.GetFloat64("latitude"), v.GetFloat64("longitude")
		lat, lon = &la, &lo
	}

	var out any
	if v.GetBool("history") {
		rec, err := svc.GetHistory(ctx, weather.HistoryRequest{
			City:      v.GetString("city"),
			Latitude:  lat,
			Longitude: lon,
		})
		if err != nil {
			log.Fatalf("Failed to get history: %v", err)
		}
		out = rec
	} else {
		res, err := svc.GetWeatherForecast(ctx, weather.Request{
			City:         v.GetString("city"),
			State:        v.GetString("state"),
			County:       v.GetString("county"),
			Latitude:     lat,
			Longitude:    lon,
			ForecastDays: v.GetInt("days"),
		})
		if err != nil {
			log.Fatalf("Failed to get forecast: %v", err)
		}
		logger.Info("forecast stored", "key", res.Key)
		out = res.Payload
	}

	if err := printJSON(os.Stdout, out, v.GetBool("compact")); err != nil {
		log.Fatalf("Failed to print result: %v", err)
	}
}

func printJSON(w io.Writer, v any, compact bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
