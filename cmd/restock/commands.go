package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/restock-go/internal/api"
	"github.com/andresuchdata/restock-go/internal/cache"
	"github.com/andresuchdata/restock-go/internal/config"
	"github.com/andresuchdata/restock-go/internal/pipeline"
	"github.com/andresuchdata/restock-go/internal/pipeline/restock"
	"github.com/andresuchdata/restock-go/internal/service"
)

func forecastCommand() *cli.Command {
	return &cli.Command{
		Name:  "forecast",
		Usage: "Run the replenishment forecast and write the result files",
		Flags: paramFlags(),
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			p, err := paramsFromContext(c, cfg)
			if err != nil {
				return err
			}

			a, err := newApp(c.Context, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			outcome, err := a.orch.Run(c.Context, p)
			if err != nil {
				return err
			}
			return printSummary(c.App.Writer, outcome)
		},
	}
}

func eventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "List the next occurrence of every planned event",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "reference-date", Usage: "Date to count from (YYYY-MM-DD)", EnvVars: []string{"REFERENCE_DATE"}},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			applyFlags(c, &cfg.Restock)
			p, err := buildParams(cfg.Restock, time.Now().UTC())
			if err != nil {
				return err
			}

			svc := service.NewRestockService(nil, nil, nil, nil, pipelineName)
			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EVENT\tDATE\tDAYS\tDURATION\tCUTOFF")
			for _, e := range svc.Events(p.ReferenceDate) {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", e.Event, e.Date.Format(dateLayout), e.DaysUntil, e.DurationDays, e.PlanningCutoffDays)
			}
			return w.Flush()
		},
	}
}

func incomingCommand() *cli.Command {
	return &cli.Command{
		Name:  "incoming",
		Usage: "Print inbound purchase order quantities per SKU and ISO week as CSV",
		Flags: paramFlags(),
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			p, err := paramsFromContext(c, cfg)
			if err != nil {
				return err
			}

			a, err := newApp(c.Context, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			outcome, err := a.orch.Run(c.Context, p)
			if err != nil {
				return err
			}

			inc := outcome.Result.Incoming
			w := csv.NewWriter(c.App.Writer)
			if err := w.Write(pipeline.IncomingHeader(inc)); err != nil {
				return err
			}
			for _, row := range inc.Rows {
				record := []string{row.SKU}
				for _, q := range row.Quantities {
					record = append(record, strconv.FormatFloat(q, 'f', -1, 64))
				}
				if err := w.Write(record); err != nil {
					return err
				}
			}
			w.Flush()
			return w.Error()
		},
	}
}

func projectCommand() *cli.Command {
	return &cli.Command{
		Name:  "project",
		Usage: "Project daily unit and dollar sales per entity from seasonality",
		Flags: projectionFlags(),
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			p, err := paramsFromContext(c, cfg)
			if err != nil {
				return err
			}
			opts, err := projectionOptions(c)
			if err != nil {
				return err
			}

			a, err := newApp(c.Context, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			outcome, err := a.orch.Project(c.Context, p, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "entities:       %d\n", len(outcome.Projection.Rows))
			fmt.Fprintf(c.App.Writer, "days:           %d from %s\n", outcome.Projection.Days, outcome.Projection.Start.Format(dateLayout))
			for _, f := range outcome.Files {
				fmt.Fprintf(c.App.Writer, "wrote:          %s\n", f)
			}
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve forecasts over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Usage: "Listen port", EnvVars: []string{"SERVER_PORT"}},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			if c.IsSet("port") {
				cfg.Server.Port = c.String("port")
			}
			if cfg.Server.Mode == "debug" {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			forecastCache, err := cache.NewForecastCache(ctx, cfg.Cache)
			if err != nil {
				return err
			}

			var runs service.RunReader
			if a.runs != nil {
				runs = a.runs
			}
			svc := service.NewRestockService(a.orch, nil, forecastCache, runs, pipelineName)

			// the reference date is left unset so each request uses its own day
			base, err := buildParams(cfg.Restock, time.Now().UTC())
			if err != nil {
				return err
			}
			if cfg.Restock.ReferenceDate == "" {
				base.ReferenceDate = time.Time{}
			}

			router := api.NewRouter(&api.Services{RestockService: svc, BaseParams: base}, cfg.Server.AllowedOrigins)
			srv := &http.Server{
				Addr:         ":" + cfg.Server.Port,
				Handler:      router,
				ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
				WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			log.Info().Msg("Shutting down server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}

			log.Info().Msg("Server exiting")
			return nil
		},
	}
}

func paramsFromContext(c *cli.Context, cfg *config.Config) (restock.Params, error) {
	applyFlags(c, &cfg.Restock)
	p, err := buildParams(cfg.Restock, time.Now().UTC())
	if err != nil {
		return restock.Params{}, err
	}
	if err := applyMaxDates(c, &p); err != nil {
		return restock.Params{}, err
	}
	return p, nil
}

func printSummary(out io.Writer, outcome *pipeline.Outcome) error {
	res := outcome.Result
	if out == nil {
		out = os.Stdout
	}

	fmt.Fprintf(out, "reference date: %s\n", res.ReferenceDate.Format(dateLayout))
	fmt.Fprintf(out, "event:          %s on %s (%d days, lasts %d)\n",
		res.Event, res.EventDate.Format(dateLayout), res.DaysToEvent, res.EventDurationDays)

	shipUnits, shipBoxes := 0, 0
	for _, row := range res.Rows {
		shipUnits += row.ToShipUnits
		shipBoxes += row.ToShipBoxes
	}
	fmt.Fprintf(out, "entities:       %d\n", len(res.Rows))
	fmt.Fprintf(out, "to ship:        %d units in %d boxes\n", shipUnits, shipBoxes)

	for _, w := range res.Warnings {
		fmt.Fprintf(out, "warning:        %s\n", w)
	}
	for _, f := range outcome.Files {
		fmt.Fprintf(out, "wrote:          %s\n", f)
	}
	return nil
}
