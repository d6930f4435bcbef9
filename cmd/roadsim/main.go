// Command roadsim runs the car-to-car accident and auto-brake simulation.
//
// By default it opens a terminal view of the road. With -headless the run
// is logged to stderr instead, and -web serves live state over websocket
// for browser dashboards.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/anggasct/roadsim"
	"github.com/anggasct/roadsim/render"
	"github.com/anggasct/roadsim/visualization"
	"github.com/anggasct/roadsim/web"
)

func main() {
	var (
		scenarioPath = flag.String("scenario", "", "path to a YAML scenario file (default: built-in scenario)")
		headless     = flag.Bool("headless", false, "run without the terminal view, logging events to stderr")
		webAddr      = flag.String("web", "", "serve live state over websocket on this address, e.g. :8080")
		dotPath      = flag.String("dot", "", "write the phase graph in DOT format to this file and exit")
		verbose      = flag.Bool("verbose", false, "log vehicle movement events")
	)
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "roadsim",
	})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if err := run(logger, *scenarioPath, *headless, *webAddr, *dotPath); err != nil {
		logger.Fatal("simulation failed", "err", err)
	}
}

func run(logger *log.Logger, scenarioPath string, headless bool, webAddr, dotPath string) error {
	if dotPath != "" {
		gen := visualization.NewDOTGenerator()
		if err := gen.GenerateToFile(dotPath); err != nil {
			return fmt.Errorf("failed to write phase graph: %w", err)
		}
		logger.Info("phase graph written", "path", dotPath)
		return nil
	}

	scenario := roadsim.DefaultScenario()
	if scenarioPath != "" {
		loaded, err := roadsim.LoadScenario(scenarioPath)
		if err != nil {
			return fmt.Errorf("failed to load scenario: %w", err)
		}
		scenario = loaded
	}

	sim, err := roadsim.NewSimulation(scenario, roadsim.StubPlatform{})
	if err != nil {
		return err
	}

	if webAddr != "" {
		status := web.NewStatusServer(sim, webAddr, logger)
		sim.AddSink(status)
		go func() {
			if err := status.Start(); err != nil {
				logger.Error("status server stopped", "err", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := status.Shutdown(ctx); err != nil {
				logger.Error("status server shutdown failed", "err", err)
			}
		}()
		logger.Info("status server listening", "addr", webAddr)
	}

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupts
		logger.Info("interrupted, stopping")
		sim.Stop()
	}()

	if headless {
		return runHeadless(logger, sim)
	}
	return runTerminal(logger, sim)
}

func runHeadless(logger *log.Logger, sim *roadsim.Simulation) error {
	sim.AddSink(roadsim.NewLogSink(logger))
	if err := sim.Start(); err != nil {
		return err
	}
	err := sim.Wait()
	logger.Info("simulation finished", "phase", sim.Phase())
	return err
}

func runTerminal(logger *log.Logger, sim *roadsim.Simulation) error {
	renderer, err := render.New(sim)
	if err != nil {
		return fmt.Errorf("failed to start terminal view: %w", err)
	}
	sim.AddSink(renderer.Sink())

	if err := sim.Start(); err != nil {
		return err
	}
	if err := renderer.Run(); err != nil {
		return err
	}
	sim.Stop()
	return sim.Err()
}
