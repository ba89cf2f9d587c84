// Copyright 2024 The cable Authors
// This file is part of the cable library.
//
// The cable library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The cable library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the cable library. If not, see <http://www.gnu.org/licenses/>.

// Command cabled runs a standalone cable peer: it listens for incoming
// connections, frames each one as a cable stream, and hands it to a
// session.Manager shared across every connected peer.
package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/ahdinosaur/cable-go/cablelog"
	"github.com/ahdinosaur/cable-go/cablemetrics"
	"github.com/ahdinosaur/cable-go/config"
	"github.com/ahdinosaur/cable-go/framing"
	"github.com/ahdinosaur/cable-go/memstore"
	"github.com/ahdinosaur/cable-go/session"
)

var (
	listenFlag = &cli.StringFlag{
		Name:  "listen",
		Usage: "address to listen for incoming peer connections on",
		Value: config.DefaultListenAddr,
	}
	metricsFlag = &cli.BoolFlag{
		Name:  "metrics",
		Usage: "expose Prometheus metrics",
	}
	metricsAddrFlag = &cli.StringFlag{
		Name:  "metrics.addr",
		Usage: "address to serve Prometheus metrics on",
		Value: config.DefaultMetricsAddr,
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "log verbosity (0 = silent, 5 = trace)",
		Value: config.DefaultConfig.Verbosity,
	}
	handledCacheFlag = &cli.IntFlag{
		Name:  "handled-cache-size",
		Usage: "bound on the handled_requests dedup cache",
		Value: config.DefaultConfig.HandledCacheSize,
	}
)

func main() {
	app := &cli.App{
		Name:  "cabled",
		Usage: "run a standalone cable peer",
		Flags: []cli.Flag{listenFlag, metricsFlag, metricsAddrFlag, verbosityFlag, handledCacheFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cablelog.Setup(c.Int(verbosityFlag.Name))
	logger := cablelog.New("cabled")

	if c.Bool(metricsFlag.Name) {
		serveMetrics(c.String(metricsAddrFlag.Name), logger)
		cablemetrics.CollectProcessMetrics(3 * time.Second)
	}

	store := memstore.New()
	manager := session.NewManager(store, session.WithHandledCacheSize(c.Int(handledCacheFlag.Name)))

	ln, err := net.Listen("tcp", c.String(listenFlag.Name))
	if err != nil {
		return err
	}
	defer ln.Close()
	logger.Info("listening for peers", "addr", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go func() {
			defer conn.Close()
			if err := manager.RunPeer(framing.NewConn(conn)); err != nil {
				logger.Debug("peer connection closed", "err", err)
			}
		}()
	}
}

func serveMetrics(addr string, logger log.Logger) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(cablemetrics.NewCollector("cable"))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	logger.Info("serving metrics", "addr", addr)
	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
