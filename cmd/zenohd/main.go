// Command zenohd is the minimal standalone router daemon: it wires a
// routing.Router to one or more TCP locators and exposes the metrics
// registry over HTTP, the way aistore's own daemon entrypoints
// (cmd/aisnode) parse flags into a Config and start listening before
// blocking on a signal. Everything interesting lives in the library
// packages; this is glue only.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zenohd/zenohd/cmn/config"
	"github.com/zenohd/zenohd/cmn/cos"
	"github.com/zenohd/zenohd/cmn/nlog"
	"github.com/zenohd/zenohd/metrics"
	"github.com/zenohd/zenohd/routing"
)

func main() {
	var (
		listen      = flag.String("listen", "tcp/0.0.0.0:7447", "comma-separated locators to listen on")
		peerID      = flag.String("peer-id", "", "local peer id; generated if empty")
		whatAmI     = flag.String("whatami", "router", "role this daemon plays: router|peer")
		metricsAddr = flag.String("metrics-addr", ":9090", "address to serve the prometheus registry on; empty disables it")
		compress    = flag.Bool("compress", false, "lz4-compress outbound FRAME payloads")
		verbose     = flag.Bool("verbose", false, "enable debug-level logging")
	)
	flag.Parse()

	cfg := config.Default()
	cfg.CompressBatches = *compress
	cfg.Verbose = *verbose
	config.Rom.Set(cfg)

	if *peerID == "" {
		*peerID = cos.GenPeerID()
	}

	role, err := parseWhatAmI(*whatAmI)
	if err != nil {
		nlog.Errorf("zenohd: %v", err)
		os.Exit(1)
	}

	rt := routing.NewRouter(*peerID, role)

	for _, loc := range strings.Split(*listen, ",") {
		loc = strings.TrimSpace(loc)
		if loc == "" {
			continue
		}
		if err := rt.Manager.AddLocator(locatorScheme(loc), loc); err != nil {
			nlog.Errorf("zenohd: listen on %s: %v", loc, err)
			os.Exit(1)
		}
		nlog.Infof("zenohd: peer %s listening on %s", *peerID, loc)
	}

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr)
	}

	waitForSignal()
	nlog.Infof("zenohd: shutting down")
	rt.Manager.Close()
}

func parseWhatAmI(s string) (uint8, error) {
	switch strings.ToLower(s) {
	case "router":
		return routing.WhatAmIRouter, nil
	case "peer":
		return routing.WhatAmIPeer, nil
	case "client":
		return routing.WhatAmIClient, nil
	default:
		return 0, cos.NewErrInvalidMessage("unknown --whatami %q", s)
	}
}

// locatorScheme extracts the scheme prefix ("tcp") a locator string
// ("tcp/host:port") is keyed under in session.Manager's per-scheme link
// managers.
func locatorScheme(locator string) string {
	if i := strings.IndexByte(locator, '/'); i >= 0 {
		return locator[:i]
	}
	return "tcp"
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	nlog.Infof("zenohd: serving metrics on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		nlog.Errorf("zenohd: metrics server: %v", err)
	}
}

func waitForSignal() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
}
