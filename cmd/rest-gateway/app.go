package main

import (
	"fmt"
	"io"

	"github.com/brizzai/rest-gateway/internal/config"
	"github.com/brizzai/rest-gateway/internal/gateway"
	"github.com/brizzai/rest-gateway/internal/logger"
	"github.com/brizzai/rest-gateway/internal/requester"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// app is the wired gateway for a single CLI invocation
type app struct {
	service  gateway.Service
	registry *prometheus.Registry
}

func newApp(cfg *config.Config, withMetrics bool) (*app, error) {
	a := &app{}
	if withMetrics {
		a.registry = prometheus.NewRegistry()
	}

	fxApp := fx.New(
		fx.NopLogger,
		fx.Supply(&cfg.EndpointConfig, &cfg.Transport),
		fx.Provide(func() prometheus.Registerer {
			if a.registry == nil {
				return nil
			}
			return a.registry
		}),
		requester.Module,
		gateway.Module,
		fx.Populate(&a.service),
	)
	if err := fxApp.Err(); err != nil {
		return nil, fmt.Errorf("failed to wire gateway: %w", err)
	}
	return a, nil
}

// printMetrics writes the transport metrics in the Prometheus text format
func (a *app) printMetrics(w io.Writer) {
	if a.registry == nil {
		return
	}
	families, err := a.registry.Gather()
	if err != nil {
		logger.Error("failed to gather metrics", zap.Error(err))
		return
	}
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			logger.Error("failed to write metrics", zap.Error(err))
			return
		}
	}
}
