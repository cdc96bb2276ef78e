package metrics

import (
	"fmt"
	"net"
	"net/http"

	"github.com/rpcrelay/rpc-relay/config"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"contrib.go.opencensus.io/exporter/prometheus"
	"go.opencensus.io/stats/view"
)

var prometheusExporterType exporterType = prometheusExporterTypeImpl{} //nolint:gochecknoglobals

type prometheusExporterTypeImpl struct{}

type prometheusExporterImpl struct {
	exporter *prometheus.Exporter
	server   *http.Server
	loggers  ldlog.Loggers
}

func (p prometheusExporterTypeImpl) getName() string {
	return "Prometheus"
}

func (p prometheusExporterTypeImpl) createExporterIfEnabled(
	mc config.MetricsConfig,
	loggers ldlog.Loggers,
) (exporter, error) {
	if !mc.Prometheus.Enabled {
		return nil, nil
	}

	port := mc.Prometheus.Port.GetOrElse(config.DefaultPrometheusPort)

	exporter, err := prometheus.NewExporter(prometheus.Options{
		Namespace: getPrefix(mc.Prometheus.Prefix),
		OnError: func(e error) {
			loggers.Errorf("Prometheus exporter error: %s", e)
		},
	})
	if err != nil { // COVERAGE: prometheus.NewExporter does not currently fail for any options
		return nil, err
	}

	exporterMux := http.NewServeMux()
	exporterMux.Handle("/metrics", exporter)

	return &prometheusExporterImpl{
		exporter: exporter,
		server: &http.Server{ //nolint:gosec
			Addr:    fmt.Sprintf(":%d", port),
			Handler: exporterMux,
		},
		loggers: loggers,
	}, nil
}

func (p *prometheusExporterImpl) register() error {
	listener, err := net.Listen("tcp", p.server.Addr)
	if err != nil {
		return err
	}
	go func() {
		if err := p.server.Serve(listener); err != http.ErrServerClosed {
			p.loggers.Errorf("Prometheus listener stopped unexpectedly: %s", err)
		}
	}()
	p.loggers.Infof("Prometheus metrics available at %s/metrics", p.server.Addr)

	// Prometheus scrapes our endpoint, so trace export does not apply here.
	view.RegisterExporter(p.exporter)
	return nil
}

func (p *prometheusExporterImpl) close() error {
	view.UnregisterExporter(p.exporter)
	return p.server.Close()
}
