package metrics

import (
	"github.com/rpcrelay/rpc-relay/config"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
)

type exporterType interface {
	getName() string
	createExporterIfEnabled(config.MetricsConfig, ldlog.Loggers) (exporter, error)
}

type exporter interface {
	register() error
	close() error
}

type exportersSet map[exporterType]exporter

func allExporterTypes() []exporterType {
	return []exporterType{datadogExporterType, stackdriverExporterType, prometheusExporterType}
}

func registerExporters(
	exporterTypes []exporterType,
	mc config.MetricsConfig,
	loggers ldlog.Loggers,
) (exportersSet, error) {
	registered := make(exportersSet)
	for _, t := range exporterTypes {
		e, err := t.createExporterIfEnabled(mc, loggers)
		if err != nil {
			loggers.Errorf("Error creating %s metrics exporter: %s", t.getName(), err)
			closeExporters(registered, loggers)
			return nil, err
		}
		if e == nil {
			continue
		}
		if err := e.register(); err != nil {
			loggers.Errorf("Error registering %s metrics exporter: %s", t.getName(), err)
			registered[t] = e
			closeExporters(registered, loggers)
			return nil, err
		}
		loggers.Infof("Successfully registered %s metrics exporter", t.getName())
		registered[t] = e
	}
	return registered, nil
}

func closeExporters(exporters exportersSet, loggers ldlog.Loggers) {
	for t, e := range exporters {
		if err := e.close(); err != nil {
			loggers.Errorf("Error closing %s metrics exporter: %s", t.getName(), err)
		}
	}
}

func getPrefix(configuredPrefix string) string {
	if configuredPrefix != "" {
		return configuredPrefix
	}
	return defaultMetricsPrefix
}
