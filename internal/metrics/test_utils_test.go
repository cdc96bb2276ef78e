package metrics

import (
	"github.com/rpcrelay/rpc-relay/config"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
)

type testExporterTypeImpl struct {
	name            string
	checkEnabled    func(config.MetricsConfig) bool
	errorOnCreate   error
	errorOnRegister error
	created         []*testExporterImpl
}

type testExporterImpl struct {
	exporterType *testExporterTypeImpl
	registered   bool
	closed       bool
}

func (t *testExporterTypeImpl) getName() string {
	return t.name
}

func (t *testExporterTypeImpl) createExporterIfEnabled(
	mc config.MetricsConfig,
	loggers ldlog.Loggers,
) (exporter, error) {
	if t.checkEnabled != nil && !t.checkEnabled(mc) {
		return nil, nil
	}
	if t.errorOnCreate != nil {
		return nil, t.errorOnCreate
	}
	e := &testExporterImpl{exporterType: t}
	t.created = append(t.created, e)
	return e, nil
}

func (e *testExporterImpl) register() error {
	e.registered = true
	return e.exporterType.errorOnRegister
}

func (e *testExporterImpl) close() error {
	e.closed = true
	return nil
}
