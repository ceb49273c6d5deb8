// Package connectors wires source types to their connector
// implementations. Each subpackage handles one external system; this
// package only routes.
package connectors

import (
	"fmt"

	"github.com/corvuslabs/ingestd/internal/connectors/clickhouse"
	"github.com/corvuslabs/ingestd/internal/connectors/confluence"
	"github.com/corvuslabs/ingestd/internal/connectors/gitlab"
	"github.com/corvuslabs/ingestd/internal/connectors/jira"
	"github.com/corvuslabs/ingestd/internal/connectors/localfiles"
	"github.com/corvuslabs/ingestd/internal/connectors/ydb"
	"github.com/corvuslabs/ingestd/internal/core/domain"
	"github.com/corvuslabs/ingestd/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.ConnectorFactory = (*Factory)(nil)

type builder func(domain.SourceInstance) (driven.Connector, error)

// Factory creates connectors by source type. Connectors are created per
// run and closed by the caller when the run ends.
type Factory struct {
	builders map[domain.SourceType]builder
}

// NewFactory returns a factory covering every supported source type.
func NewFactory() *Factory {
	return &Factory{
		builders: map[domain.SourceType]builder{
			domain.SourceConfluence: func(s domain.SourceInstance) (driven.Connector, error) {
				return confluence.New(s)
			},
			domain.SourceGitLab: func(s domain.SourceInstance) (driven.Connector, error) {
				return gitlab.New(s)
			},
			domain.SourceJira: func(s domain.SourceInstance) (driven.Connector, error) {
				return jira.New(s)
			},
			domain.SourceYDB: func(s domain.SourceInstance) (driven.Connector, error) {
				return ydb.New(s)
			},
			domain.SourceClickHouse: func(s domain.SourceInstance) (driven.Connector, error) {
				return clickhouse.New(s)
			},
			domain.SourceLocalFiles: func(domain.SourceInstance) (driven.Connector, error) {
				return localfiles.New(), nil
			},
		},
	}
}

// Create builds a connector for the source's type.
func (f *Factory) Create(source domain.SourceInstance) (driven.Connector, error) {
	build, ok := f.builders[source.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, source.Type)
	}
	return build(source)
}
