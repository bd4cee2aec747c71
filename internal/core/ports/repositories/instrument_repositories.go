package repositories

import (
	"context"

	"github.com/bigfin/core/internal/core/domain"
)

// InstrumentReader defines read operations over funding instruments.
type InstrumentReader interface {
	FindInstrumentByID(ctx context.Context, id string) (*domain.FundingInstrument, error)
}

// InstrumentWriter defines write operations over funding instruments.
type InstrumentWriter interface {
	SaveInstrument(ctx context.Context, instr domain.FundingInstrument) error
	UpdateInstrument(ctx context.Context, instr domain.FundingInstrument) error
}

// InstrumentRepositoryFacade combines every funding instrument repository concern.
type InstrumentRepositoryFacade interface {
	InstrumentReader
	InstrumentWriter
}
