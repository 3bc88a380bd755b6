package tallyengine

import (
	"log/slog"

	httpadapter "github.com/AlmaLinux/astra/contexts/governance/tally-engine/adapters/http"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/adapters/memory"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/application/commands"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/application/queries"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/entities"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Elections ports.ElectionRepository
	Tallies   ports.TallyRepository
	Locks     ports.TallyLock
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Metrics   ports.Metrics
	Logger    *slog.Logger
}

func NewModule(deps Dependencies) Module {
	tallyUseCase := commands.TallyUseCase{
		Elections: deps.Elections,
		Tallies:   deps.Tallies,
		Locks:     deps.Locks,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Metrics:   deps.Metrics,
		Logger:    deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Tallies: tallyUseCase,
			Results: queries.ResultsQuery{Elections: deps.Elections, Tallies: deps.Tallies, Logger: deps.Logger},
			Audit:   queries.AuditQuery{Tallies: deps.Tallies, Logger: deps.Logger},
			Flows:   queries.FlowsQuery{Elections: deps.Elections, Tallies: deps.Tallies, Logger: deps.Logger},
			Quorum:  queries.QuorumQuery{Elections: deps.Elections, Logger: deps.Logger},
			Logger:  deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.Election, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Elections: store,
		Tallies:   store,
		Locks:     memory.NewLockRegistry(),
		Clock:     store,
		IDGen:     store,
		Logger:    logger,
	})
	module.Store = store
	return module
}
