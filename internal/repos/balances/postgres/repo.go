package balances

import (
	"github.com/fastprodman/seamlesswallet/internal/infra/pgutils"
	"github.com/fastprodman/seamlesswallet/internal/repos/balances"
)

var _ balances.Balances = (*balancesRepo)(nil)

type balancesRepo struct{ q pgutils.Querier }

// New binds the repository to a *sql.DB or to an open *sql.Tx.
func New(q pgutils.Querier) *balancesRepo {
	return &balancesRepo{q: q}
}
