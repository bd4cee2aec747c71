package repositories

import "context"

// TransactionManager runs fn inside a single database transaction shared
// across every repository call made with the context fn receives, so a
// multi-repository operation either commits as a whole or leaves no
// partial effect behind. Repository facades detect the enlisted
// transaction on the context themselves; callers never see a *sql.Tx or
// pgx.Tx type.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
