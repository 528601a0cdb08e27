package persistence

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Store-level sentinels. Repositories translate these into domain errors.
var (
	ErrTenantNotFound         = errors.New("tenant not found")
	ErrCampaignNotFound       = errors.New("campaign not found")
	ErrChallengeNotFound      = errors.New("challenge not found")
	ErrParticipantNotFound    = errors.New("participant not found")
	ErrAssociationNotFound    = errors.New("association not found")
	ErrDuplicateAssociation   = errors.New("association already exists")
	ErrNicknameTaken          = errors.New("nickname already taken")
	ErrChallengeReferenced    = errors.New("challenge has campaign associations")
	ErrTenantReferenceMissing = errors.New("owning tenant does not exist")
)

// rowScanner abstracts pgx.Row and pgx.Rows for the scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
