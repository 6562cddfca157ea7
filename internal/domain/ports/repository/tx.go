package repository

// Tx is an opaque transaction handle threaded through repository methods.
// Callers pass nil for the non-transactional path; the concrete type is
// infra-defined (pgx.Tx for Postgres).
type Tx interface{}
