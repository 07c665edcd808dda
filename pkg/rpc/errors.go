package rpc

import "github.com/bobboyms/percolator/pkg/percolerrors"

func asLocked(err error) (*percolerrors.IsLockedError, bool) {
	return percolerrors.AsLocked(err)
}

func asWriteConflict(err error) (*percolerrors.WriteConflictError, bool) {
	return percolerrors.AsWriteConflict(err)
}
