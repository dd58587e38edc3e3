package common

import (
	"errors"
	"fmt"
)

// Validation errors surfaced back to the command invoker.
var (
	ErrEmptyPoints    = errors.New("vote has no points")
	ErrMissingMessage = errors.New("vote has no message id")
	ErrNotPersisted   = errors.New("vote has not been persisted")
	ErrInvalidEmoji   = errors.New("vote point needs exactly one emoji identity")
	ErrInvalidDraft   = errors.New("vote flags do not match its points")
	ErrVoteNotFound   = errors.New("no such active vote")
)

// StorageError wraps an underlying storage failure with query context. Raw
// gorm errors never cross the dao boundary.
type StorageError struct {
	Op      string
	GuildId string
	VoteId  int64
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error in %s, guildId=%s, voteId=%d: %v", e.Op, e.GuildId, e.VoteId, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func NewStorageError(op, guildId string, voteId int64, err error) *StorageError {
	return &StorageError{Op: op, GuildId: guildId, VoteId: voteId, Err: err}
}
