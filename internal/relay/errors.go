package relay

import "errors"

var (
	// ErrValidation не хватает workspace, отправителя или текста
	ErrValidation = errors.New("invalid chat message")

	// ErrNotJoined сессия пишет в комнату, к которой не присоединилась
	ErrNotJoined = errors.New("session has not joined workspace")

	ErrPersistence = errors.New("chat persistence failed")
)

// PersistenceError ошибка записи или чтения треда, рассылка не выполняется
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
