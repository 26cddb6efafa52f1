package relay

import "sync"

// workspaceLocks мьютекс на каждый workspace. Запись удаляется, когда её
// никто не держит и не ждёт.
type workspaceLocks struct {
	mu    sync.Mutex
	locks map[string]*workspaceLock
}

type workspaceLock struct {
	mu   sync.Mutex
	refs int
}

func newWorkspaceLocks() *workspaceLocks {
	return &workspaceLocks{locks: make(map[string]*workspaceLock)}
}

// lock блокирует workspace и возвращает функцию разблокировки
func (l *workspaceLocks) lock(workspaceID string) func() {
	l.mu.Lock()
	wl, ok := l.locks[workspaceID]
	if !ok {
		wl = &workspaceLock{}
		l.locks[workspaceID] = wl
	}
	wl.refs++
	l.mu.Unlock()

	wl.mu.Lock()

	return func() {
		wl.mu.Unlock()

		l.mu.Lock()
		wl.refs--
		if wl.refs == 0 {
			delete(l.locks, workspaceID)
		}
		l.mu.Unlock()
	}
}

func (l *workspaceLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
