package service

import "sync"

// tenantLocks сериализует структурные мутации (перенос, переименование, удаление)
// в пределах одного арендатора: хранилище не даёт межзаписных транзакций,
// поэтому два каскада по одному дереву не должны чередоваться.
// Записи не освобождаются: карта держит по одному мьютексу на каждого
// арендатора, когда-либо менявшего структуру, до конца жизни процесса
type tenantLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newTenantLocks() *tenantLocks {
	return &tenantLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

// acquire захватывает мьютекс арендатора и возвращает функцию освобождения
func (t *tenantLocks) acquire(tenantID string) func() {
	t.mu.Lock()
	lock, ok := t.locks[tenantID]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[tenantID] = lock
	}
	t.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
