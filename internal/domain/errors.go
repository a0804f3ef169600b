package domain

import "errors"

// Классификация ошибок ядра. На границе HTTP они маппятся в статус-коды,
// внутри ядра проверяются через errors.Is.
var (
	// ErrNotFound — заявка с таким ID не существует
	ErrNotFound = errors.New("not found")

	// ErrConflict — попытка перехода из терминального (или не-pending) статуса.
	// Покрывает и "уже решено", и невалидный целевой статус.
	ErrConflict = errors.New("conflict: approval already decided or transition invalid")

	// ErrInvalidInput — обязательное поле запроса пустое или битое
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorageUnavailable — отказ хранилища. Ядро не ретраит,
	// поднимает наверх как есть.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
