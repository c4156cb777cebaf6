package models

const (
	SyncPolicyAlways    = "always"
	SyncPolicyWhenEmpty = "when_empty"
)

const (
	// DefaultMenuURL адрес JSON-документа с меню
	DefaultMenuURL = "https://jamesserge.github.io/ohbang-json/data.json"

	// DefaultRemoteTimeout таймаут HTTP-запроса меню, в секундах
	DefaultRemoteTimeout = 15

	// DefaultProbeAddress адрес для проверки доступности сети
	DefaultProbeAddress = "google.com:443"

	// DefaultProbeTimeout таймаут проверки сети, в секундах
	DefaultProbeTimeout = 3

	// PrefLastSyncAt ключ настройки с временем последней синхронизации
	PrefLastSyncAt = "last_sync_at"

	// RateLimitRPS запросов в секунду на клиента по умолчанию
	RateLimitRPS = 20

	// RateLimitBurst размер всплеска по умолчанию
	RateLimitBurst = 40
)
