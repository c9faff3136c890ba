package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "tunnelops"
)

// Ключи кэша снапшотов (TTL выставляется при записи)
const (
	RedisKeySummaryCache   = RedisNamespace + ":cache:dashboard:summary"
	RedisKeyPersonnelCache = RedisNamespace + ":cache:personnel:stats"
	RedisKeyProgressCache  = RedisNamespace + ":cache:progress:stats"
)

// Каналы Pub/Sub (шина телеметрии)
const (
	redisChanStreamPrefix = RedisNamespace + ":stream:"
)

// RedisChanStream — канал шины для SSE-топика: tunnelops:stream:<topic>
func RedisChanStream(topic string) string {
	return redisChanStreamPrefix + topic
}

// GetCacheKey Генератор ключей для произвольных снапшотов
func GetCacheKey(resource string) string {
	return fmt.Sprintf("%s:cache:%s", RedisNamespace, resource)
}
