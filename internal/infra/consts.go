package infra

// Имена Redis-каналов. Должны совпадать с теми, в которые публикует админка.
const (
	// RedisChanPolicyUpdate — широковещательный сигнал "политики изменились":
	// все инстансы перечитывают кэш из Postgres
	RedisChanPolicyUpdate = "agentgov:policies:update"
)
