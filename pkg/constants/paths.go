package constants

// Служебные пути (health, ready); остальные маршруты собираются в router.
const (
	PathHealth = "/health"
	PathReady  = "/ready"
)
