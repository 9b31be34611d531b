// Package device maintains the in-memory actuator state cache.
//
// The cache is the single source of truth for "what is each device doing
// right now". It is seeded with the configured device set at startup (all
// off) and converges toward fleet reality as status echoes arrive. Writes
// are idempotent: replaying the same status is harmless.
//
// The cache is deliberately volatile. Device state is reconstructed from
// the fleet after a restart (status echoes plus the on-connect
// re-announcement), so persisting it would only risk serving stale state.
package device
